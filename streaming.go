// streaming.go: Streaming encryption for large payloads.
//
// Large payloads are encrypted as a sequence of independent AEAD
// envelopes, one per chunk, so neither side ever holds the full payload
// in memory. The chunk index and a final-chunk flag travel as associated
// data: a reordered, duplicated, dropped or truncated chunk fails
// authentication instead of decrypting in the wrong position.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"crypto/aes"
	"encoding/binary"
	"fmt"
	"io"

	goerrors "github.com/agilira/go-errors"
)

// StreamingEncryptor encrypts data in chunks while writing to an
// underlying writer.
//
// Example usage:
//
//	key, _ := crypto.GenerateKey256()
//	enc, _ := crypto.NewStreamingEncryptor(outputWriter, key)
//	io.Copy(enc, inputReader)
//	enc.Close() // must be called: writes the final chunk
type StreamingEncryptor interface {
	// Write buffers and encrypts data chunk by chunk.
	Write(data []byte) (int, error)

	// Close encrypts the final chunk and marks the stream complete.
	// A stream without its final chunk fails decryption as truncated.
	Close() error
}

// StreamingDecryptor decrypts a stream produced by StreamingEncryptor.
//
// Example usage:
//
//	dec, _ := crypto.NewStreamingDecryptor(inputReader, key)
//	io.Copy(outputWriter, dec)
type StreamingDecryptor interface {
	// Read decrypts and returns plaintext, chunk by chunk. Returns io.EOF
	// after the authenticated final chunk.
	Read(data []byte) (int, error)

	// Close releases the decryptor's key material.
	Close() error
}

// DefaultChunkSize is the default plaintext chunk size (64KB): small
// enough to bound memory, large enough to amortize per-chunk derivation.
const DefaultChunkSize = 64 * 1024

// Stream header: [4 bytes magic][4 bytes format version][4 bytes chunk size].
// Each following frame: [1 byte final flag][4 bytes envelope length][AEAD envelope].
const (
	streamMagic   = "LCBC"
	streamVersion = uint32(1)
	headerSize    = 4 + 4 + 4
	maxChunkSize  = 10 * 1024 * 1024
)

// Error codes for streaming operations
const (
	ErrCodeStreamChunkSize = "STREAM_INVALID_CHUNK_SIZE"
	ErrCodeStreamClosed    = "STREAM_CLOSED"
	ErrCodeStreamHeader    = "STREAM_HEADER"
	ErrCodeStreamFormat    = "STREAM_FORMAT"
	ErrCodeStreamTruncated = "STREAM_TRUNCATED"
)

type streamingEncryptor struct {
	writer     io.Writer
	key        []byte
	buffer     []byte
	chunkSize  int
	chunkIndex uint64
	closed     bool
}

type streamingDecryptor struct {
	reader     io.Reader
	key        []byte
	chunkSize  int
	chunkIndex uint64
	leftover   []byte
	headerRead bool
	done       bool
	closed     bool
}

// chunkAAD builds the associated data for one chunk: the big-endian chunk
// index followed by the final-chunk flag.
func chunkAAD(index uint64, final bool) [9]byte {
	var aad [9]byte
	binary.BigEndian.PutUint64(aad[:8], index)
	if final {
		aad[8] = 1
	}
	return aad
}

// NewStreamingEncryptor creates a streaming encryptor with the default
// chunk size. The key may be 128- or 256-bit; AEAD derivation always
// yields 256-bit sub-keys either way.
func NewStreamingEncryptor(writer io.Writer, key []byte) (StreamingEncryptor, error) {
	return NewStreamingEncryptorWithChunkSize(writer, key, DefaultChunkSize)
}

// NewStreamingEncryptorWithChunkSize creates a streaming encryptor with a
// custom plaintext chunk size between 1 byte and 10MB. The stream header
// is written immediately.
func NewStreamingEncryptorWithChunkSize(writer io.Writer, key []byte, chunkSize int) (StreamingEncryptor, error) {
	if _, err := ClassifyKey(key); err != nil {
		return nil, err
	}
	if chunkSize <= 0 || chunkSize > maxChunkSize {
		return nil, goerrors.New(ErrCodeStreamChunkSize, "chunk size must be between 1 byte and 10MB")
	}

	header := make([]byte, headerSize)
	copy(header, streamMagic)
	binary.BigEndian.PutUint32(header[4:8], streamVersion)
	binary.BigEndian.PutUint32(header[8:12], uint32(chunkSize)) // #nosec G115 -- bounded above
	if _, err := writer.Write(header); err != nil {
		return nil, goerrors.Wrap(err, ErrCodeStreamHeader, "failed to write stream header")
	}

	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)
	return &streamingEncryptor{
		writer:    writer,
		key:       keyCopy,
		buffer:    make([]byte, 0, chunkSize),
		chunkSize: chunkSize,
	}, nil
}

func (e *streamingEncryptor) Write(data []byte) (int, error) {
	if e.closed {
		return 0, goerrors.New(ErrCodeStreamClosed, "write on closed streaming encryptor")
	}

	total := len(data)
	for len(data) > 0 {
		space := e.chunkSize - len(e.buffer)
		if space > len(data) {
			space = len(data)
		}
		e.buffer = append(e.buffer, data[:space]...)
		data = data[space:]

		if len(e.buffer) == e.chunkSize {
			if err := e.flushChunk(false); err != nil {
				return total - len(data), err
			}
		}
	}
	return total, nil
}

func (e *streamingEncryptor) Close() error {
	if e.closed {
		return nil
	}
	// The final chunk is written even when empty so truncation is always
	// detectable.
	err := e.flushChunk(true)
	Zeroize(e.buffer[:cap(e.buffer)])
	Zeroize(e.key)
	e.closed = true
	return err
}

func (e *streamingEncryptor) flushChunk(final bool) error {
	iv, err := GenerateIV()
	if err != nil {
		return err
	}
	aad := chunkAAD(e.chunkIndex, final)
	envelope, err := sealAead(e.key, e.buffer, iv, aad[:], PaddingPKCS7)
	if err != nil {
		return err
	}

	frame := getDynamicBuffer()
	flag := byte(0)
	if final {
		flag = 1
	}
	frame = append(frame, flag)
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(envelope))) // #nosec G115 -- bounded by chunk size limit
	frame = append(frame, envelope...)

	_, werr := e.writer.Write(frame)
	putDynamicBuffer(frame)
	if werr != nil {
		return goerrors.Wrap(werr, ErrCodeStreamFormat, "failed to write stream frame")
	}
	e.chunkIndex++
	e.buffer = e.buffer[:0]
	return nil
}

// NewStreamingDecryptor creates a streaming decryptor. The header is read
// and validated on the first Read call.
func NewStreamingDecryptor(reader io.Reader, key []byte) (StreamingDecryptor, error) {
	if _, err := ClassifyKey(key); err != nil {
		return nil, err
	}
	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)
	return &streamingDecryptor{reader: reader, key: keyCopy}, nil
}

func (d *streamingDecryptor) Read(out []byte) (int, error) {
	if d.closed {
		return 0, goerrors.New(ErrCodeStreamClosed, "read on closed streaming decryptor")
	}

	for len(d.leftover) == 0 {
		if d.done {
			return 0, io.EOF
		}
		if !d.headerRead {
			if err := d.readHeader(); err != nil {
				return 0, err
			}
		}
		if err := d.readChunk(); err != nil {
			return 0, err
		}
	}

	n := copy(out, d.leftover)
	d.leftover = d.leftover[n:]
	return n, nil
}

func (d *streamingDecryptor) Close() error {
	Zeroize(d.key)
	d.closed = true
	return nil
}

func (d *streamingDecryptor) readHeader() error {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(d.reader, header); err != nil {
		return goerrors.Wrap(err, ErrCodeStreamHeader, "failed to read stream header")
	}
	if string(header[:4]) != streamMagic {
		return goerrors.New(ErrCodeStreamFormat, "invalid stream magic")
	}
	if binary.BigEndian.Uint32(header[4:8]) != streamVersion {
		return goerrors.New(ErrCodeStreamFormat, "unsupported stream format version")
	}
	chunkSize := int(binary.BigEndian.Uint32(header[8:12]))
	if chunkSize <= 0 || chunkSize > maxChunkSize {
		return goerrors.New(ErrCodeStreamChunkSize, "stream declares an invalid chunk size")
	}
	d.chunkSize = chunkSize
	d.headerRead = true
	return nil
}

func (d *streamingDecryptor) readChunk() error {
	var frameHeader [5]byte
	if _, err := io.ReadFull(d.reader, frameHeader[:]); err != nil {
		// The final chunk carries an authenticated flag; plain EOF before
		// it means the stream was cut.
		return goerrors.Wrap(err, ErrCodeStreamTruncated, "stream ended before its final chunk")
	}
	final := frameHeader[0] == 1
	envelopeLen := int(binary.BigEndian.Uint32(frameHeader[1:5]))

	// A chunk of up to chunkSize bytes pads to at most one extra block.
	maxEnvelope := VersionTagSize + IVSize + d.chunkSize + aes.BlockSize + MacSize
	if envelopeLen < VersionTagSize+IVSize+MacSize || envelopeLen > maxEnvelope {
		return goerrors.New(ErrCodeStreamFormat, fmt.Sprintf("frame declares invalid envelope length %d", envelopeLen))
	}

	envelope := make([]byte, envelopeLen)
	if _, err := io.ReadFull(d.reader, envelope); err != nil {
		return goerrors.Wrap(err, ErrCodeStreamTruncated, "stream ended mid-frame")
	}

	aad := chunkAAD(d.chunkIndex, final)
	plaintext, err := openAead(d.key, envelope, aad[:], PaddingPKCS7)
	if err != nil {
		return err
	}
	d.chunkIndex++
	d.leftover = plaintext
	d.done = final
	return nil
}
