// pool.go: Buffer pooling for envelope intermediates.
//
// Padded plaintext and raw decrypt output are short-lived buffers holding
// sensitive bytes. Pooling them keeps GC pressure down on hot encrypt/
// decrypt paths, and every buffer is zeroed before it returns to a pool so
// plaintext never survives in reusable memory.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"sync"
)

var (
	// smallBufferPool serves IVs (16 bytes) and sub-keys/tags (32 bytes).
	smallBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, 32)
			return &buf
		},
	}

	// blockBufferPool serves padded plaintext and decrypt scratch for
	// typical payloads (wrapped keys, metadata records).
	blockBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, 512)
			return &buf
		},
	}

	// dynamicBufferPool serves growable buffers for envelope assembly and
	// streaming chunks. Pointers avoid per-Put allocations (SA6002).
	dynamicBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, 0, 256)
			return &buf
		},
	}
)

// getBuffer retrieves a fixed buffer of the requested size from the
// best-fitting pool, or allocates directly for oversized requests.
func getBuffer(size int) *[]byte {
	switch {
	case size <= 32:
		buf := smallBufferPool.Get().(*[]byte)
		*buf = (*buf)[:size]
		return buf
	case size <= 512:
		buf := blockBufferPool.Get().(*[]byte)
		*buf = (*buf)[:size]
		return buf
	default:
		buf := make([]byte, size)
		return &buf
	}
}

// putBuffer zeroes a buffer and returns it to its pool. Oversized buffers
// are zeroed and dropped.
func putBuffer(buf *[]byte) {
	if buf == nil {
		return
	}
	if len(*buf) > 0 {
		Zeroize((*buf)[:cap(*buf)])
	}
	switch cap(*buf) {
	case 32:
		smallBufferPool.Put(buf)
	case 512:
		blockBufferPool.Put(buf)
	}
}

// getDynamicBuffer retrieves a growable buffer with zero length.
func getDynamicBuffer() []byte {
	buf := dynamicBufferPool.Get().(*[]byte)
	return (*buf)[:0]
}

// putDynamicBuffer zeroes and returns a growable buffer to the pool.
// Buffers that grew past the pooling ceiling are dropped after zeroing.
func putDynamicBuffer(buf []byte) {
	bufCap := cap(buf)
	if bufCap == 0 {
		return
	}
	Zeroize(buf[:bufCap])
	if bufCap <= 64*1024 {
		dynamicBufferPool.Put(&buf)
	}
}

// WarmupPools pre-allocates buffers in every pool to reduce first-use
// latency. Called once from init with a conservative count.
func WarmupPools(count int) {
	small := make([]*[]byte, count)
	block := make([]*[]byte, count)
	dynamic := make([][]byte, count)
	for i := 0; i < count; i++ {
		small[i] = getBuffer(32)
		block[i] = getBuffer(512)
		dynamic[i] = getDynamicBuffer()
	}
	for i := 0; i < count; i++ {
		putBuffer(small[i])
		putBuffer(block[i])
		putDynamicBuffer(dynamic[i])
	}
}

func init() {
	WarmupPools(4)
}
