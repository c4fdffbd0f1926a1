package client

import (
	"fmt"
	"io"
)

// ReadFunc produces outgoing body bytes into dst and returns how many were
// written. A nil dst asks for the number of bytes still to be produced,
// without consuming any. Returning 0 with a non-empty dst ends the body.
type ReadFunc func(dst []byte, state any) (int, error)

// WriteFunc consumes a chunk of the incoming body and returns how many
// bytes it accepted.
type WriteFunc func(src []byte, state any) (int, error)

// Buffer is the byte store behind the default body hooks. Reads drain it
// from a cursor; writes append to it, doubling capacity whenever the
// remaining headroom is too small for the incoming chunk.
type Buffer struct {
	data     []byte
	size     int
	capacity int
	position int
}

// NewBuffer wraps data without copying it. The buffer's length is len(data).
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data, size: len(data), capacity: len(data)}
}

// Bytes returns the logical contents. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.size]
}

// Len returns the logical length.
func (b *Buffer) Len() int { return b.size }

// Cap returns the allocated length.
func (b *Buffer) Cap() int { return b.capacity }

// Remaining returns the number of bytes not yet read.
func (b *Buffer) Remaining() int { return b.size - b.position }

// Rewind moves the read cursor back to the start.
func (b *Buffer) Rewind() { b.position = 0 }

// Reset drops the contents and the backing storage.
func (b *Buffer) Reset() { *b = Buffer{} }

// Read copies up to len(p) unread bytes into p and advances the cursor.
// It returns io.EOF once every byte has been read.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if b.position >= b.size {
		return 0, io.EOF
	}

	n := copy(p, b.data[b.position:b.size])
	b.position += n

	return n, nil
}

// Write appends p, growing the backing storage as needed. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.grow(len(p))

	n := copy(b.data[b.size:b.capacity], p)
	b.size += n

	return n, nil
}

// grow ensures at least n bytes of headroom. The first allocation is sized
// to n exactly; after that capacity doubles until the chunk fits, and the
// storage is reallocated once.
func (b *Buffer) grow(n int) {
	newCapacity := b.capacity
	if newCapacity == 0 {
		newCapacity = n
	}
	for newCapacity-b.size < n {
		newCapacity *= 2
	}

	if newCapacity == b.capacity {
		return
	}

	data := make([]byte, newCapacity)
	copy(data, b.data[:b.size])
	b.data = data
	b.capacity = newCapacity
}

// DefaultReader is the [ReadFunc] used when no custom body reader is set.
// state must be the *Buffer holding the request body.
func DefaultReader(dst []byte, state any) (int, error) {
	b, ok := state.(*Buffer)
	if !ok {
		return 0, fmt.Errorf("default reader: %w: got %T", ErrInvalidState, state)
	}

	if dst == nil {
		return b.Remaining(), nil
	}

	n, err := b.Read(dst)
	if err == io.EOF {
		return n, nil
	}

	return n, err
}

// DefaultWriter is the [WriteFunc] used when no custom body writer is set.
// state must be the *Buffer accumulating the response body.
func DefaultWriter(src []byte, state any) (int, error) {
	b, ok := state.(*Buffer)
	if !ok {
		return 0, fmt.Errorf("default writer: %w: got %T", ErrInvalidState, state)
	}

	return b.Write(src)
}
