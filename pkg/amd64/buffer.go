// Package amd64 provides x86_64 (AMD64) machine code encoding utilities.
// This package has no dependencies on compiler internals and can be used
// standalone for generating x86_64 machine code.
package amd64

import "encoding/binary"

// CodeBuffer is a fixed-capacity, bounds-checked byte sink. Writes past the
// capacity are silently discarded rather than panicking or growing — callers
// that care must check Len()/Cap() themselves. This mirrors the "soft
// failure" resource model used throughout the compiler: a too-small program
// truncates instead of crashing.
type CodeBuffer struct {
	buf    []byte
	cursor int
}

// NewCodeBuffer allocates a buffer with the given fixed capacity.
func NewCodeBuffer(capacity int) *CodeBuffer {
	return &CodeBuffer{buf: make([]byte, capacity)}
}

// Len returns the number of bytes written so far.
func (c *CodeBuffer) Len() int { return c.cursor }

// Cap returns the buffer's fixed capacity.
func (c *CodeBuffer) Cap() int { return len(c.buf) }

// Bytes returns the written prefix of the buffer.
func (c *CodeBuffer) Bytes() []byte { return c.buf[:c.cursor] }

// EmitByte appends a single byte, dropping it if the buffer is full.
func (c *CodeBuffer) EmitByte(b byte) {
	if c.cursor >= len(c.buf) {
		return
	}
	c.buf[c.cursor] = b
	c.cursor++
}

// EmitBytes appends a byte slice, dropping whatever doesn't fit.
func (c *CodeBuffer) EmitBytes(b []byte) {
	for _, x := range b {
		c.EmitByte(x)
	}
}

// EmitU32 appends a little-endian 32-bit value.
func (c *CodeBuffer) EmitU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	c.EmitBytes(tmp[:])
}

// EmitU64 appends a little-endian 64-bit value.
func (c *CodeBuffer) EmitU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	c.EmitBytes(tmp[:])
}

// EmitI32 appends a little-endian 32-bit two's-complement value.
func (c *CodeBuffer) EmitI32(v int32) {
	c.EmitU32(uint32(v))
}

// PatchI32 overwrites four bytes at offset with a little-endian signed
// 32-bit value. Used by the fixup resolver once label addresses are known.
// A request past the written prefix is ignored — an unresolved fixup whose
// offset was itself never reached is not something callers should hit, but
// this keeps the method as silently-bounded as the rest of the buffer.
func (c *CodeBuffer) PatchI32(offset int, v int32) {
	if offset < 0 || offset+4 > c.cursor {
		return
	}
	binary.LittleEndian.PutUint32(c.buf[offset:offset+4], uint32(v))
}

// writeLE32 writes a 32-bit value in little-endian order into buf.
func writeLE32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// writeLE64 writes a 64-bit value in little-endian order into buf.
func writeLE64(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}
