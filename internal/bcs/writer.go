// Package bcs implements just enough of Sui's Binary Canonical
// Serialization to build and (for the builder's self-check) read
// back a TransactionData::V1 envelope: little-endian fixed-width
// integers, ULEB128-length-prefixed sequences, and single-byte enum tags.
package bcs

import (
	"encoding/binary"
)

// Writer accumulates a BCS byte buffer while tracking the running offset,
// so a TemplateBuilder can record the exact byte index of a field (the
// gas budget) as it writes it, rather than searching the finished buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer with capacity hint cap.
func NewWriter(capHint int) *Writer {
	return &Writer{buf: make([]byte, 0, capHint)}
}

// Offset returns the number of bytes written so far — the offset the next
// write will land at.
func (w *Writer) Offset() int { return len(w.buf) }

// Bytes returns the accumulated buffer. The caller must not mutate it.
func (w *Writer) Bytes() []byte { return w.buf }

// WriteU8 writes a single byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteU16 writes v as 2 little-endian bytes.
func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteU32 writes v as 4 little-endian bytes.
func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteU64 writes v as 8 little-endian bytes. Returns the offset the 8
// bytes were written at, which callers use to record nonce_offset.
func (w *Writer) WriteU64(v uint64) int {
	offset := len(w.buf)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return offset
}

// WriteULEB128 writes v as an unsigned LEB128 varint, used only for
// sequence and string lengths (BCS never ULEB128-encodes a scalar field).
func (w *Writer) WriteULEB128(v uint64) {
	for v >= 0x80 {
		w.buf = append(w.buf, byte(v)|0x80)
		v >>= 7
	}
	w.buf = append(w.buf, byte(v))
}

// WriteBytes appends raw bytes with no length prefix — used for
// fixed-width fields like a 32-byte address or digest.
func (w *Writer) WriteBytes(p []byte) {
	w.buf = append(w.buf, p...)
}

// WriteVector writes a ULEB128 length prefix followed by n calls to
// writeElem(i) for i in [0, n).
func (w *Writer) WriteVector(n int, writeElem func(i int)) {
	w.WriteULEB128(uint64(n))
	for i := 0; i < n; i++ {
		writeElem(i)
	}
}

// WriteByteVector writes a ULEB128 length prefix followed by the raw
// bytes — BCS's encoding of Vec<u8> / Move bytecode blobs / UTF-8 strings.
func (w *Writer) WriteByteVector(p []byte) {
	w.WriteULEB128(uint64(len(p)))
	w.WriteBytes(p)
}

// WriteString writes a UTF-8 string the same way as WriteByteVector.
func (w *Writer) WriteString(s string) {
	w.WriteByteVector([]byte(s))
}

// WriteOptionNone writes Option::None (tag 0x00).
func (w *Writer) WriteOptionNone() {
	w.WriteU8(0x00)
}

// WriteOptionSome writes Option::Some tagged 0x01, then calls writeVal to
// serialize the payload.
func (w *Writer) WriteOptionSome(writeVal func()) {
	w.WriteU8(0x01)
	writeVal()
}

// WriteTag writes a single-byte enum discriminant.
func (w *Writer) WriteTag(tag uint8) {
	w.WriteU8(tag)
}
