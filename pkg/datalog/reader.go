// Package datalog decodes the length-prefixed binary robot log format:
// a 12 byte prologue ("WPILOG" magic, version, extra header length),
// followed by variable-width records. Decoding is lazy and tolerant:
// a truncated record ends the stream, it is not an error.
package datalog

import "bytes"

const (
	prologueLen = 12
	magic       = "WPILOG"
)

// Reader decodes records from an immutable byte buffer.
type Reader struct {
	buf []byte
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Valid reports whether the buffer starts with a well formed prologue.
func (r *Reader) Valid() bool {
	return len(r.buf) >= prologueLen && bytes.HasPrefix(r.buf, []byte(magic))
}

// payloadStart is the byte offset of the first record: the fixed prologue
// plus the variable extra header whose length sits at bytes [8:12].
func (r *Reader) payloadStart() int {
	if len(r.buf) < prologueLen {
		return len(r.buf)
	}
	hdr := int(uint32(r.buf[8]) | uint32(r.buf[9])<<8 |
		uint32(r.buf[10])<<16 | uint32(r.buf[11])<<24)
	return prologueLen + hdr
}

// Records returns an iterator positioned at the first record.
func (r *Reader) Records() *Iterator {
	if !r.Valid() {
		return &Iterator{buf: r.buf, pos: len(r.buf)}
	}
	return &Iterator{buf: r.buf, pos: r.payloadStart()}
}

// RecordsFrom returns an iterator starting at the given byte offset,
// which must be a record boundary previously observed via Pos.
func (r *Reader) RecordsFrom(pos int) *Iterator {
	return &Iterator{buf: r.buf, pos: pos}
}

// Iterator walks the record stream. Next returns nil once the buffer is
// exhausted or a record claims more bytes than remain.
type Iterator struct {
	buf []byte
	pos int
}

// Pos returns the byte offset of the next record.
func (it *Iterator) Pos() int { return it.pos }

func (it *Iterator) Next() *Record {
	if it.pos+4 > len(it.buf) {
		return nil
	}
	head := it.buf[it.pos]
	entryWidth := int(head&0x3) + 1
	sizeWidth := int(head>>2&0x3) + 1
	tsWidth := int(head>>4&0x7) + 1
	hdrLen := 1 + entryWidth + sizeWidth + tsWidth
	if it.pos+hdrLen > len(it.buf) {
		return nil
	}
	entry := readVarUint(it.buf[it.pos+1:], entryWidth)
	size := int(readVarUint(it.buf[it.pos+1+entryWidth:], sizeWidth))
	ts := readVarUint(it.buf[it.pos+1+entryWidth+sizeWidth:], tsWidth)
	if it.pos+hdrLen+size > len(it.buf) {
		return nil
	}
	data := it.buf[it.pos+hdrLen : it.pos+hdrLen+size]
	it.pos += hdrLen + size
	return &Record{Entry: uint32(entry), Timestamp: ts, Data: data}
}

// readVarUint reads a little-endian unsigned integer of 1..8 bytes.
func readVarUint(buf []byte, width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		v |= uint64(buf[i]) << (8 * i)
	}
	return v
}
