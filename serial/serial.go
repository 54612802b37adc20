// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package serial implements the validator engine's bespoke wire encoding:
// fixed little-endian integers, varint-prefixed sequences and byte
// strings, and single tag bytes (WriteBool) that callers use for
// options. There is no helper for maps. Domain types in types/ and
// blockchain/ round-trip through Encodable/Decodable; zk's verifying
// keys and proofs use gnark's own ReadFrom/WriteTo encoding instead.
package serial

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrMalformedEncoding is returned when a decode call encounters bytes
// that don't describe a valid value of the target type.
var ErrMalformedEncoding = errors.New("serial: malformed encoding")

// Encodable is implemented by any type with a stable wire representation.
type Encodable interface {
	Encode(w io.Writer) (int, error)
}

// Decodable is implemented by any type that can be reconstructed from its
// wire representation.
type Decodable interface {
	Decode(r io.Reader) error
}

// Writer bundles the little-endian primitive writers used throughout the
// codec, mirroring darkfi-serial's WriteExt helper trait.
type Writer struct {
	w   io.Writer
	n   int
	err error
}

// NewWriter wraps w for sequential little-endian writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (wr *Writer) write(p []byte) {
	if wr.err != nil {
		return
	}
	n, err := wr.w.Write(p)
	wr.n += n
	wr.err = err
}

// WriteU8 writes a single byte.
func (wr *Writer) WriteU8(v uint8) { wr.write([]byte{v}) }

// WriteU32 writes a fixed-width little-endian uint32 (used for the call
// index prefix in the runtime payload framing, §4.4).
func (wr *Writer) WriteU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	wr.write(buf[:])
}

// WriteU64 writes a fixed-width little-endian uint64.
func (wr *Writer) WriteU64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	wr.write(buf[:])
}

// WriteVarint writes a variable-length unsigned count prefix for a
// sequence (the compact form used ahead of slices/maps).
func (wr *Writer) WriteVarint(v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	wr.write(buf[:n])
}

// WriteBytes writes a varint-prefixed byte slice.
func (wr *Writer) WriteBytes(b []byte) {
	wr.WriteVarint(uint64(len(b)))
	wr.write(b)
}

// WriteRaw writes a fixed-size field with no length prefix (used for
// hash-sized arrays like commitments and nullifiers, whose length is
// implied by the type rather than encoded on the wire).
func (wr *Writer) WriteRaw(b []byte) { wr.write(b) }

// WriteBool writes a single tag byte.
func (wr *Writer) WriteBool(b bool) {
	if b {
		wr.WriteU8(1)
	} else {
		wr.WriteU8(0)
	}
}

// Result returns the number of bytes written and any error encountered.
func (wr *Writer) Result() (int, error) { return wr.n, wr.err }

// Reader bundles the little-endian primitive readers.
type Reader struct {
	r   io.Reader
	err error
}

// NewReader wraps r for sequential little-endian reads.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

func (rd *Reader) read(p []byte) {
	if rd.err != nil {
		return
	}
	_, rd.err = io.ReadFull(rd.r, p)
}

// ReadU8 reads a single byte.
func (rd *Reader) ReadU8() uint8 {
	var buf [1]byte
	rd.read(buf[:])
	return buf[0]
}

// ReadU32 reads a fixed-width little-endian uint32.
func (rd *Reader) ReadU32() uint32 {
	var buf [4]byte
	rd.read(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

// ReadU64 reads a fixed-width little-endian uint64.
func (rd *Reader) ReadU64() uint64 {
	var buf [8]byte
	rd.read(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// ReadVarint reads a variable-length unsigned count prefix, bounding it to
// a sane maximum so a corrupt length can't trigger a huge allocation.
func (rd *Reader) ReadVarint() uint64 {
	if rd.err != nil {
		return 0
	}
	br, ok := rd.r.(io.ByteReader)
	if !ok {
		br = &byteReaderAdapter{rd.r}
	}
	v, err := binary.ReadUvarint(br)
	if err != nil {
		rd.err = err
		return 0
	}
	if v > math.MaxUint32 {
		rd.err = ErrMalformedEncoding
		return 0
	}
	return v
}

// ReadBytes reads a varint-prefixed byte slice.
func (rd *Reader) ReadBytes() []byte {
	n := rd.ReadVarint()
	if rd.err != nil {
		return nil
	}
	buf := make([]byte, n)
	rd.read(buf)
	return buf
}

// ReadRaw reads exactly len(b) bytes into b with no length prefix, the
// counterpart to WriteRaw.
func (rd *Reader) ReadRaw(b []byte) { rd.read(b) }

// ReadBool reads a single tag byte.
func (rd *Reader) ReadBool() bool { return rd.ReadU8() != 0 }

// Err returns the first error encountered during a read sequence.
func (rd *Reader) Err() error { return rd.err }

type byteReaderAdapter struct{ r io.Reader }

func (b *byteReaderAdapter) ReadByte() (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(b.r, buf[:])
	return buf[0], err
}

// Encode is a convenience wrapper returning the encoded bytes of any
// Encodable value.
func Encode(v Encodable) ([]byte, error) {
	var buf writerBuf
	if _, err := v.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.b, nil
}

// Decode is a convenience wrapper decoding b into v.
func Decode(b []byte, v Decodable) error {
	return v.Decode(&readerBuf{b: b})
}

type writerBuf struct{ b []byte }

func (w *writerBuf) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

type readerBuf struct {
	b []byte
	i int
}

func (r *readerBuf) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}
