// Copyright 2024 The fiet-public Authors
// This file is part of the fiet-public library.
//
// The fiet-public library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The fiet-public library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the fiet-public library. If not, see <http://www.gnu.org/licenses/>.

// Package bytecode implements the bounds-checked big-endian cursor the
// program decoder and envelope parser both read through. It never
// allocates more than the bytes actually requested and never returns a
// partially-advanced cursor on failure.
package bytecode

import (
	"encoding/binary"
	"errors"

	"github.com/usherlabs/fiet-public/common"
	"github.com/holiman/uint256"
)

// ErrTruncated is the single failure kind every reader method returns
// when the remaining slice is shorter than the requested width.
var ErrTruncated = errors.New("bytecode: truncated input")

// Reader is a cursor over a byte slice. The zero value is not usable;
// construct with NewReader. Reader never mutates the underlying slice.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential reading starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the current cursor offset.
func (r *Reader) Pos() int { return r.pos }

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Remaining returns the unread tail of the buffer without advancing
// the cursor.
func (r *Reader) Remaining() []byte {
	return r.buf[r.pos:]
}

func (r *Reader) need(n int) error {
	if r.Len() < n {
		return ErrTruncated
	}
	return nil
}

// ReadByte reads a single byte and advances the cursor by 1.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadU16 reads a big-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

// ReadU32 reads a big-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

// ReadU64 reads a big-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

// ReadI32 reads a big-endian two's-complement int32.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// ReadU128 reads a 16-byte big-endian unsigned integer into a uint256,
// since the engine keeps every wide integer as a uint256.Int for
// uniform comparisons (LiquidityDeltaLte's max operand is the only
// u128 in the wire format).
func (r *Reader) ReadU128() (*uint256.Int, error) {
	if err := r.need(16); err != nil {
		return nil, err
	}
	v := new(uint256.Int).SetBytes(r.buf[r.pos : r.pos+16])
	r.pos += 16
	return v, nil
}

// ReadU256 reads a 32-byte big-endian unsigned integer.
func (r *Reader) ReadU256() (*uint256.Int, error) {
	if err := r.need(32); err != nil {
		return nil, err
	}
	v := new(uint256.Int).SetBytes(r.buf[r.pos : r.pos+32])
	r.pos += 32
	return v, nil
}

// ReadHash reads a raw 32-byte word (bytes32): a pool id, position id
// or call-bundle hash depending on context.
func (r *Reader) ReadHash() (common.Hash, error) {
	if err := r.need(common.HashLength); err != nil {
		return common.Hash{}, err
	}
	var h common.Hash
	copy(h[:], r.buf[r.pos:r.pos+common.HashLength])
	r.pos += common.HashLength
	return h, nil
}

// ReadAddress reads a raw, unpadded 20-byte address.
func (r *Reader) ReadAddress() (common.Address, error) {
	if err := r.need(common.AddressLength); err != nil {
		return common.Address{}, err
	}
	var a common.Address
	copy(a[:], r.buf[r.pos:r.pos+common.AddressLength])
	r.pos += common.AddressLength
	return a, nil
}

// ReadSelector reads a 4-byte ABI function selector.
func (r *Reader) ReadSelector() (common.Selector, error) {
	if err := r.need(4); err != nil {
		return common.Selector{}, err
	}
	var s common.Selector
	copy(s[:], r.buf[r.pos:r.pos+4])
	r.pos += 4
	return s, nil
}

// ReadVec copies exactly n bytes after bounds-checking; it never reads
// past the requested length.
func (r *Reader) ReadVec(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrTruncated
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}
