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

// Package common holds the fixed-width wire types (addresses, 32-byte
// words) shared by the policy engine's decoder, oracle and envelope
// layers.
package common

import (
	"encoding/hex"
)

// AddressLength is the number of bytes in an Address.
const AddressLength = 20

// HashLength is the number of bytes in a Hash (a bare 32-byte word).
const HashLength = 32

// Address represents a raw 20-byte account/contract address. Unlike
// go-ethereum's common.Address, wire encoding is always exactly 20
// bytes with no padding.
type Address [AddressLength]byte

// Hash represents a raw 32-byte word: a bytes32 value, a call-bundle
// hash, a pool id or a position id, depending on context.
type Hash [HashLength]byte

// Selector is a 4-byte ABI function selector.
type Selector [4]byte

// BytesToAddress right-truncates/left-pads b into an Address. Decode
// paths use Reader.ReadAddress instead, and the install-data parser
// copies fixed-width slices directly.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// BytesToHash behaves like BytesToAddress for 32-byte words.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// IsZero reports whether the address is the all-zero sentinel used
// throughout the module to mean "unconfigured" / "uninstalled".
func (a Address) IsZero() bool {
	return a == Address{}
}

// Bytes returns a, as a freshly allocated slice.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLength)
	copy(b, a[:])
	return b
}

// Hex returns the 0x-prefixed lowercase hex encoding of a.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.Hex()
}

// Bytes returns h, as a freshly allocated slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// Hex returns the 0x-prefixed lowercase hex encoding of h.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}

// IsZero reports whether h is the all-zero word.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Bytes returns the selector bytes.
func (s Selector) Bytes() []byte {
	b := make([]byte, 4)
	copy(b, s[:])
	return b
}

// String renders the selector as 0x-prefixed hex, e.g. "0xa9059cbb".
func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}
