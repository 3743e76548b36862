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

// Package math holds the left-zero-padding helpers the digest builder
// needs to place scalars into 32-byte ABI words, mirroring the role of
// the teacher's common/math package inside crypto.go.
package math

// PaddedTo32 left-pads b with zero bytes to reach exactly 32 bytes. If b
// is already 32 bytes or longer, only the trailing 32 bytes are kept
// (callers never pass oversized input in this module, but the
// truncation keeps the function total rather than panicking).
func PaddedTo32(b []byte) [32]byte {
	var out [32]byte
	if len(b) >= 32 {
		copy(out[:], b[len(b)-32:])
		return out
	}
	copy(out[32-len(b):], b)
	return out
}

// PaddedAddress32 left-pads a 20-byte address into a 32-byte ABI word
// (12 zero bytes followed by the address), the convention used
// throughout the envelope digest and the oracle's call-argument
// encoding.
func PaddedAddress32(addr [20]byte) [32]byte {
	var out [32]byte
	copy(out[12:], addr[:])
	return out
}
