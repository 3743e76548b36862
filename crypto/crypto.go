// Copyright 2014 The go-ethereum Authors
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

// Package crypto wraps the Keccak hash and secp256k1 recovery primitives
// the envelope digest builder and the test harness's emulated ecrecover
// precompile need.
package crypto

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

// DigestLength is the exact length of a Keccak256 digest.
const DigestLength = 32

// KeccakState wraps sha3.state: in addition to the usual hash.Hash
// methods it supports Read to pull bytes without copying internal
// state, matching the shape of the teacher's crypto.go KeccakState.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// NewKeccakState creates a Keccak256 sponge in KeccakState form.
func NewKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// HashData resets kh, hashes data with it and returns the 32-byte
// digest; any state previously written to kh is discarded.
func HashData(kh KeccakState, data []byte) (h [32]byte) {
	kh.Reset()
	kh.Write(data)
	kh.Read(h[:])
	return h
}

// Keccak256 returns the Keccak-256 digest of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	b := make([]byte, DigestLength)
	d := NewKeccakState()
	for _, chunk := range data {
		d.Write(chunk)
	}
	d.Read(b)
	return b
}

// Keccak256Hash is Keccak256 with the result already boxed as a [32]byte.
func Keccak256Hash(data ...[]byte) (h [32]byte) {
	d := NewKeccakState()
	for _, chunk := range data {
		d.Write(chunk)
	}
	d.Read(h[:])
	return h
}

// Selector4 returns the first 4 bytes of the Keccak-256 hash of the
// canonical ASCII function signature, e.g. "getSlot0(bytes32)". This is
// the exact derivation the oracle's construction-time allowlist (§4.4)
// uses to turn human-readable signatures into wire selectors.
func Selector4(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], Keccak256([]byte(signature))[:4])
	return sel
}
