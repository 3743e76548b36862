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

// Package envelope parses and authenticates the policy-local signature
// slice Kernel's permission pipeline hands to checkUserOpPolicy. The
// slice is unrelated to the UserOp's own signature: it is this policy's
// own envelope, binding a nonce, a deadline, a call-bundle hash and a
// check program together under a single EIP-712-style digest (spec
// §4.5, §4.6).
package envelope

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/usherlabs/fiet-public/common"
	"github.com/usherlabs/fiet-public/policy/bytecode"
)

// ErrTooShort is returned when the signature slice is shorter than the
// fixed-width prefix every envelope must carry.
var ErrTooShort = errors.New("envelope: input too short")

// ErrBadSignatureLength is returned when the envelope's declared
// signature length is not exactly 65 bytes (r || s || v).
var ErrBadSignatureLength = errors.New("envelope: signature must be 65 bytes")

// ErrTrailingBytes is returned when bytes remain after the signature
// field; the envelope format has no trailer (spec §5: reject trailing
// bytes for determinism).
var ErrTrailingBytes = errors.New("envelope: trailing bytes after signature")

// minLen is the fixed-width prefix before the variable-length program
// and signature fields: u16 version + bytes32 nonce + u64 deadline +
// bytes32 call bundle hash + u32 program length.
const minLen = 2 + 32 + 8 + 32 + 4

// Intent is the parsed policy-local envelope (v1).
type Intent struct {
	Version        uint16
	Nonce          *uint256.Int
	Deadline       uint64
	CallBundleHash common.Hash
	ProgramBytes   []byte
	Signature      [65]byte
}

// Parse decodes sig into an Intent. Layout, all integers big-endian:
//
//	u16   version
//	u256  nonce
//	u64   deadline
//	b32   call_bundle_hash
//	u32   program_len
//	bytes program_bytes (program_len bytes)
//	u16   sig_len (must be 65)
//	bytes signature (sig_len bytes, r||s||v)
//
// No bytes may remain after the signature field.
func Parse(sig []byte) (*Intent, error) {
	if len(sig) < minLen+2 {
		return nil, ErrTooShort
	}
	r := bytecode.NewReader(sig)

	version, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	nonce, err := r.ReadU256()
	if err != nil {
		return nil, err
	}
	deadline, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	callBundleHash, err := r.ReadHash()
	if err != nil {
		return nil, err
	}
	programLen, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	programBytes, err := r.ReadVec(int(programLen))
	if err != nil {
		return nil, err
	}
	sigLen, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	if sigLen != 65 {
		return nil, ErrBadSignatureLength
	}
	sigBytes, err := r.ReadVec(int(sigLen))
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, ErrTrailingBytes
	}

	var intent Intent
	intent.Version = version
	intent.Nonce = nonce
	intent.Deadline = deadline
	intent.CallBundleHash = callBundleHash
	intent.ProgramBytes = programBytes
	copy(intent.Signature[:], sigBytes)
	return &intent, nil
}
