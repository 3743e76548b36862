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

package crypto

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// errInvalidRecoveryID is returned when Ecrecover is given a v byte that
// is not one of 0, 1, 27 or 28.
var errInvalidRecoveryID = errors.New("crypto: invalid recovery id")

// Ecrecover recovers the uncompressed public key bytes from a 32-byte
// digest and a 65-byte signature (r(32) || s(32) || v(1), v in
// {0,1,27,28}). It exists only for the in-process test harness that
// emulates the real chain's ecrecover precompile at address 0x01; the
// production oracle never calls this directly (see policy/runtime and
// policy/envelope).
func Ecrecover(digest []byte, sig []byte) ([]byte, error) {
	if len(digest) != 32 || len(sig) != 65 {
		return nil, errors.New("crypto: invalid input length")
	}
	v := sig[64]
	switch {
	case v == 27 || v == 28:
		v -= 27
	case v == 0 || v == 1:
		// already 0/1
	default:
		return nil, errInvalidRecoveryID
	}

	compact := make([]byte, 65)
	compact[0] = 27 + v
	copy(compact[1:33], sig[0:32])
	copy(compact[33:65], sig[32:64])

	pub, _, err := ecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return nil, err
	}
	return pub.SerializeUncompressed(), nil
}

// PubkeyToAddress derives the 20-byte address from an uncompressed
// secp256k1 public key (65 bytes, 0x04 prefix), following the same
// Keccak256(pubkey[1:])[12:] convention as go-ethereum.
func PubkeyToAddress(pub []byte) [20]byte {
	var addr [20]byte
	if len(pub) != 65 {
		return addr
	}
	h := Keccak256(pub[1:])
	copy(addr[:], h[12:])
	return addr
}

// SigToAddress recovers the signer address in one step; a convenience
// composition of Ecrecover and PubkeyToAddress for the test harness.
func SigToAddress(digest, sig []byte) ([20]byte, error) {
	pub, err := Ecrecover(digest, sig)
	if err != nil {
		return [20]byte{}, err
	}
	return PubkeyToAddress(pub), nil
}
