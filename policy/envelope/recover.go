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

package envelope

import (
	"errors"

	"github.com/usherlabs/fiet-public/common"
	"github.com/usherlabs/fiet-public/policy/runtime"
)

// ErrRecoveryFailed covers every way recovery can fail: the precompile
// call erroring, every v candidate producing the zero address, or a
// malformed return word.
var ErrRecoveryFailed = errors.New("envelope: signature recovery failed")

// vCandidates returns the ecrecover v bytes to try for a raw v byte, in
// the same order and fallback behavior as the reference ecrecover
// wrapper: a recognized {27,28} or {0,1} value yields exactly one
// candidate (normalized to {27,28}); any other value means v was not
// usable, so both 27 and 28 are tried.
func vCandidates(vRaw byte) []byte {
	switch vRaw {
	case 27, 28:
		return []byte{vRaw}
	case 0, 1:
		return []byte{vRaw + 27}
	default:
		return []byte{27, 28}
	}
}

// Recover recovers the signer address committed to sig over digest by
// calling the ecrecover precompile through caller, trying every
// plausible v candidate in turn and accepting the first one that
// yields a non-zero address (spec §4.6).
func Recover(caller runtime.StaticCaller, digest common.Hash, sig [65]byte) (common.Address, error) {
	r := sig[0:32]
	s := sig[32:64]
	vRaw := sig[64]

	for _, v := range vCandidates(vRaw) {
		input := make([]byte, 128)
		copy(input[0:32], digest[:])
		input[63] = v
		copy(input[64:96], r)
		copy(input[96:128], s)

		out, err := caller.StaticCall(runtime.EcrecoverAddress, input, runtime.RecoveryCallGasCap)
		if err != nil || len(out) < 32 {
			continue
		}
		var recovered common.Address
		copy(recovered[:], out[12:32])
		if !recovered.IsZero() {
			return recovered, nil
		}
	}
	return common.Address{}, ErrRecoveryFailed
}
