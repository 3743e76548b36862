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

// Package runtime models the narrow slice of chain-runtime behavior the
// policy module depends on: a gas-metered staticcall primitive and the
// fixed address of the ecrecover precompile. A real deployment backs
// StaticCaller with the host chain's own call dispatch (the module
// executes inside the account's context, it never makes an RPC call);
// the in-process EmulatedRuntime backs the same interface for tests.
package runtime

import (
	"errors"

	"github.com/usherlabs/fiet-public/common"
	"github.com/usherlabs/fiet-public/crypto"
)

// ErrOutOfGas is returned by a StaticCaller when a call would exceed
// its gas ceiling before completing.
var ErrOutOfGas = errors.New("runtime: out of gas")

// ErrCallReverted is returned when the callee staticcall reverts.
var ErrCallReverted = errors.New("runtime: call reverted")

// EcrecoverAddress is the fixed precompile address (0x01) the digest
// recovery step targets, matching every EVM chain's precompile table.
var EcrecoverAddress = common.Address{19: 0x01}

// OracleCallGasCap bounds a single fact-oracle staticcall (spec §4.4):
// generous enough for a simple view function, small enough that a
// malicious target cannot grief the validator with unbounded work.
const OracleCallGasCap = 200_000

// RecoveryCallGasCap bounds the ecrecover precompile staticcall used by
// the envelope signature check (spec §4.6).
const RecoveryCallGasCap = 50_000

// StaticCaller performs a gas-metered, state-read-only call to target
// and returns its raw return data. Implementations must never mutate
// state and must enforce gasLimit themselves.
type StaticCaller interface {
	StaticCall(target common.Address, input []byte, gasLimit uint64) ([]byte, error)
}

// EmulatedRuntime is a StaticCaller backed by an in-process function
// table, standing in for the host chain in tests. It resolves the
// ecrecover precompile itself and otherwise looks up target in
// Contracts. gasLimit is checked only for the ecrecover precompile;
// Contracts handlers run without any gas metering.
type EmulatedRuntime struct {
	// Contracts maps a target address to a handler that decodes input
	// as selector(4) || args and returns ABI-encoded output.
	Contracts map[common.Address]func(input []byte) ([]byte, error)
}

// NewEmulatedRuntime constructs an EmulatedRuntime with an empty
// contract table; callers populate Contracts directly.
func NewEmulatedRuntime() *EmulatedRuntime {
	return &EmulatedRuntime{Contracts: make(map[common.Address]func([]byte) ([]byte, error))}
}

// StaticCall dispatches to the ecrecover precompile when target is
// EcrecoverAddress, otherwise to the registered contract handler.
func (r *EmulatedRuntime) StaticCall(target common.Address, input []byte, gasLimit uint64) ([]byte, error) {
	if target == EcrecoverAddress {
		return ecrecoverPrecompile(input, gasLimit)
	}
	fn, ok := r.Contracts[target]
	if !ok {
		return nil, ErrCallReverted
	}
	return fn(input)
}

// ecrecoverPrecompile emulates the standard 0x01 precompile's calling
// convention: a 128-byte input (digest || v-as-32-byte-word || r || s)
// produces a 32-byte output with the recovered address right-aligned,
// or 32 zero bytes on any recovery failure.
func ecrecoverPrecompile(input []byte, gasLimit uint64) ([]byte, error) {
	if gasLimit < RecoveryCallGasCap {
		return nil, ErrOutOfGas
	}
	out := make([]byte, 32)
	if len(input) < 128 {
		return out, nil
	}
	digest := input[0:32]
	vWord := input[32:64]
	r := input[64:96]
	s := input[96:128]

	v := vWord[31]
	for i := 0; i < 31; i++ {
		if vWord[i] != 0 {
			return out, nil
		}
	}

	sig := make([]byte, 65)
	copy(sig[0:32], r)
	copy(sig[32:64], s)
	sig[64] = v

	pub, err := crypto.Ecrecover(digest, sig)
	if err != nil {
		return out, nil
	}
	addr := crypto.PubkeyToAddress(pub)
	copy(out[12:32], addr[:])
	return out, nil
}
