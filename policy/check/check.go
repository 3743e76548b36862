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

package check

import (
	"github.com/usherlabs/fiet-public/common"
	"github.com/holiman/uint256"
)

// MaxChecks bounds the number of checks a single program may decode
// into (spec §3: "hard cap MAX_CHECKS = 64").
const MaxChecks = 64

// Data is the payload of a single decoded check. The 15 check variants
// are modeled as 15 concrete types implementing this interface, the
// same shape the teacher uses for its transaction envelopes
// (core/types.TxData with LegacyTx/AccessListTx/DynamicFeeTx): one
// opcode, one concrete Go type, no shared mutable state.
type Data interface {
	// Opcode returns the wire opcode tag for this variant.
	Opcode() Opcode
}

// Check pairs a decoded Data payload with its source opcode, so callers
// that only care about dispatch (the evaluator) don't need a type
// assertion just to log or bound-check the opcode.
type Check struct {
	Op   Opcode
	Data Data
}

// Deadline: transaction must occur at or before a unix-seconds deadline.
type Deadline struct{ Deadline uint64 }

func (Deadline) Opcode() Opcode { return OpDeadline }

// Nonce is recognized but enforced by the controller, not the
// evaluator (spec §4.7, §9 Open Question).
type Nonce struct{ Expected *uint256.Int }

func (Nonce) Opcode() Opcode { return OpNonce }

// CallBundleHash is recognized but enforced by the controller.
type CallBundleHash struct{ Hash common.Hash }

func (CallBundleHash) Opcode() Opcode { return OpCallBundleHash }

// TokenAmountLte is recognized but fails closed in the evaluator:
// semantics require call-bundle parsing, which is out of scope.
type TokenAmountLte struct {
	Token common.Address
	Max   *uint256.Int
}

func (TokenAmountLte) Opcode() Opcode { return OpTokenAmountLte }

// NativeValueLte fails closed, see TokenAmountLte.
type NativeValueLte struct{ Max *uint256.Int }

func (NativeValueLte) Opcode() Opcode { return OpNativeValueLte }

// LiquidityDeltaLte fails closed, see TokenAmountLte. Its wire operand
// is a u128, widened to uint256.Int for uniform arithmetic.
type LiquidityDeltaLte struct{ Max *uint256.Int }

func (LiquidityDeltaLte) Opcode() Opcode { return OpLiquidityDeltaLte }

// Slot0TickBounds requires a pool's current tick to lie within [Min, Max].
type Slot0TickBounds struct {
	PoolID   common.Hash
	Min, Max int32
}

func (Slot0TickBounds) Opcode() Opcode { return OpSlot0TickBounds }

// Slot0SqrtPriceBounds requires a pool's current sqrt-price to lie
// within [Min, Max].
type Slot0SqrtPriceBounds struct {
	PoolID   common.Hash
	Min, Max *uint256.Int
}

func (Slot0SqrtPriceBounds) Opcode() Opcode { return OpSlot0SqrtPrice }

// RfsClosed requires a position's RFS lifecycle state to be closed.
type RfsClosed struct{ PositionID common.Hash }

func (RfsClosed) Opcode() Opcode { return OpRfsClosed }

// QueueLte requires a queued amount to be at most Max.
type QueueLte struct {
	Lcc, Owner common.Address
	Max        *uint256.Int
}

func (QueueLte) Opcode() Opcode { return OpQueueLte }

// ReserveGte requires a reserve to be at least Min.
type ReserveGte struct {
	Lcc common.Address
	Min *uint256.Int
}

func (ReserveGte) Opcode() Opcode { return OpReserveGte }

// SettledGte requires both settled amounts to be at least their minima.
type SettledGte struct {
	PositionID             common.Hash
	MinAmount0, MinAmount1 *uint256.Int
}

func (SettledGte) Opcode() Opcode { return OpSettledGte }

// CommitmentDeficitLte requires max(0, commitment_i - settled_i) <=
// MaxDeficit_i for i in {0,1}.
type CommitmentDeficitLte struct {
	PositionID               common.Hash
	MaxDeficit0, MaxDeficit1 *uint256.Int
}

func (CommitmentDeficitLte) Opcode() Opcode { return OpCommitmentDeficit }

// GracePeriodGte requires the remaining grace period to be at least
// MinSeconds, auto-passing when the oracle reports the "closed"
// sentinel (math.MaxUint64).
type GracePeriodGte struct {
	PositionID common.Hash
	MinSeconds uint64
}

func (GracePeriodGte) Opcode() Opcode { return OpGracePeriodGte }

// StaticCallU256 is the generic escape hatch: read a single u256 return
// word from an arbitrary allowlisted call and compare it to Rhs.
type StaticCallU256 struct {
	Target   common.Address
	Selector common.Selector
	Args     []byte
	Op       CompOp
	Rhs      *uint256.Int
}

func (StaticCallU256) Opcode() Opcode { return OpStaticCallU256 }
