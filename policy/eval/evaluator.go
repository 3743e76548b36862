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

// Package eval runs a decoded check program straight through against an
// Oracle, stopping at the first violated or unevaluable check. Nonce
// and CallBundleHash are recognized opcodes the evaluator does not
// enforce itself — the controller binds those against its own storage
// and the UserOp's call data before or after this pass runs (spec
// §4.7, §9).
package eval

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/usherlabs/fiet-public/log"
	"github.com/usherlabs/fiet-public/policy/check"
	"github.com/usherlabs/fiet-public/policy/facts"
)

// ErrDeadlineExpired is returned when the current block timestamp is
// past a Deadline check's limit.
var ErrDeadlineExpired = errors.New("eval: deadline expired")

// ErrUnsupportedCheck is returned for opcodes the evaluator recognizes
// but cannot enforce without context this engine does not have (call
// bundle parsing). Per the fail-closed principle this rejects the
// transaction rather than skipping the check.
var ErrUnsupportedCheck = errors.New("eval: unsupported check")

// ErrTickOutOfBounds is returned when a pool's tick falls outside a
// Slot0TickBounds check's range, or the oracle query itself fails.
var ErrTickOutOfBounds = errors.New("eval: tick out of bounds")

// ErrPriceOutOfBounds is returned when a pool's sqrt price falls
// outside a Slot0SqrtPriceBounds check's range, or the query fails.
var ErrPriceOutOfBounds = errors.New("eval: price out of bounds")

// ErrRfsNotClosed is returned when an RfsClosed check's position is
// still open, or the query fails.
var ErrRfsNotClosed = errors.New("eval: rfs position not closed")

// ErrQueueExceeded is returned when a QueueLte check's queued amount
// exceeds its maximum, or the query fails.
var ErrQueueExceeded = errors.New("eval: queue amount exceeded")

// ErrReserveTooLow is returned when a ReserveGte check's reserve falls
// below its minimum, or the query fails.
var ErrReserveTooLow = errors.New("eval: reserve too low")

// ErrStaticCallFailed covers every remaining oracle-backed check that
// either failed its comparison or failed to resolve: settled amounts,
// commitment deficit, grace period, and the generic StaticCallU256
// escape hatch all report through this single sentinel, matching the
// source program's flat ValidationError::StaticCallFailed variant.
var ErrStaticCallFailed = errors.New("eval: static call check failed")

// Evaluate runs every check in order against oracle, returning the
// first violation encountered. A nil error means every enforceable
// check passed.
func Evaluate(checks []check.Check, oracle facts.Oracle) error {
	for _, c := range checks {
		if err := evaluateOne(c, oracle); err != nil {
			log.Debug("eval: check failed", "opcode", c.Op, "err", err)
			return err
		}
	}
	return nil
}

func evaluateOne(c check.Check, oracle facts.Oracle) error {
	switch d := c.Data.(type) {
	case check.Deadline:
		if oracle.BlockTimestamp() > d.Deadline {
			return ErrDeadlineExpired
		}
		return nil

	// Nonce and CallBundleHash are recognized but deliberately no-ops
	// here: the controller checks both against its stored nonce and the
	// UserOp's call data, and both are covered by the envelope digest.
	case check.Nonce:
		return nil

	case check.CallBundleHash:
		return nil

	case check.TokenAmountLte, check.NativeValueLte, check.LiquidityDeltaLte:
		return ErrUnsupportedCheck

	case check.Slot0TickBounds:
		slot0, err := oracle.GetSlot0(d.PoolID)
		if err != nil {
			return ErrTickOutOfBounds
		}
		if slot0.Tick < d.Min || slot0.Tick > d.Max {
			return ErrTickOutOfBounds
		}
		return nil

	case check.Slot0SqrtPriceBounds:
		slot0, err := oracle.GetSlot0(d.PoolID)
		if err != nil {
			return ErrPriceOutOfBounds
		}
		if slot0.SqrtPriceX96.Lt(d.Min) || slot0.SqrtPriceX96.Gt(d.Max) {
			return ErrPriceOutOfBounds
		}
		return nil

	case check.RfsClosed:
		closed, err := oracle.IsRfsClosed(d.PositionID)
		if err != nil {
			return ErrRfsNotClosed
		}
		if !closed {
			return ErrRfsNotClosed
		}
		return nil

	case check.QueueLte:
		queued, err := oracle.QueueAmount(d.Lcc, d.Owner)
		if err != nil {
			return ErrQueueExceeded
		}
		if queued.Gt(d.Max) {
			return ErrQueueExceeded
		}
		return nil

	case check.ReserveGte:
		reserve, err := oracle.ReserveOf(d.Lcc)
		if err != nil {
			return ErrReserveTooLow
		}
		if reserve.Lt(d.Min) {
			return ErrReserveTooLow
		}
		return nil

	case check.SettledGte:
		amount0, amount1, err := oracle.GetSettledAmounts(d.PositionID)
		if err != nil {
			return ErrStaticCallFailed
		}
		if amount0.Lt(d.MinAmount0) || amount1.Lt(d.MinAmount1) {
			return ErrStaticCallFailed
		}
		return nil

	case check.CommitmentDeficitLte:
		commitment0, commitment1, err := oracle.GetCommitmentMaxima(d.PositionID)
		if err != nil {
			return ErrStaticCallFailed
		}
		settled0, settled1, err := oracle.GetSettledAmounts(d.PositionID)
		if err != nil {
			return ErrStaticCallFailed
		}
		deficit0 := saturatingSub(commitment0, settled0)
		deficit1 := saturatingSub(commitment1, settled1)
		if deficit0.Gt(d.MaxDeficit0) || deficit1.Gt(d.MaxDeficit1) {
			return ErrStaticCallFailed
		}
		return nil

	case check.GracePeriodGte:
		remaining, err := oracle.GracePeriodRemaining(d.PositionID)
		if err != nil {
			return ErrStaticCallFailed
		}
		if remaining != facts.GraceClosed && remaining < d.MinSeconds {
			return ErrStaticCallFailed
		}
		return nil

	case check.StaticCallU256:
		lhs, err := oracle.StaticCallU256(d.Target, d.Selector, d.Args)
		if err != nil {
			return ErrStaticCallFailed
		}
		if !compare(lhs, d.Op, d.Rhs) {
			return ErrStaticCallFailed
		}
		return nil

	default:
		return ErrUnsupportedCheck
	}
}

func saturatingSub(a, b *uint256.Int) *uint256.Int {
	if a.Gt(b) {
		var out uint256.Int
		out.Sub(a, b)
		return &out
	}
	return new(uint256.Int)
}

func compare(lhs *uint256.Int, op check.CompOp, rhs *uint256.Int) bool {
	switch op {
	case check.CompLt:
		return lhs.Lt(rhs)
	case check.CompLte:
		return lhs.Lt(rhs) || lhs.Eq(rhs)
	case check.CompGt:
		return lhs.Gt(rhs)
	case check.CompGte:
		return lhs.Gt(rhs) || lhs.Eq(rhs)
	case check.CompEq:
		return lhs.Eq(rhs)
	case check.CompNeq:
		return !lhs.Eq(rhs)
	default:
		return false
	}
}
