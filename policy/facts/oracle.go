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

// Package facts defines the Oracle abstraction the evaluator queries for
// live on-chain state, and the one production implementation that
// backs it with allowlisted, gas-capped staticcalls. Every call can
// fail; every failure the evaluator sees is folded into the same
// fail-closed rejection a policy violation would produce (spec §4.4,
// §4.8).
package facts

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/usherlabs/fiet-public/common"
)

// ErrNotImplemented marks a query a particular Oracle deliberately does
// not support; Onchain never returns it.
var ErrNotImplemented = errors.New("facts: not implemented")

// ErrCallFailed is returned when the underlying staticcall reverts or
// the runtime otherwise cannot produce a result.
var ErrCallFailed = errors.New("facts: call failed")

// ErrMalformedReturn is returned when a call succeeds but its return
// data is shorter than the ABI layout the query expects.
var ErrMalformedReturn = errors.New("facts: malformed return data")

// ForbiddenCallError reports a staticcall attempted against a
// (target, selector) pair outside the oracle's construction-time
// allowlist. It carries the rejected pair for diagnostics.
type ForbiddenCallError struct {
	Target   common.Address
	Selector common.Selector
}

func (e *ForbiddenCallError) Error() string {
	return fmt.Sprintf("facts: call to %s selector %s not allowlisted", e.Target.Hex(), e.Selector.String())
}

// GraceClosed is the sentinel grace_period_remaining returns when a
// position's RFS checkpoint is not open: the grace period does not
// apply, so callers must treat it as infinitely far from expiry.
const GraceClosed = ^uint64(0)

// Slot0 is a Uniswap v4 pool's current price/tick/fee snapshot, as
// returned by StateView.getSlot0.
type Slot0 struct {
	SqrtPriceX96          *uint256.Int
	Tick                  int32
	ProtocolFee, LPFee    uint32
}

// Oracle is the fact source the evaluator queries. Every method can
// fail; callers must treat any error as a policy rejection, never as
// infrastructure noise to retry or ignore (spec §4.8).
type Oracle interface {
	// BlockTimestamp returns the current block's unix-seconds timestamp.
	BlockTimestamp() uint64

	GetSlot0(poolID common.Hash) (Slot0, error)
	IsRfsClosed(positionID common.Hash) (bool, error)
	QueueAmount(lcc, owner common.Address) (*uint256.Int, error)
	ReserveOf(lcc common.Address) (*uint256.Int, error)
	GetSettledAmounts(positionID common.Hash) (amount0, amount1 *uint256.Int, err error)
	GetCommitmentMaxima(positionID common.Hash) (commitment0, commitment1 *uint256.Int, err error)

	// GracePeriodRemaining returns seconds remaining until a position's
	// grace period expires, or GraceClosed if the RFS checkpoint isn't
	// open (the concept doesn't apply).
	GracePeriodRemaining(positionID common.Hash) (uint64, error)

	// StaticCallU256 executes the StaticCallU256 check's generic
	// escape-hatch call and decodes its first return word as a u256.
	StaticCallU256(target common.Address, selector common.Selector, args []byte) (*uint256.Int, error)
}
