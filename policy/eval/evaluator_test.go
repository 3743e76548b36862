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

package eval

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usherlabs/fiet-public/common"
	"github.com/usherlabs/fiet-public/policy/check"
	"github.com/usherlabs/fiet-public/policy/facts"
)

// stubOracle is a hand-wired facts.Oracle double: every method returns
// a field from this struct, or forcedErr if set, letting each test case
// script exactly the fact the check under test consumes.
type stubOracle struct {
	now         uint64
	slot0       facts.Slot0
	rfsClosed   bool
	queue       *uint256.Int
	reserve     *uint256.Int
	settled0    *uint256.Int
	settled1    *uint256.Int
	commitment0 *uint256.Int
	commitment1 *uint256.Int
	grace       uint64
	callResult  *uint256.Int
	forcedErr   error
}

func u256(v uint64) *uint256.Int { return new(uint256.Int).SetUint64(v) }

func (s *stubOracle) BlockTimestamp() uint64 { return s.now }
func (s *stubOracle) GetSlot0(common.Hash) (facts.Slot0, error) {
	return s.slot0, s.forcedErr
}
func (s *stubOracle) IsRfsClosed(common.Hash) (bool, error) { return s.rfsClosed, s.forcedErr }
func (s *stubOracle) QueueAmount(common.Address, common.Address) (*uint256.Int, error) {
	return s.queue, s.forcedErr
}
func (s *stubOracle) ReserveOf(common.Address) (*uint256.Int, error) {
	return s.reserve, s.forcedErr
}
func (s *stubOracle) GetSettledAmounts(common.Hash) (*uint256.Int, *uint256.Int, error) {
	return s.settled0, s.settled1, s.forcedErr
}
func (s *stubOracle) GetCommitmentMaxima(common.Hash) (*uint256.Int, *uint256.Int, error) {
	return s.commitment0, s.commitment1, s.forcedErr
}
func (s *stubOracle) GracePeriodRemaining(common.Hash) (uint64, error) {
	return s.grace, s.forcedErr
}
func (s *stubOracle) StaticCallU256(common.Address, common.Selector, []byte) (*uint256.Int, error) {
	return s.callResult, s.forcedErr
}

func TestEvaluateDeadlinePassesWhenNotExpired(t *testing.T) {
	o := &stubOracle{now: 100}
	checks := []check.Check{{Op: check.OpDeadline, Data: check.Deadline{Deadline: 100}}}
	assert.NoError(t, Evaluate(checks, o))
}

func TestEvaluateDeadlineFailsWhenExpired(t *testing.T) {
	o := &stubOracle{now: 101}
	checks := []check.Check{{Op: check.OpDeadline, Data: check.Deadline{Deadline: 100}}}
	err := Evaluate(checks, o)
	assert.ErrorIs(t, err, ErrDeadlineExpired)
}

func TestEvaluateNonceAndCallBundleHashAreNoOps(t *testing.T) {
	o := &stubOracle{}
	checks := []check.Check{
		{Op: check.OpNonce, Data: check.Nonce{Expected: u256(1)}},
		{Op: check.OpCallBundleHash, Data: check.CallBundleHash{}},
	}
	assert.NoError(t, Evaluate(checks, o))
}

func TestEvaluateTokenAmountLteFailsClosed(t *testing.T) {
	o := &stubOracle{}
	checks := []check.Check{{Op: check.OpTokenAmountLte, Data: check.TokenAmountLte{Max: u256(1)}}}
	err := Evaluate(checks, o)
	assert.ErrorIs(t, err, ErrUnsupportedCheck)
}

func TestEvaluateSlot0TickBoundsInRange(t *testing.T) {
	o := &stubOracle{slot0: facts.Slot0{SqrtPriceX96: u256(1), Tick: 0}}
	checks := []check.Check{{Op: check.OpSlot0TickBounds, Data: check.Slot0TickBounds{Min: -10, Max: 10}}}
	assert.NoError(t, Evaluate(checks, o))
}

func TestEvaluateSlot0TickBoundsOutOfRange(t *testing.T) {
	o := &stubOracle{slot0: facts.Slot0{Tick: 50}}
	checks := []check.Check{{Op: check.OpSlot0TickBounds, Data: check.Slot0TickBounds{Min: -10, Max: 10}}}
	err := Evaluate(checks, o)
	assert.ErrorIs(t, err, ErrTickOutOfBounds)
}

func TestEvaluateSlot0TickBoundsOracleErrorFailsClosed(t *testing.T) {
	o := &stubOracle{forcedErr: facts.ErrCallFailed}
	checks := []check.Check{{Op: check.OpSlot0TickBounds, Data: check.Slot0TickBounds{Min: -10, Max: 10}}}
	err := Evaluate(checks, o)
	assert.ErrorIs(t, err, ErrTickOutOfBounds)
}

func TestEvaluateRfsClosedRequiresClosed(t *testing.T) {
	o := &stubOracle{rfsClosed: false}
	checks := []check.Check{{Op: check.OpRfsClosed, Data: check.RfsClosed{}}}
	err := Evaluate(checks, o)
	assert.ErrorIs(t, err, ErrRfsNotClosed)

	o.rfsClosed = true
	assert.NoError(t, Evaluate(checks, o))
}

func TestEvaluateQueueLte(t *testing.T) {
	o := &stubOracle{queue: u256(100)}
	checks := []check.Check{{Op: check.OpQueueLte, Data: check.QueueLte{Max: u256(50)}}}
	assert.ErrorIs(t, Evaluate(checks, o), ErrQueueExceeded)

	checks[0].Data = check.QueueLte{Max: u256(100)}
	assert.NoError(t, Evaluate(checks, o))
}

func TestEvaluateReserveGte(t *testing.T) {
	o := &stubOracle{reserve: u256(10)}
	checks := []check.Check{{Op: check.OpReserveGte, Data: check.ReserveGte{Min: u256(20)}}}
	assert.ErrorIs(t, Evaluate(checks, o), ErrReserveTooLow)

	checks[0].Data = check.ReserveGte{Min: u256(10)}
	assert.NoError(t, Evaluate(checks, o))
}

func TestEvaluateSettledGte(t *testing.T) {
	o := &stubOracle{settled0: u256(5), settled1: u256(5)}
	checks := []check.Check{{Op: check.OpSettledGte, Data: check.SettledGte{MinAmount0: u256(10), MinAmount1: u256(1)}}}
	assert.ErrorIs(t, Evaluate(checks, o), ErrStaticCallFailed)
}

func TestEvaluateCommitmentDeficitLteSaturatesAtZero(t *testing.T) {
	// commitment < settled for both tokens -> deficit saturates to 0, passes.
	o := &stubOracle{
		commitment0: u256(5), commitment1: u256(5),
		settled0: u256(10), settled1: u256(10),
	}
	checks := []check.Check{{Op: check.OpCommitmentDeficit, Data: check.CommitmentDeficitLte{MaxDeficit0: u256(0), MaxDeficit1: u256(0)}}}
	assert.NoError(t, Evaluate(checks, o))
}

func TestEvaluateCommitmentDeficitLteExceeded(t *testing.T) {
	o := &stubOracle{
		commitment0: u256(100), commitment1: u256(0),
		settled0: u256(0), settled1: u256(0),
	}
	checks := []check.Check{{Op: check.OpCommitmentDeficit, Data: check.CommitmentDeficitLte{MaxDeficit0: u256(10), MaxDeficit1: u256(0)}}}
	assert.ErrorIs(t, Evaluate(checks, o), ErrStaticCallFailed)
}

func TestEvaluateGracePeriodGteAutoPassesOnClosedSentinel(t *testing.T) {
	o := &stubOracle{grace: facts.GraceClosed}
	checks := []check.Check{{Op: check.OpGracePeriodGte, Data: check.GracePeriodGte{MinSeconds: 1_000_000}}}
	assert.NoError(t, Evaluate(checks, o))
}

func TestEvaluateGracePeriodGteFailsWhenBelowMinimum(t *testing.T) {
	o := &stubOracle{grace: 10}
	checks := []check.Check{{Op: check.OpGracePeriodGte, Data: check.GracePeriodGte{MinSeconds: 100}}}
	assert.ErrorIs(t, Evaluate(checks, o), ErrStaticCallFailed)
}

func TestEvaluateStaticCallU256Comparators(t *testing.T) {
	o := &stubOracle{callResult: u256(50)}
	pass := []check.Check{{Op: check.OpStaticCallU256, Data: check.StaticCallU256{Op: check.CompGte, Rhs: u256(50)}}}
	assert.NoError(t, Evaluate(pass, o))

	fail := []check.Check{{Op: check.OpStaticCallU256, Data: check.StaticCallU256{Op: check.CompGt, Rhs: u256(50)}}}
	assert.ErrorIs(t, Evaluate(fail, o), ErrStaticCallFailed)
}

func TestEvaluateStopsAtFirstFailure(t *testing.T) {
	o := &stubOracle{now: 200}
	checks := []check.Check{
		{Op: check.OpDeadline, Data: check.Deadline{Deadline: 100}},
		{Op: check.OpReserveGte, Data: check.ReserveGte{Min: u256(1)}},
	}
	err := Evaluate(checks, o)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeadlineExpired)
}
