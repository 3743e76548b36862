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

package facts

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"

	"github.com/usherlabs/fiet-public/common"
	"github.com/usherlabs/fiet-public/crypto"
	"github.com/usherlabs/fiet-public/log"
	"github.com/usherlabs/fiet-public/policy/runtime"
)

// allowKey is the allowlist element: a (target, selector) pair, kept as
// a comparable value so it can live in a golang-set Set.
type allowKey struct {
	target   common.Address
	selector common.Selector
}

// Sources names the three per-wallet contracts the validator is
// allowed to query (spec §4.4): the pool price view, the VTS
// orchestrator tracking RFS positions, and the liquidity hub tracking
// reserves and settlement queues.
type Sources struct {
	StateView        common.Address
	VTSOrchestrator  common.Address
	LiquidityHub     common.Address
}

// Onchain is the production Oracle: every query is a gas-capped
// staticcall through a runtime.StaticCaller, restricted to a fixed
// allowlist computed once at construction time.
type Onchain struct {
	sources   Sources
	caller    runtime.StaticCaller
	gasCap    uint64
	now       uint64
	allowlist mapset.Set[allowKey]
}

// NewOnchain builds an Onchain oracle for a given caller/sources tuple,
// fixing block timestamp now and the per-call gas cap at construction
// time as an immutable snapshot of the world the evaluation runs
// against.
func NewOnchain(caller runtime.StaticCaller, sources Sources, gasCap, now uint64) *Onchain {
	allow := mapset.NewSet[allowKey]()
	allow.Add(allowKey{sources.StateView, crypto.Selector4("getSlot0(bytes32)")})
	allow.Add(allowKey{sources.VTSOrchestrator, crypto.Selector4("positionToCheckpoint(bytes32)")})
	allow.Add(allowKey{sources.VTSOrchestrator, crypto.Selector4("getPositionSettledAmounts(bytes32)")})
	allow.Add(allowKey{sources.VTSOrchestrator, crypto.Selector4("getCommitmentMaxima(bytes32)")})
	allow.Add(allowKey{sources.VTSOrchestrator, crypto.Selector4("getPosition(bytes32)")})
	allow.Add(allowKey{sources.VTSOrchestrator, crypto.Selector4("getPool(bytes32)")})
	allow.Add(allowKey{sources.LiquidityHub, crypto.Selector4("reserveOfUnderlying(address)")})
	allow.Add(allowKey{sources.LiquidityHub, crypto.Selector4("settleQueue(address,address)")})

	return &Onchain{
		sources:   sources,
		caller:    caller,
		gasCap:    gasCap,
		now:       now,
		allowlist: allow,
	}
}

func (o *Onchain) staticcall(target common.Address, selector common.Selector, args []byte) ([]byte, error) {
	if !o.allowlist.Contains(allowKey{target, selector}) {
		log.Warn("facts: rejected non-allowlisted call", "target", target.Hex(), "selector", selector.String())
		return nil, &ForbiddenCallError{Target: target, Selector: selector}
	}
	input := make([]byte, 0, 4+len(args))
	input = append(input, selector[:]...)
	input = append(input, args...)

	out, err := o.caller.StaticCall(target, input, o.gasCap)
	if err != nil {
		return nil, ErrCallFailed
	}
	return out, nil
}

func word32(addr common.Address) []byte {
	var w [32]byte
	copy(w[12:32], addr[:])
	return w[:]
}

// BlockTimestamp returns the timestamp this oracle was constructed
// with, snapshotting "now" for the duration of a single evaluation.
func (o *Onchain) BlockTimestamp() uint64 { return o.now }

// GetSlot0 reads a Uniswap v4 pool's current price/tick/fee state.
// Return layout: (uint160 sqrtPriceX96, int24 tick, uint24 protocolFee,
// uint24 lpFee) — four right-aligned 32-byte words.
func (o *Onchain) GetSlot0(poolID common.Hash) (Slot0, error) {
	out, err := o.staticcall(o.sources.StateView, crypto.Selector4("getSlot0(bytes32)"), poolID[:])
	if err != nil {
		return Slot0{}, err
	}
	if len(out) < 32*4 {
		return Slot0{}, ErrMalformedReturn
	}
	return Slot0{
		SqrtPriceX96: new(uint256.Int).SetBytes(out[0:32]),
		Tick:         decodeI24(out[32:64]),
		ProtocolFee:  decodeU24(out[64:96]),
		LPFee:        decodeU24(out[96:128]),
	}, nil
}

// IsRfsClosed reports whether a position's RFS checkpoint has closed.
// positionToCheckpoint returns (uint256 timeOfLastTransition, bool
// isOpen, uint256 graceExt0, uint256 graceExt1); closed is the negation
// of the isOpen word.
func (o *Onchain) IsRfsClosed(positionID common.Hash) (bool, error) {
	out, err := o.staticcall(o.sources.VTSOrchestrator, crypto.Selector4("positionToCheckpoint(bytes32)"), positionID[:])
	if err != nil {
		return false, err
	}
	if len(out) < 32*4 {
		return false, ErrMalformedReturn
	}
	isOpen := !isZeroWord(out[32:64])
	return !isOpen, nil
}

// QueueAmount reads the amount lcc owner has queued for settlement.
func (o *Onchain) QueueAmount(lcc, owner common.Address) (*uint256.Int, error) {
	args := make([]byte, 0, 64)
	args = append(args, word32(lcc)...)
	args = append(args, word32(owner)...)
	out, err := o.staticcall(o.sources.LiquidityHub, crypto.Selector4("settleQueue(address,address)"), args)
	if err != nil {
		return nil, err
	}
	if len(out) < 32 {
		return nil, ErrMalformedReturn
	}
	return new(uint256.Int).SetBytes(out[0:32]), nil
}

// ReserveOf reads lcc's underlying reserve balance.
func (o *Onchain) ReserveOf(lcc common.Address) (*uint256.Int, error) {
	out, err := o.staticcall(o.sources.LiquidityHub, crypto.Selector4("reserveOfUnderlying(address)"), word32(lcc))
	if err != nil {
		return nil, err
	}
	if len(out) < 32 {
		return nil, ErrMalformedReturn
	}
	return new(uint256.Int).SetBytes(out[0:32]), nil
}

// GetSettledAmounts reads the two settled token amounts for a position.
func (o *Onchain) GetSettledAmounts(positionID common.Hash) (*uint256.Int, *uint256.Int, error) {
	out, err := o.staticcall(o.sources.VTSOrchestrator, crypto.Selector4("getPositionSettledAmounts(bytes32)"), positionID[:])
	if err != nil {
		return nil, nil, err
	}
	if len(out) < 32*2 {
		return nil, nil, ErrMalformedReturn
	}
	return new(uint256.Int).SetBytes(out[0:32]), new(uint256.Int).SetBytes(out[32:64]), nil
}

// GetCommitmentMaxima reads the two commitment-maxima operands for a
// position's deficit check.
func (o *Onchain) GetCommitmentMaxima(positionID common.Hash) (*uint256.Int, *uint256.Int, error) {
	out, err := o.staticcall(o.sources.VTSOrchestrator, crypto.Selector4("getCommitmentMaxima(bytes32)"), positionID[:])
	if err != nil {
		return nil, nil, err
	}
	if len(out) < 32*2 {
		return nil, nil, ErrMalformedReturn
	}
	return new(uint256.Int).SetBytes(out[0:32]), new(uint256.Int).SetBytes(out[32:64]), nil
}

// GracePeriodRemaining derives the seconds remaining before a position's
// grace period expires. It chains three staticcalls: the checkpoint
// (to learn whether RFS is open and the per-token grace extensions),
// the position (to learn the pool id), and the pool (to learn the
// base grace period per token). If the checkpoint isn't open the
// concept doesn't apply and GraceClosed is returned.
func (o *Onchain) GracePeriodRemaining(positionID common.Hash) (uint64, error) {
	checkpoint, err := o.staticcall(o.sources.VTSOrchestrator, crypto.Selector4("positionToCheckpoint(bytes32)"), positionID[:])
	if err != nil {
		return 0, err
	}
	if len(checkpoint) < 32*4 {
		return 0, ErrMalformedReturn
	}
	timeOfLastTransition := new(uint256.Int).SetBytes(checkpoint[0:32])
	isOpen := !isZeroWord(checkpoint[32:64])
	if !isOpen {
		return GraceClosed, nil
	}
	graceExt0 := new(uint256.Int).SetBytes(checkpoint[64:96])
	graceExt1 := new(uint256.Int).SetBytes(checkpoint[96:128])

	position, err := o.staticcall(o.sources.VTSOrchestrator, crypto.Selector4("getPosition(bytes32)"), positionID[:])
	if err != nil {
		return 0, err
	}
	if len(position) < 64 {
		return 0, ErrMalformedReturn
	}
	var poolID common.Hash
	copy(poolID[:], position[32:64])

	pool, err := o.staticcall(o.sources.VTSOrchestrator, crypto.Selector4("getPool(bytes32)"), poolID[:])
	if err != nil {
		return 0, err
	}
	if len(pool) < 32*14 {
		return 0, ErrMalformedReturn
	}
	grace0 := new(uint256.Int).SetBytes(pool[32*3 : 32*4])
	grace1 := new(uint256.Int).SetBytes(pool[32*7 : 32*8])

	now := new(uint256.Int).SetUint64(o.now)
	var elapsed uint256.Int
	if now.Gt(timeOfLastTransition) {
		elapsed.Sub(now, timeOfLastTransition)
	}

	var total0, total1 uint256.Int
	total0.Add(grace0, graceExt0)
	total1.Add(grace1, graceExt1)
	earliest := &total0
	if total1.Lt(&total0) {
		earliest = &total1
	}

	var remaining uint256.Int
	if earliest.Gt(&elapsed) {
		remaining.Sub(earliest, &elapsed)
	}

	maxU64 := new(uint256.Int).SetUint64(^uint64(0))
	if remaining.Gt(maxU64) {
		return GraceClosed, nil
	}
	return remaining.Uint64(), nil
}

// StaticCallU256 executes an arbitrary allowlisted call and decodes its
// first return word as a u256, for the StaticCallU256 escape hatch.
func (o *Onchain) StaticCallU256(target common.Address, selector common.Selector, args []byte) (*uint256.Int, error) {
	out, err := o.staticcall(target, selector, args)
	if err != nil {
		return nil, err
	}
	if len(out) < 32 {
		return nil, ErrMalformedReturn
	}
	return new(uint256.Int).SetBytes(out[0:32]), nil
}

func isZeroWord(w []byte) bool {
	for _, b := range w {
		if b != 0 {
			return false
		}
	}
	return true
}

func decodeU24(word []byte) uint32 {
	b := word[29:32]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func decodeI24(word []byte) int32 {
	b := word[29:32]
	v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
	if v&(1<<23) != 0 {
		v |= ^0 << 24
	}
	return v
}
