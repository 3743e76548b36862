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
	"errors"
	"fmt"

	"github.com/usherlabs/fiet-public/policy/bytecode"
)

var (
	// ErrTooManyChecks is returned when a program would decode into more
	// than MaxChecks checks. The cap is enforced before the offending
	// check is decoded, so a truncated or malformed tail past the limit
	// never gets parsed at all.
	ErrTooManyChecks = errors.New("check: program exceeds MAX_CHECKS")

	// ErrUnknownOpcode is returned when a leading byte does not match
	// any entry in the opcode table.
	ErrUnknownOpcode = errors.New("check: unknown opcode")

	// ErrBadCompOp is returned when a StaticCallU256 check's comparator
	// byte is outside the 0-5 range CompOpFromByte accepts.
	ErrBadCompOp = errors.New("check: invalid comparator")
)

// Decode parses buf into a bounded slice of Checks. Checks are decoded
// strictly in wire order starting at offset 0; trailing bytes after the
// last opcode are an error, since the program length is implicit in
// its content, not separately length-prefixed (spec §3, §8).
func Decode(buf []byte) ([]Check, error) {
	r := bytecode.NewReader(buf)
	var checks []Check
	for r.Len() > 0 {
		if len(checks) >= MaxChecks {
			return nil, ErrTooManyChecks
		}
		c, err := decodeOne(r)
		if err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, nil
}

func decodeOne(r *bytecode.Reader) (Check, error) {
	opByte, err := r.ReadByte()
	if err != nil {
		return Check{}, err
	}
	op := Opcode(opByte)

	var data Data
	switch op {
	case OpDeadline:
		v, err := r.ReadU64()
		if err != nil {
			return Check{}, err
		}
		data = Deadline{Deadline: v}

	case OpNonce:
		v, err := r.ReadU256()
		if err != nil {
			return Check{}, err
		}
		data = Nonce{Expected: v}

	case OpCallBundleHash:
		h, err := r.ReadHash()
		if err != nil {
			return Check{}, err
		}
		data = CallBundleHash{Hash: h}

	case OpTokenAmountLte:
		token, err := r.ReadAddress()
		if err != nil {
			return Check{}, err
		}
		max, err := r.ReadU256()
		if err != nil {
			return Check{}, err
		}
		data = TokenAmountLte{Token: token, Max: max}

	case OpNativeValueLte:
		max, err := r.ReadU256()
		if err != nil {
			return Check{}, err
		}
		data = NativeValueLte{Max: max}

	case OpLiquidityDeltaLte:
		max, err := r.ReadU128()
		if err != nil {
			return Check{}, err
		}
		data = LiquidityDeltaLte{Max: max}

	case OpSlot0TickBounds:
		poolID, err := r.ReadHash()
		if err != nil {
			return Check{}, err
		}
		min, err := r.ReadI32()
		if err != nil {
			return Check{}, err
		}
		max, err := r.ReadI32()
		if err != nil {
			return Check{}, err
		}
		data = Slot0TickBounds{PoolID: poolID, Min: min, Max: max}

	case OpSlot0SqrtPrice:
		poolID, err := r.ReadHash()
		if err != nil {
			return Check{}, err
		}
		min, err := r.ReadU256()
		if err != nil {
			return Check{}, err
		}
		max, err := r.ReadU256()
		if err != nil {
			return Check{}, err
		}
		data = Slot0SqrtPriceBounds{PoolID: poolID, Min: min, Max: max}

	case OpRfsClosed:
		posID, err := r.ReadHash()
		if err != nil {
			return Check{}, err
		}
		data = RfsClosed{PositionID: posID}

	case OpQueueLte:
		lcc, err := r.ReadAddress()
		if err != nil {
			return Check{}, err
		}
		owner, err := r.ReadAddress()
		if err != nil {
			return Check{}, err
		}
		max, err := r.ReadU256()
		if err != nil {
			return Check{}, err
		}
		data = QueueLte{Lcc: lcc, Owner: owner, Max: max}

	case OpReserveGte:
		lcc, err := r.ReadAddress()
		if err != nil {
			return Check{}, err
		}
		min, err := r.ReadU256()
		if err != nil {
			return Check{}, err
		}
		data = ReserveGte{Lcc: lcc, Min: min}

	case OpSettledGte:
		posID, err := r.ReadHash()
		if err != nil {
			return Check{}, err
		}
		min0, err := r.ReadU256()
		if err != nil {
			return Check{}, err
		}
		min1, err := r.ReadU256()
		if err != nil {
			return Check{}, err
		}
		data = SettledGte{PositionID: posID, MinAmount0: min0, MinAmount1: min1}

	case OpCommitmentDeficit:
		posID, err := r.ReadHash()
		if err != nil {
			return Check{}, err
		}
		max0, err := r.ReadU256()
		if err != nil {
			return Check{}, err
		}
		max1, err := r.ReadU256()
		if err != nil {
			return Check{}, err
		}
		data = CommitmentDeficitLte{PositionID: posID, MaxDeficit0: max0, MaxDeficit1: max1}

	case OpGracePeriodGte:
		posID, err := r.ReadHash()
		if err != nil {
			return Check{}, err
		}
		secs, err := r.ReadU64()
		if err != nil {
			return Check{}, err
		}
		data = GracePeriodGte{PositionID: posID, MinSeconds: secs}

	case OpStaticCallU256:
		target, err := r.ReadAddress()
		if err != nil {
			return Check{}, err
		}
		sel, err := r.ReadSelector()
		if err != nil {
			return Check{}, err
		}
		argLen, err := r.ReadU16()
		if err != nil {
			return Check{}, err
		}
		args, err := r.ReadVec(int(argLen))
		if err != nil {
			return Check{}, err
		}
		compByte, err := r.ReadByte()
		if err != nil {
			return Check{}, err
		}
		comp, ok := CompOpFromByte(compByte)
		if !ok {
			return Check{}, ErrBadCompOp
		}
		rhs, err := r.ReadU256()
		if err != nil {
			return Check{}, err
		}
		data = StaticCallU256{Target: target, Selector: sel, Args: args, Op: comp, Rhs: rhs}

	default:
		return Check{}, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, opByte)
	}

	return Check{Op: op, Data: data}, nil
}
