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

// Package check defines the opcode table, the CompOp comparator and the
// Check sum type that together make up the policy's stack-free check
// program, plus the decoder that turns wire bytes into a bounded slice
// of Checks. It plays the role the teacher's probe-lang/lang/vm opcode
// table plays for its register VM, but the program here has no control
// flow: it is a flat, declaration-ordered list evaluated straight
// through by the eval package.
package check

// Opcode is the 8-bit instruction tag that leads every check in the
// wire format. Values are fixed and stable — see spec §6.
type Opcode byte

const (
	OpDeadline          Opcode = 0x01
	OpNonce             Opcode = 0x02
	OpCallBundleHash    Opcode = 0x03
	OpTokenAmountLte    Opcode = 0x11
	OpNativeValueLte    Opcode = 0x12
	OpLiquidityDeltaLte Opcode = 0x13
	OpSlot0TickBounds   Opcode = 0x20
	OpSlot0SqrtPrice    Opcode = 0x21
	OpRfsClosed         Opcode = 0x30
	OpQueueLte          Opcode = 0x31
	OpReserveGte        Opcode = 0x32
	OpSettledGte        Opcode = 0x33
	OpCommitmentDeficit Opcode = 0x34
	OpGracePeriodGte    Opcode = 0x35
	OpStaticCallU256    Opcode = 0xF0
)

// opcodeNames is used only for diagnostics (log fields, the
// cmd/policydump tool); the decoder itself never branches on it.
var opcodeNames = map[Opcode]string{
	OpDeadline:          "Deadline",
	OpNonce:             "Nonce",
	OpCallBundleHash:    "CallBundleHash",
	OpTokenAmountLte:    "TokenAmountLte",
	OpNativeValueLte:    "NativeValueLte",
	OpLiquidityDeltaLte: "LiquidityDeltaLte",
	OpSlot0TickBounds:   "Slot0TickBounds",
	OpSlot0SqrtPrice:    "Slot0SqrtPriceBounds",
	OpRfsClosed:         "RfsClosed",
	OpQueueLte:          "QueueLte",
	OpReserveGte:        "ReserveGte",
	OpSettledGte:        "SettledGte",
	OpCommitmentDeficit: "CommitmentDeficitLte",
	OpGracePeriodGte:    "GracePeriodGte",
	OpStaticCallU256:    "StaticCallU256",
}

// String renders the opcode mnemonic, or "UNKNOWN" for an unrecognized
// byte value.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// CompOp is the 6-value comparison operator used by StaticCallU256. Its
// wire encoding is the single byte 0-5 in this declared order.
type CompOp byte

const (
	CompLt CompOp = iota
	CompLte
	CompGt
	CompGte
	CompEq
	CompNeq
)

var compOpNames = [...]string{"Lt", "Lte", "Gt", "Gte", "Eq", "Neq"}

// String renders the comparator mnemonic.
func (c CompOp) String() string {
	if int(c) < len(compOpNames) {
		return compOpNames[c]
	}
	return "UNKNOWN"
}

// CompOpFromByte converts a wire byte to a CompOp, reporting false when
// b is not one of the 6 defined CompOp wire values.
func CompOpFromByte(b byte) (CompOp, bool) {
	if b > byte(CompNeq) {
		return 0, false
	}
	return CompOp(b), true
}
