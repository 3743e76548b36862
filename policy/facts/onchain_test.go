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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usherlabs/fiet-public/common"
	"github.com/usherlabs/fiet-public/crypto"
	"github.com/usherlabs/fiet-public/policy/runtime"
)

func word(v uint64) []byte {
	w := make([]byte, 32)
	w[31] = byte(v)
	w[30] = byte(v >> 8)
	w[29] = byte(v >> 16)
	w[28] = byte(v >> 24)
	return w
}

func TestOnchainGetSlot0Decodes(t *testing.T) {
	rt := runtime.NewEmulatedRuntime()
	stateView := common.Address{19: 0x01}
	sources := Sources{StateView: stateView, VTSOrchestrator: common.Address{19: 0x02}, LiquidityHub: common.Address{19: 0x03}}

	rt.Contracts[stateView] = func(input []byte) ([]byte, error) {
		out := append([]byte{}, word(12345)...) // sqrtPriceX96
		out = append(out, word(100)...)          // tick = 100 (positive, fits in low byte)
		out = append(out, word(500)...)          // protocolFee
		out = append(out, word(3000)...)         // lpFee
		return out, nil
	}

	o := NewOnchain(rt, sources, 1_000_000, 1)
	slot0, err := o.GetSlot0(common.Hash{})
	require.NoError(t, err)
	assert.EqualValues(t, 12345, slot0.SqrtPriceX96.Uint64())
	assert.EqualValues(t, 100, slot0.Tick)
	assert.EqualValues(t, 500, slot0.ProtocolFee)
	assert.EqualValues(t, 3000, slot0.LPFee)
}

func TestOnchainRejectsNonAllowlistedTarget(t *testing.T) {
	rt := runtime.NewEmulatedRuntime()
	sources := Sources{StateView: common.Address{19: 0x01}, VTSOrchestrator: common.Address{19: 0x02}, LiquidityHub: common.Address{19: 0x03}}
	o := NewOnchain(rt, sources, 1_000_000, 1)

	_, err := o.StaticCallU256(common.Address{19: 0x99}, crypto.Selector4("evil()"), nil)
	var forbidden *ForbiddenCallError
	assert.ErrorAs(t, err, &forbidden)
}

func TestOnchainGracePeriodRemainingClosedSentinel(t *testing.T) {
	rt := runtime.NewEmulatedRuntime()
	vts := common.Address{19: 0x02}
	sources := Sources{StateView: common.Address{19: 0x01}, VTSOrchestrator: vts, LiquidityHub: common.Address{19: 0x03}}

	rt.Contracts[vts] = func(input []byte) ([]byte, error) {
		sel := input[0:4]
		switch {
		case string(sel) == string(crypto.Selector4("positionToCheckpoint(bytes32)")[:]):
			out := append([]byte{}, word(100)...) // timeOfLastTransition
			out = append(out, word(0)...)          // isOpen = false
			out = append(out, word(0)...)
			out = append(out, word(0)...)
			return out, nil
		}
		return nil, nil
	}

	o := NewOnchain(rt, sources, 1_000_000, 200)
	remaining, err := o.GracePeriodRemaining(common.Hash{})
	require.NoError(t, err)
	assert.Equal(t, GraceClosed, remaining)
}

func TestOnchainGracePeriodRemainingComputesEarliestThreshold(t *testing.T) {
	rt := runtime.NewEmulatedRuntime()
	vts := common.Address{19: 0x02}
	sources := Sources{StateView: common.Address{19: 0x01}, VTSOrchestrator: vts, LiquidityHub: common.Address{19: 0x03}}
	var poolID common.Hash
	poolID[0] = 0xAB

	checkpointSel := crypto.Selector4("positionToCheckpoint(bytes32)")
	positionSel := crypto.Selector4("getPosition(bytes32)")
	poolSel := crypto.Selector4("getPool(bytes32)")

	rt.Contracts[vts] = func(input []byte) ([]byte, error) {
		sel := [4]byte{input[0], input[1], input[2], input[3]}
		switch sel {
		case checkpointSel:
			out := append([]byte{}, word(100)...) // timeOfLastTransition = 100
			out = append(out, word(1)...)          // isOpen = true
			out = append(out, word(0)...)          // graceExt0
			out = append(out, word(0)...)          // graceExt1
			return out, nil
		case positionSel:
			out := make([]byte, 64)
			copy(out[32:64], poolID[:])
			return out, nil
		case poolSel:
			out := make([]byte, 32*14)
			copy(out[32*3:32*4], word(1000)) // token0 gracePeriodTime
			copy(out[32*7:32*8], word(2000)) // token1 gracePeriodTime
			return out, nil
		}
		return nil, nil
	}

	o := NewOnchain(rt, sources, 1_000_000, 500) // now=500, elapsed=400
	remaining, err := o.GracePeriodRemaining(poolID)
	require.NoError(t, err)
	// earliest threshold = min(1000, 2000) = 1000; remaining = 1000-400 = 600
	assert.EqualValues(t, 600, remaining)
}
