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

package controller

import (
	"encoding/binary"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usherlabs/fiet-public/common"
	"github.com/usherlabs/fiet-public/crypto"
	"github.com/usherlabs/fiet-public/policy/envelope"
	"github.com/usherlabs/fiet-public/policy/facts"
	"github.com/usherlabs/fiet-public/policy/runtime"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func installData(signer, stateView, vts, liquidityHub common.Address) []byte {
	var permissionID common.Hash
	permissionID[0] = 0x01

	out := append([]byte{}, permissionID[:]...)
	out = append(out, 1) // version
	out = append(out, signer[:]...)
	out = append(out, stateView[:]...)
	out = append(out, vts[:]...)
	out = append(out, liquidityHub[:]...)
	return out
}

func sign(t *testing.T, priv *btcec.PrivateKey, digest common.Hash) []byte {
	t.Helper()
	compact := ecdsa.SignCompact(priv, digest[:], false)
	require.Len(t, compact, 65)
	sig := make([]byte, 65)
	copy(sig[0:32], compact[1:33])
	copy(sig[32:64], compact[33:65])
	sig[64] = compact[0]
	return sig
}

func buildSignedEnvelope(t *testing.T, priv *btcec.PrivateKey, chainID uint64, self, wallet common.Address, permissionID common.Hash, nonce uint64, deadline uint64, callData []byte) []byte {
	t.Helper()
	bundleHash := crypto.Keccak256Hash(callData)
	nonceInt := new(uint256.Int).SetUint64(nonce)

	digest := envelope.Digest(chainID, self, wallet, permissionID, nonceInt, deadline, bundleHash, nil)
	sig := sign(t, priv, digest)

	var out []byte
	var u16buf [2]byte
	binary.BigEndian.PutUint16(u16buf[:], 1)
	out = append(out, u16buf[:]...)

	var nonceWord [32]byte
	binary.BigEndian.PutUint64(nonceWord[24:32], nonce)
	out = append(out, nonceWord[:]...)

	var deadlineBuf [8]byte
	binary.BigEndian.PutUint64(deadlineBuf[:], deadline)
	out = append(out, deadlineBuf[:]...)

	out = append(out, bundleHash[:]...)

	var lenBuf [4]byte // empty program
	out = append(out, lenBuf[:]...)

	binary.BigEndian.PutUint16(u16buf[:], 65)
	out = append(out, u16buf[:]...)
	out = append(out, sig...)
	return out
}

func TestControllerInstallThenCheckUserOpPolicySucceeds(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(priv.PubKey().SerializeUncompressed())

	store := NewMemStore()
	rt := runtime.NewEmulatedRuntime()
	wallet := addr(0x11)
	self := addr(0x22)
	const chainID = uint64(1)

	var permissionID common.Hash
	permissionID[0] = 0x01

	data := installData(signer, addr(0x31), addr(0x32), addr(0x33))
	require.NoError(t, Install(store, wallet, data))

	now := uint64(1_700_000_000)
	ctrl := NewController(store, rt, chainID, self, func() uint64 { return now })

	callData := []byte("transfer")
	sig := buildSignedEnvelope(t, priv, chainID, self, wallet, permissionID, 0, now+3600, callData)

	result := ctrl.CheckUserOpPolicy(wallet, permissionID, UserOp{CallData: callData, Signature: sig})
	assert.Equal(t, PolicySuccess, result)

	key := CompositeKey(wallet, permissionID)
	assert.EqualValues(t, 1, store.Nonce(key).Uint64())
}

func TestControllerRejectsReplayedNonce(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(priv.PubKey().SerializeUncompressed())

	store := NewMemStore()
	rt := runtime.NewEmulatedRuntime()
	wallet := addr(0x44)
	self := addr(0x22)
	const chainID = uint64(1)

	var permissionID common.Hash
	permissionID[0] = 0x01
	require.NoError(t, Install(store, wallet, installData(signer, addr(0x31), addr(0x32), addr(0x33))))

	now := uint64(1_700_000_000)
	ctrl := NewController(store, rt, chainID, self, func() uint64 { return now })

	callData := []byte("x")
	sig := buildSignedEnvelope(t, priv, chainID, self, wallet, permissionID, 0, now+3600, callData)

	require.Equal(t, PolicySuccess, ctrl.CheckUserOpPolicy(wallet, permissionID, UserOp{CallData: callData, Signature: sig}))
	// Same envelope again: nonce has already advanced to 1, so this is a replay.
	assert.Equal(t, PolicyFailed, ctrl.CheckUserOpPolicy(wallet, permissionID, UserOp{CallData: callData, Signature: sig}))
}

func TestControllerRejectsWrongSigner(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	configuredSigner := crypto.PubkeyToAddress(priv.PubKey().SerializeUncompressed())

	store := NewMemStore()
	rt := runtime.NewEmulatedRuntime()
	wallet := addr(0x55)
	self := addr(0x22)
	const chainID = uint64(1)

	var permissionID common.Hash
	permissionID[0] = 0x01
	require.NoError(t, Install(store, wallet, installData(configuredSigner, addr(0x31), addr(0x32), addr(0x33))))

	now := uint64(1_700_000_000)
	ctrl := NewController(store, rt, chainID, self, func() uint64 { return now })

	callData := []byte("x")
	// Signed by `other`, not the configured signer.
	sig := buildSignedEnvelope(t, other, chainID, self, wallet, permissionID, 0, now+3600, callData)

	assert.Equal(t, PolicyFailed, ctrl.CheckUserOpPolicy(wallet, permissionID, UserOp{CallData: callData, Signature: sig}))
}

func TestControllerRejectsUnconfiguredWallet(t *testing.T) {
	store := NewMemStore()
	rt := runtime.NewEmulatedRuntime()
	ctrl := NewController(store, rt, 1, addr(0x22), func() uint64 { return 1 })

	var permissionID common.Hash
	result := ctrl.CheckUserOpPolicy(addr(0x99), permissionID, UserOp{CallData: []byte("x"), Signature: nil})
	assert.Equal(t, PolicyFailed, result)
}

func TestControllerUninstallThenRejects(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(priv.PubKey().SerializeUncompressed())

	store := NewMemStore()
	wallet := addr(0x66)
	data := installData(signer, addr(0x31), addr(0x32), addr(0x33))
	require.NoError(t, Install(store, wallet, data))
	require.True(t, (&Controller{store: store}).IsInitialized(wallet))

	require.NoError(t, Uninstall(store, wallet, data))
	assert.False(t, (&Controller{store: store}).IsInitialized(wallet))
	assert.ErrorIs(t, Uninstall(store, wallet, data), ErrNotInitialized)
}

func TestControllerCheckSignaturePolicyAlwaysSucceeds(t *testing.T) {
	ctrl := NewController(NewMemStore(), runtime.NewEmulatedRuntime(), 1, addr(0x22), func() uint64 { return 1 })
	var permissionID common.Hash
	assert.Equal(t, PolicySuccess, ctrl.CheckSignaturePolicy(permissionID, addr(0x01), common.Hash{}, nil))
}

func TestControllerOracleFactoryOptionIsUsed(t *testing.T) {
	store := NewMemStore()
	rt := runtime.NewEmulatedRuntime()
	var usedSources facts.Sources
	ctrl := NewController(store, rt, 1, addr(0x22), func() uint64 { return 1 },
		WithOracleFactory(func(sources facts.Sources, gasCap, now uint64) facts.Oracle {
			usedSources = sources
			return facts.NewOnchain(rt, sources, gasCap, now)
		}),
	)

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(priv.PubKey().SerializeUncompressed())
	wallet := addr(0x77)
	var permissionID common.Hash
	permissionID[0] = 0x01
	require.NoError(t, Install(store, wallet, installData(signer, addr(0x31), addr(0x32), addr(0x33))))

	callData := []byte("x")
	sig := buildSignedEnvelope(t, priv, 1, addr(0x22), wallet, permissionID, 0, 2, callData)
	ctrl.CheckUserOpPolicy(wallet, permissionID, UserOp{CallData: callData, Signature: sig})
	assert.Equal(t, addr(0x31), usedSources.StateView)
}
