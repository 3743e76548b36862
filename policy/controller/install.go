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
	"errors"

	"github.com/holiman/uint256"

	"github.com/usherlabs/fiet-public/common"
	"github.com/usherlabs/fiet-public/crypto"
)

// ErrAlreadyInitialized is returned by Install when the (wallet,
// permissionId) pair is already configured.
var ErrAlreadyInitialized = errors.New("controller: already initialized")

// ErrNotInitialized is returned by Uninstall when the (wallet,
// permissionId) pair has no existing configuration.
var ErrNotInitialized = errors.New("controller: not initialized")

// ErrInvalidInstallData covers every malformed-input rejection in
// Install/Uninstall: short data, an unrecognized version byte, or a
// zero address where one is required. The Stylus original panics on
// these paths to produce deterministic revert semantics; panicking is
// not idiomatic Go, so every one of those is instead a plain error a
// caller must reject the install transaction on.
var ErrInvalidInstallData = errors.New("controller: invalid install data")

// installDataLen is the fixed length of the per-policy init payload
// after the leading 32-byte permission id has been split off: one
// version byte followed by four 20-byte addresses (signer + the three
// fact sources).
const installDataLen = 1 + common.AddressLength*4

// SplitInstallData separates Kernel's "bytes32 permissionId || initData"
// packing into its two parts.
func SplitInstallData(data []byte) (permissionID common.Hash, initData []byte, err error) {
	if len(data) < common.HashLength {
		return common.Hash{}, nil, ErrInvalidInstallData
	}
	copy(permissionID[:], data[0:common.HashLength])
	return permissionID, data[common.HashLength:], nil
}

// CompositeKey derives the per-(wallet, permissionId) storage key
// keccak256(wallet || permissionId); wallet is concatenated raw (20
// bytes), not left-padded to a 32-byte ABI word.
func CompositeKey(wallet common.Address, permissionID common.Hash) common.Hash {
	return crypto.Keccak256Hash(wallet[:], permissionID[:])
}

// Install parses and validates an ERC-7579 install payload and commits
// a new PolicyConfig for (wallet, permissionId). initData layout:
//
//	u8      version (must be 1)
//	b20     signer   (authorized envelope signer)
//	b20     stateView
//	b20     vtsOrchestrator
//	b20     liquidityHub
func Install(store StateStore, wallet common.Address, data []byte) error {
	permissionID, initData, err := SplitInstallData(data)
	if err != nil {
		return err
	}
	key := CompositeKey(wallet, permissionID)
	if !store.Config(key).IsZero() {
		return ErrAlreadyInitialized
	}
	if len(initData) != installDataLen {
		return ErrInvalidInstallData
	}
	if initData[0] != 1 {
		return ErrInvalidInstallData
	}

	var cfg PolicyConfig
	copy(cfg.Signer[:], initData[1:21])
	copy(cfg.StateView[:], initData[21:41])
	copy(cfg.VTSOrchestrator[:], initData[41:61])
	copy(cfg.LiquidityHub[:], initData[61:81])

	if cfg.Signer.IsZero() {
		return ErrInvalidInstallData
	}
	if cfg.StateView.IsZero() || cfg.VTSOrchestrator.IsZero() || cfg.LiquidityHub.IsZero() {
		return ErrInvalidInstallData
	}

	store.SetNonce(key, new(uint256.Int))
	store.SetConfig(key, cfg)
	store.IncrUsedIDs(wallet)
	return nil
}

// Uninstall clears the PolicyConfig for (wallet, permissionId).
func Uninstall(store StateStore, wallet common.Address, data []byte) error {
	permissionID, _, err := SplitInstallData(data)
	if err != nil {
		return err
	}
	key := CompositeKey(wallet, permissionID)
	if store.Config(key).IsZero() {
		return ErrNotInitialized
	}

	store.SetNonce(key, new(uint256.Int))
	store.SetConfig(key, PolicyConfig{})
	store.DecrUsedIDs(wallet)
	return nil
}
