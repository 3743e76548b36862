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

// Package controller implements the module's external ABI surface
// (onInstall/onUninstall/isModuleType/isInitialized/checkUserOpPolicy/
// checkSignaturePolicy) over a pluggable StateStore, the Go analogue of
// the Stylus contract's sol_storage! mappings (spec §6, §7).
package controller

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/usherlabs/fiet-public/common"
)

// PolicyConfig is everything installed for one (wallet, permissionId)
// pair: the envelope signer and the three fact-source contracts.
type PolicyConfig struct {
	Signer          common.Address
	StateView       common.Address
	VTSOrchestrator common.Address
	LiquidityHub    common.Address
}

// IsZero reports whether c has never been installed (the state
// store's absence-sentinel is the zero value, mirroring the Stylus
// contract's "state_view_of == Address::ZERO means uninstalled" check).
func (c PolicyConfig) IsZero() bool {
	return c.StateView.IsZero() && c.VTSOrchestrator.IsZero() && c.LiquidityHub.IsZero()
}

// StateStore is the module's persistence boundary: per-wallet
// installed-permission counts, per-key replay nonces and per-key
// installed configs. Implementations must make every method safe for
// concurrent use, since a single wallet can validate UserOps from
// multiple bundlers concurrently.
type StateStore interface {
	UsedIDs(wallet common.Address) uint64
	IncrUsedIDs(wallet common.Address)
	DecrUsedIDs(wallet common.Address)

	Nonce(key common.Hash) *uint256.Int
	SetNonce(key common.Hash, nonce *uint256.Int)

	Config(key common.Hash) PolicyConfig
	SetConfig(key common.Hash, cfg PolicyConfig)
}

// MemStore is an in-process StateStore, suitable for tests. A
// production deployment backs StateStore with
// the account's own persistent storage slots; MemStore exists purely
// so the controller's logic can be exercised without one.
type MemStore struct {
	mu       sync.RWMutex
	usedIDs  map[common.Address]uint64
	nonces   map[common.Hash]*uint256.Int
	configs  map[common.Hash]PolicyConfig
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		usedIDs: make(map[common.Address]uint64),
		nonces:  make(map[common.Hash]*uint256.Int),
		configs: make(map[common.Hash]PolicyConfig),
	}
}

func (s *MemStore) UsedIDs(wallet common.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usedIDs[wallet]
}

func (s *MemStore) IncrUsedIDs(wallet common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usedIDs[wallet]++
}

func (s *MemStore) DecrUsedIDs(wallet common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usedIDs[wallet] > 0 {
		s.usedIDs[wallet]--
	}
}

func (s *MemStore) Nonce(key common.Hash) *uint256.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nonces[key]; ok {
		return n.Clone()
	}
	return new(uint256.Int)
}

func (s *MemStore) SetNonce(key common.Hash, nonce *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[key] = nonce.Clone()
}

func (s *MemStore) Config(key common.Hash) PolicyConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configs[key]
}

func (s *MemStore) SetConfig(key common.Hash, cfg PolicyConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[key] = cfg
}
