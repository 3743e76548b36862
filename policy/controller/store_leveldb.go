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

	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/usherlabs/fiet-public/common"
	"github.com/usherlabs/fiet-public/log"
)

// Key prefixes, one byte each, namespacing the three logical tables a
// LevelDBStore keeps inside a single flat keyspace — the same scheme
// the teacher's rawdb layer uses to multiplex multiple logical tables
// over one physical LevelDB instance.
const (
	prefixUsedIDs byte = 'u'
	prefixNonce   byte = 'n'
	prefixConfig  byte = 'c'
)

// LevelDBStore is a StateStore backed by a goleveldb database on disk,
// the durable counterpart to MemStore for a long-running validator
// process that must survive restarts without losing replay nonces.
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDBStore opens (or creates) a LevelDB database at path.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *LevelDBStore) Close() error { return s.db.Close() }

func usedIDsKey(wallet common.Address) []byte {
	return append([]byte{prefixUsedIDs}, wallet[:]...)
}

func nonceKey(key common.Hash) []byte {
	return append([]byte{prefixNonce}, key[:]...)
}

func configKey(key common.Hash) []byte {
	return append([]byte{prefixConfig}, key[:]...)
}

func (s *LevelDBStore) UsedIDs(wallet common.Address) uint64 {
	v, err := s.db.Get(usedIDsKey(wallet), nil)
	if err != nil {
		return 0
	}
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

func (s *LevelDBStore) setUsedIDs(wallet common.Address, n uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	if err := s.db.Put(usedIDsKey(wallet), buf[:], nil); err != nil {
		log.Error("controller: failed to persist used id count", "wallet", wallet.Hex(), "err", err)
	}
}

func (s *LevelDBStore) IncrUsedIDs(wallet common.Address) {
	s.setUsedIDs(wallet, s.UsedIDs(wallet)+1)
}

func (s *LevelDBStore) DecrUsedIDs(wallet common.Address) {
	if n := s.UsedIDs(wallet); n > 0 {
		s.setUsedIDs(wallet, n-1)
	}
}

func (s *LevelDBStore) Nonce(key common.Hash) *uint256.Int {
	v, err := s.db.Get(nonceKey(key), nil)
	if err != nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).SetBytes(v)
}

func (s *LevelDBStore) SetNonce(key common.Hash, nonce *uint256.Int) {
	if err := s.db.Put(nonceKey(key), nonce.Bytes(), nil); err != nil {
		log.Error("controller: failed to persist nonce", "key", key.Hex(), "err", err)
	}
}

// encodeConfig serializes a PolicyConfig as four concatenated 20-byte
// addresses in a fixed field order.
func encodeConfig(cfg PolicyConfig) []byte {
	out := make([]byte, 0, 80)
	out = append(out, cfg.Signer[:]...)
	out = append(out, cfg.StateView[:]...)
	out = append(out, cfg.VTSOrchestrator[:]...)
	out = append(out, cfg.LiquidityHub[:]...)
	return out
}

func decodeConfig(b []byte) PolicyConfig {
	var cfg PolicyConfig
	if len(b) != 80 {
		return cfg
	}
	copy(cfg.Signer[:], b[0:20])
	copy(cfg.StateView[:], b[20:40])
	copy(cfg.VTSOrchestrator[:], b[40:60])
	copy(cfg.LiquidityHub[:], b[60:80])
	return cfg
}

func (s *LevelDBStore) Config(key common.Hash) PolicyConfig {
	v, err := s.db.Get(configKey(key), nil)
	if err != nil {
		if err != errors.ErrNotFound {
			log.Warn("controller: config read failed", "key", key.Hex(), "err", err)
		}
		return PolicyConfig{}
	}
	return decodeConfig(v)
}

func (s *LevelDBStore) SetConfig(key common.Hash, cfg PolicyConfig) {
	if err := s.db.Put(configKey(key), encodeConfig(cfg), nil); err != nil {
		log.Error("controller: failed to persist config", "key", key.Hex(), "err", err)
	}
}
