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
	"github.com/holiman/uint256"

	"github.com/usherlabs/fiet-public/common"
	"github.com/usherlabs/fiet-public/crypto"
	"github.com/usherlabs/fiet-public/log"
	"github.com/usherlabs/fiet-public/policy/check"
	"github.com/usherlabs/fiet-public/policy/envelope"
	"github.com/usherlabs/fiet-public/policy/eval"
	"github.com/usherlabs/fiet-public/policy/facts"
	"github.com/usherlabs/fiet-public/policy/runtime"
)

// ModuleTypePolicy is the ERC-7579 module type id Kernel v3 assigns to
// policies.
const ModuleTypePolicy = 5

// Policy result codes: Kernel treats any non-zero validationData as a
// failed validation, so the module's two possible outcomes collapse to
// these two sentinels (spec §4.2).
const (
	PolicySuccess uint64 = 0
	PolicyFailed  uint64 = 1
)

// UserOp mirrors the nine fields of ERC-4337's PackedUserOperation in
// declaration order. Every field but CallData and Signature is unused
// by this module today — kept so the controller's call signature
// matches what Kernel actually hands it, rather than a convenience
// subset.
type UserOp struct {
	Sender             common.Address
	Nonce              *uint256.Int
	InitCode           []byte
	CallData           []byte
	AccountGasLimits   common.Hash
	PreVerificationGas *uint256.Int
	GasFees            common.Hash
	PaymasterAndData   []byte
	Signature          []byte
}

// Controller implements the module's Kernel-facing ABI surface over a
// StateStore, an Oracle-constructing factory and a StaticCaller used
// for envelope signature recovery.
type Controller struct {
	store      StateStore
	caller     runtime.StaticCaller
	chainID    uint64
	self       common.Address
	now        func() uint64
	oracleCap  uint64
	newOracle  func(sources facts.Sources, gasCap, now uint64) facts.Oracle
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithOracleFactory overrides how a facts.Oracle is constructed per
// call; tests substitute a stub oracle here instead of facts.Onchain.
func WithOracleFactory(f func(sources facts.Sources, gasCap, now uint64) facts.Oracle) Option {
	return func(c *Controller) { c.newOracle = f }
}

// NewController builds a Controller backed by store for persistence and
// caller for the envelope's ecrecover staticcall. chainID and self
// (the module's own contract address) feed the EIP-712 domain
// separator; now reports the current block timestamp.
func NewController(store StateStore, caller runtime.StaticCaller, chainID uint64, self common.Address, now func() uint64, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		caller:    caller,
		chainID:   chainID,
		self:      self,
		now:       now,
		oracleCap: runtime.OracleCallGasCap,
	}
	c.newOracle = func(sources facts.Sources, gasCap, now uint64) facts.Oracle {
		return facts.NewOnchain(caller, sources, gasCap, now)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsModuleType reports whether moduleTypeID matches this module's
// ERC-7579 type (Policy).
func (c *Controller) IsModuleType(moduleTypeID uint64) bool {
	return moduleTypeID == ModuleTypePolicy
}

// IsInitialized reports whether wallet has any installed permission ids
// for this module.
func (c *Controller) IsInitialized(wallet common.Address) bool {
	return c.store.UsedIDs(wallet) != 0
}

// OnInstall handles the ERC-7579 install hook for wallet.
func (c *Controller) OnInstall(wallet common.Address, data []byte) error {
	return Install(c.store, wallet, data)
}

// OnUninstall handles the ERC-7579 uninstall hook for wallet.
func (c *Controller) OnUninstall(wallet common.Address, data []byte) error {
	return Uninstall(c.store, wallet, data)
}

// isInstalledKey mirrors the Stylus contract's "state_view_of != 0"
// liveness check: a config is considered installed only once its fact
// sources are non-zero, which Uninstall clears alongside everything
// else.
func (c *Controller) isInstalledKey(key common.Hash) bool {
	return !c.store.Config(key).StateView.IsZero()
}

// CheckUserOpPolicy is the Kernel-facing entry point: it authenticates
// the policy-local envelope carried in op.Signature, binds it to
// op.CallData, enforces replay protection, and evaluates the envelope's
// check program against live on-chain facts (spec §4).
func (c *Controller) CheckUserOpPolicy(wallet common.Address, permissionID common.Hash, op UserOp) uint64 {
	key := CompositeKey(wallet, permissionID)
	if !c.isInstalledKey(key) {
		return PolicyFailed
	}

	intent, err := envelope.Parse(op.Signature)
	if err != nil {
		log.Debug("controller: envelope parse failed", "err", err)
		return PolicyFailed
	}
	if intent.Version != 1 {
		return PolicyFailed
	}
	now := c.now()
	if now > intent.Deadline {
		return PolicyFailed
	}

	computedBundleHash := crypto.Keccak256Hash(op.CallData)
	if computedBundleHash != intent.CallBundleHash {
		return PolicyFailed
	}

	expectedNonce := c.store.Nonce(key)
	if !intent.Nonce.Eq(expectedNonce) {
		return PolicyFailed
	}

	cfg := c.store.Config(key)
	if cfg.Signer.IsZero() {
		return PolicyFailed
	}
	digest := envelope.Digest(c.chainID, c.self, wallet, permissionID, intent.Nonce, intent.Deadline, intent.CallBundleHash, intent.ProgramBytes)
	recovered, err := envelope.Recover(c.caller, digest, intent.Signature)
	if err != nil || recovered != cfg.Signer {
		log.Debug("controller: envelope signer mismatch", "err", err)
		return PolicyFailed
	}

	checks, err := check.Decode(intent.ProgramBytes)
	if err != nil {
		log.Debug("controller: program decode failed", "err", err)
		return PolicyFailed
	}

	if cfg.StateView.IsZero() || cfg.VTSOrchestrator.IsZero() || cfg.LiquidityHub.IsZero() {
		return PolicyFailed
	}
	sources := facts.Sources{
		StateView:       cfg.StateView,
		VTSOrchestrator: cfg.VTSOrchestrator,
		LiquidityHub:    cfg.LiquidityHub,
	}
	oracle := c.newOracle(sources, c.oracleCap, now)
	if err := eval.Evaluate(checks, oracle); err != nil {
		log.Debug("controller: program evaluation failed", "err", err)
		return PolicyFailed
	}

	var nextNonce uint256.Int
	if nextNonce.AddOverflow(expectedNonce, uint256.NewInt(1)) {
		nextNonce.SetAllOne()
	}
	c.store.SetNonce(key, &nextNonce)

	return PolicySuccess
}

// CheckSignaturePolicy is the Kernel-facing signature-policy hook. This
// module only validates UserOps, not bare signatures, so it always
// passes (spec §4.2, matching the original IPolicy.checkSignaturePolicy
// no-op implementation).
func (c *Controller) CheckSignaturePolicy(permissionID common.Hash, sender common.Address, hash common.Hash, sig []byte) uint64 {
	return PolicySuccess
}
