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

package envelope

import (
	"github.com/holiman/uint256"

	"github.com/usherlabs/fiet-public/common"
	"github.com/usherlabs/fiet-public/common/math"
	"github.com/usherlabs/fiet-public/crypto"
)

// domainTypeHash is keccak256 of the canonical EIP-712 domain type
// string. Fixed at compile time: the domain layout never changes.
var domainTypeHash = crypto.Keccak256Hash(
	[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
)

var domainNameHash = crypto.Keccak256Hash([]byte("Fiet Maker Intent Policy"))
var domainVersionHash = crypto.Keccak256Hash([]byte("1"))

// msgTypeHash is keccak256 of the IntentPolicyEnvelope struct's
// canonical EIP-712 type string.
var msgTypeHash = crypto.Keccak256Hash(
	[]byte("IntentPolicyEnvelope(address wallet,bytes32 permissionId,uint256 nonce,uint64 deadline,bytes32 callBundleHash,bytes32 programHash)"),
)

// Digest computes the EIP-712-style digest a policy signer must sign
// over. Hashing program_bytes first keeps the typed message fixed-size
// regardless of program length (spec §4.6).
//
// digest = keccak256(0x1901 || domainSeparator || structHash)
func Digest(chainID uint64, verifyingContract, wallet common.Address, permissionID common.Hash, nonce *uint256.Int, deadline uint64, callBundleHash common.Hash, programBytes []byte) common.Hash {
	programHash := crypto.Keccak256Hash(programBytes)

	chainIDWord := math.PaddedTo32(new(uint256.Int).SetUint64(chainID).Bytes())
	vcWord := math.PaddedAddress32(verifyingContract)

	domainSeparator := crypto.Keccak256Hash(
		domainTypeHash[:],
		domainNameHash[:],
		domainVersionHash[:],
		chainIDWord[:],
		vcWord[:],
	)

	walletWord := math.PaddedAddress32(wallet)
	nonceWord := math.PaddedTo32(nonce.Bytes())
	var deadlineWord [32]byte
	deadlineWord[24] = byte(deadline >> 56)
	deadlineWord[25] = byte(deadline >> 48)
	deadlineWord[26] = byte(deadline >> 40)
	deadlineWord[27] = byte(deadline >> 32)
	deadlineWord[28] = byte(deadline >> 24)
	deadlineWord[29] = byte(deadline >> 16)
	deadlineWord[30] = byte(deadline >> 8)
	deadlineWord[31] = byte(deadline)

	structHash := crypto.Keccak256Hash(
		msgTypeHash[:],
		walletWord[:],
		permissionID[:],
		nonceWord[:],
		deadlineWord[:],
		callBundleHash[:],
		programHash[:],
	)

	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domainSeparator[:], structHash[:])
}
