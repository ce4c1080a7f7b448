// Package utils holds small helpers shared across the engine: seed-based
// key derivation for ledger addressing and struct validation for the
// external interface.
package utils

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pay-chain/paychain/types"
)

// Derive maps a list of seeds to a fixed 32-byte storage key via
// Keccak-256. It is pure addressing: ownership and mutation rights are
// enforced by the settlement engine, never by the key itself.
func Derive(seeds ...[]byte) [32]byte {
	var key [32]byte
	copy(key[:], crypto.Keccak256(seeds...))
	return key
}

// DeriveAddress derives an account address from seeds. Used for the
// vault account, which has no spending key of its own.
func DeriveAddress(seeds ...[]byte) types.Address {
	return types.Address(Derive(seeds...))
}
