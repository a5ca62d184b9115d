package ertransfer

import (
	"crypto/ed25519"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

// GetBalanceAddress returns the balance PDA of owner. The owner's public key
// is the only seed.
func GetBalanceAddress(owner ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(PROGRAM_ID, owner)
}
