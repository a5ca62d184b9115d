// Package delegation holds the addresses and account layouts of the
// MagicBlock delegation program and the ephemeral rollup magic program.
package delegation

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

var (
	// ProgramKey owns accounts while they are delegated to an ephemeral
	// rollup validator.
	ProgramKey = solana.MustPublicKeyFromString("DELeGGvXpWV2fqJUhqcF5ZSYMS4JTLjteaAMARRSaeSh")

	// MagicProgramKey is invoked on the ephemeral rollup to schedule commits
	// and undelegation.
	MagicProgramKey = solana.MustPublicKeyFromString("Magic11111111111111111111111111111111111111")

	// MagicContextKey is the writable account the magic program queues
	// scheduled commits into.
	MagicContextKey = solana.MustPublicKeyFromString("MagicContext1111111111111111111111111111111")
)

const (
	bufferSeed             = "buffer"
	delegationRecordSeed   = "delegation"
	delegationMetadataSeed = "delegation-metadata"
)

// Addresses are the accounts touched when delegating an account.
type Addresses struct {
	Buffer             ed25519.PublicKey
	DelegationRecord   ed25519.PublicKey
	DelegationMetadata ed25519.PublicKey
}

// GetBufferAddress returns the PDA the owner program copies account data into
// while handing the account to the delegation program.
func GetBufferAddress(ownerProgram, account ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(ownerProgram, []byte(bufferSeed), account)
}

func GetDelegationRecordAddress(account ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(ProgramKey, []byte(delegationRecordSeed), account)
}

func GetDelegationMetadataAddress(account ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(ProgramKey, []byte(delegationMetadataSeed), account)
}

// GetAddresses derives every delegation PDA for an account owned by
// ownerProgram.
func GetAddresses(ownerProgram, account ed25519.PublicKey) (*Addresses, error) {
	buffer, _, err := GetBufferAddress(ownerProgram, account)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving buffer address")
	}

	record, _, err := GetDelegationRecordAddress(account)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving delegation record address")
	}

	metadata, _, err := GetDelegationMetadataAddress(account)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving delegation metadata address")
	}

	return &Addresses{
		Buffer:             buffer,
		DelegationRecord:   record,
		DelegationMetadata: metadata,
	}, nil
}
