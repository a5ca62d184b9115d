// Package ertransfer contains bindings for the er_transfer Anchor program: a
// per-owner balance account that can be delegated to an ephemeral rollup,
// moved between owners there, and committed back to the base layer.
package ertransfer

import (
	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/system"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

var (
	PROGRAM_ADDRESS = solana.MustPublicKeyFromString("3jZTjopbnwnbcKmTk1HboEsrzJhF8bao2BL2C4p6c1Wi")
	PROGRAM_ID      = PROGRAM_ADDRESS
)

var SYSTEM_PROGRAM_ID = system.ProgramKey

// DefaultCommitFrequencyMs is how often the ephemeral rollup validator
// commits a delegated balance back to the base layer unless told otherwise.
const DefaultCommitFrequencyMs uint32 = 30_000

const discriminatorSize = 8
