package ertransfer

import (
	"crypto/ed25519"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

// sha256("global:initialize")[:8]
var initializeInstructionDiscriminator = []byte{
	175, 175, 109, 31, 13, 152, 155, 237,
}

const (
	InitializeInstructionArgsSize = 0

	InitializeInstructionAccountsSize = 3
)

type InitializeInstructionAccounts struct {
	User    ed25519.PublicKey
	Balance ed25519.PublicKey
}

// NewInitializeInstruction creates the user's balance account with a zero
// balance. The user pays for rent.
func NewInitializeInstruction(accounts *InitializeInstructionAccounts) solana.Instruction {
	data := make([]byte, 0, discriminatorSize+InitializeInstructionArgsSize)
	data = append(data, initializeInstructionDiscriminator...)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		writableSigner(accounts.User),
		writable(accounts.Balance),
		readonly(SYSTEM_PROGRAM_ID),
	)
}

func InitializeInstructionFromMessage(m solana.Message, index int) (*InitializeInstructionAccounts, error) {
	args, accounts, err := decodeInstruction(m, index, initializeInstructionDiscriminator, InitializeInstructionAccountsSize)
	if err != nil {
		return nil, err
	}
	if len(args) != InitializeInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	return &InitializeInstructionAccounts{
		User:    accounts[0],
		Balance: accounts[1],
	}, nil
}
