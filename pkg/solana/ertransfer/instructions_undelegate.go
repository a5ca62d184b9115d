package ertransfer

import (
	"crypto/ed25519"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/delegation"
)

// sha256("global:undelegate")[:8]
var undelegateInstructionDiscriminator = []byte{
	131, 148, 180, 198, 91, 104, 42, 238,
}

const (
	UndelegateInstructionArgsSize = 0

	UndelegateInstructionAccountsSize = 4
)

type UndelegateInstructionAccounts struct {
	Payer   ed25519.PublicKey
	Balance ed25519.PublicKey
}

// NewUndelegateInstruction commits the balance from the ephemeral rollup and
// returns it to the base layer. It must be sent to the ephemeral rollup.
func NewUndelegateInstruction(accounts *UndelegateInstructionAccounts) solana.Instruction {
	data := make([]byte, 0, discriminatorSize+UndelegateInstructionArgsSize)
	data = append(data, undelegateInstructionDiscriminator...)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		writableSigner(accounts.Payer),
		writable(accounts.Balance),
		readonly(delegation.MagicProgramKey),
		writable(delegation.MagicContextKey),
	)
}

func UndelegateInstructionFromMessage(m solana.Message, index int) (*UndelegateInstructionAccounts, error) {
	args, accounts, err := decodeInstruction(m, index, undelegateInstructionDiscriminator, UndelegateInstructionAccountsSize)
	if err != nil {
		return nil, err
	}
	if len(args) != UndelegateInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	return &UndelegateInstructionAccounts{
		Payer:   accounts[0],
		Balance: accounts[1],
	}, nil
}
