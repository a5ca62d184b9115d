package ertransfer

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

// sha256("global:transfer")[:8]
var transferInstructionDiscriminator = []byte{
	163, 52, 200, 231, 140, 3, 69, 186,
}

const (
	TransferInstructionArgsSize = 8 // amount

	TransferInstructionAccountsSize = 5
)

type TransferInstructionArgs struct {
	Amount uint64
}

type TransferInstructionAccounts struct {
	Payer           ed25519.PublicKey
	Balance         ed25519.PublicKey
	Receiver        ed25519.PublicKey
	ReceiverBalance ed25519.PublicKey
}

// NewTransferInstruction moves amount from the payer's balance to the
// receiver's, creating the receiver's balance account if needed.
func NewTransferInstruction(
	accounts *TransferInstructionAccounts,
	args *TransferInstructionArgs,
) solana.Instruction {
	data := make([]byte, discriminatorSize+TransferInstructionArgsSize)
	copy(data, transferInstructionDiscriminator)
	binary.LittleEndian.PutUint64(data[discriminatorSize:], args.Amount)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		writableSigner(accounts.Payer),
		writable(accounts.Balance),
		readonly(accounts.Receiver),
		writable(accounts.ReceiverBalance),
		readonly(SYSTEM_PROGRAM_ID),
	)
}

func TransferInstructionFromMessage(m solana.Message, index int) (*TransferInstructionArgs, *TransferInstructionAccounts, error) {
	data, accounts, err := decodeInstruction(m, index, transferInstructionDiscriminator, TransferInstructionAccountsSize)
	if err != nil {
		return nil, nil, err
	}
	if len(data) != TransferInstructionArgsSize {
		return nil, nil, ErrInvalidInstructionData
	}

	args := &TransferInstructionArgs{
		Amount: binary.LittleEndian.Uint64(data),
	}

	return args, &TransferInstructionAccounts{
		Payer:           accounts[0],
		Balance:         accounts[1],
		Receiver:        accounts[2],
		ReceiverBalance: accounts[3],
	}, nil
}
