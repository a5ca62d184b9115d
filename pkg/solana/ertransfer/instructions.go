package ertransfer

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

type InstructionType uint8

const (
	InstructionTypeUnknown InstructionType = iota
	InstructionTypeInitialize
	InstructionTypeDelegateBalance
	InstructionTypeTransfer
	InstructionTypeUndelegate
)

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeInitialize:
		return "initialize"
	case InstructionTypeDelegateBalance:
		return "delegate_balance"
	case InstructionTypeTransfer:
		return "transfer"
	case InstructionTypeUndelegate:
		return "undelegate"
	}
	return "unknown"
}

// DecompiledInstruction is an er_transfer instruction pulled back out of a
// message. Exactly one of the typed fields is set, according to Type.
type DecompiledInstruction struct {
	Type InstructionType

	Initialize *InitializeInstructionAccounts

	DelegateBalance     *DelegateBalanceInstructionAccounts
	DelegateBalanceArgs *DelegateBalanceInstructionArgs

	Transfer     *TransferInstructionAccounts
	TransferArgs *TransferInstructionArgs

	Undelegate *UndelegateInstructionAccounts
}

// DecompileInstruction decodes the er_transfer instruction at index.
func DecompileInstruction(m solana.Message, index int) (*DecompiledInstruction, error) {
	data, _, err := instructionAt(m, index)
	if err != nil {
		return nil, err
	}
	if len(data) < discriminatorSize {
		return nil, ErrInvalidInstructionData
	}

	res := &DecompiledInstruction{}
	switch discriminator := data[:discriminatorSize]; {
	case bytes.Equal(discriminator, initializeInstructionDiscriminator):
		res.Type = InstructionTypeInitialize
		res.Initialize, err = InitializeInstructionFromMessage(m, index)
	case bytes.Equal(discriminator, delegateBalanceInstructionDiscriminator):
		res.Type = InstructionTypeDelegateBalance
		res.DelegateBalanceArgs, res.DelegateBalance, err = DelegateBalanceInstructionFromMessage(m, index)
	case bytes.Equal(discriminator, transferInstructionDiscriminator):
		res.Type = InstructionTypeTransfer
		res.TransferArgs, res.Transfer, err = TransferInstructionFromMessage(m, index)
	case bytes.Equal(discriminator, undelegateInstructionDiscriminator):
		res.Type = InstructionTypeUndelegate
		res.Undelegate, err = UndelegateInstructionFromMessage(m, index)
	default:
		return nil, solana.ErrIncorrectInstruction
	}
	if err != nil {
		return nil, err
	}

	return res, nil
}

// IsErTransferInstruction reports whether the instruction at index targets the
// er_transfer program.
func IsErTransferInstruction(m solana.Message, index int) bool {
	if index < 0 || index >= len(m.Instructions) {
		return false
	}
	return bytes.Equal(m.Accounts[m.Instructions[index].ProgramIndex], PROGRAM_ID)
}

func instructionAt(m solana.Message, index int) ([]byte, []ed25519.PublicKey, error) {
	if index < 0 || index >= len(m.Instructions) {
		return nil, nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	ix := m.Instructions[index]
	if !bytes.Equal(m.Accounts[ix.ProgramIndex], PROGRAM_ID) {
		return nil, nil, solana.ErrIncorrectProgram
	}

	accounts := make([]ed25519.PublicKey, len(ix.Accounts))
	for i, accountIndex := range ix.Accounts {
		accounts[i] = m.Accounts[accountIndex]
	}

	return ix.Data, accounts, nil
}

func decodeInstruction(m solana.Message, index int, discriminator []byte, numAccounts int) ([]byte, []ed25519.PublicKey, error) {
	data, accounts, err := instructionAt(m, index)
	if err != nil {
		return nil, nil, err
	}

	if !bytes.HasPrefix(data, discriminator) {
		return nil, nil, solana.ErrIncorrectInstruction
	}
	if len(accounts) != numAccounts {
		return nil, nil, errors.Errorf("invalid number of accounts: %d", len(accounts))
	}

	return data[len(discriminator):], accounts, nil
}

func writableSigner(key ed25519.PublicKey) solana.AccountMeta {
	return solana.NewAccountMeta(key, true)
}

func writable(key ed25519.PublicKey) solana.AccountMeta {
	return solana.NewAccountMeta(key, false)
}

func readonly(key ed25519.PublicKey) solana.AccountMeta {
	return solana.NewReadonlyAccountMeta(key, false)
}
