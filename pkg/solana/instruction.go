package solana

import (
	"bytes"
	"crypto/ed25519"
	"errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
)

// AccountMeta describes how an instruction uses an account.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	isPayer   bool
	isProgram bool
}

// NewAccountMeta returns a writable AccountMeta.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: true,
	}
}

// NewReadonlyAccountMeta returns a readonly AccountMeta.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey: pub,
		IsSigner:  isSigner,
	}
}

// accountOrder sorts account metas the way the runtime expects them in a
// message: payer, writable signers, readonly signers, writable non-signers,
// readonly non-signers, with invoked programs at the very end.
//
// Reference: https://docs.solana.com/transaction#account-addresses-format
type accountOrder []AccountMeta

func (s accountOrder) Len() int      { return len(s) }
func (s accountOrder) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s accountOrder) Less(i, j int) bool {
	switch {
	case s[i].isPayer != s[j].isPayer:
		return s[i].isPayer
	case s[i].isProgram != s[j].isProgram:
		return !s[i].isProgram
	case s[i].IsSigner != s[j].IsSigner:
		return s[i].IsSigner
	case s[i].IsWritable != s[j].IsWritable:
		return s[i].IsWritable
	}
	return bytes.Compare(s[i].PublicKey, s[j].PublicKey) < 0
}

// Instruction is a single program invocation within a transaction.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

// NewInstruction creates a new instruction.
func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// WritableAccounts returns the accounts the instruction may modify.
func (i Instruction) WritableAccounts() []ed25519.PublicKey {
	var res []ed25519.PublicKey
	for _, account := range i.Accounts {
		if account.IsWritable {
			res = append(res, account.PublicKey)
		}
	}
	return res
}

// CompiledInstruction is an instruction whose program and accounts have been
// replaced by indexes into the message account list.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}
