package ertransfer

import (
	"crypto/ed25519"

	"github.com/near/borsh-go"
	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/delegation"
)

// sha256("global:delegate_balance")[:8]
var delegateBalanceInstructionDiscriminator = []byte{
	199, 112, 131, 196, 76, 135, 198, 238,
}

const (
	DelegateBalanceInstructionArgsSize = (4 + // commit_frequency_ms
		1 + 32) // validator: Option<Pubkey>

	DelegateBalanceInstructionAccountsSize = 8
)

type DelegateBalanceInstructionArgs struct {
	CommitFrequencyMs uint32

	// Validator pins the ephemeral rollup validator the balance is delegated
	// to. Any validator may pick it up when nil.
	Validator ed25519.PublicKey
}

type DelegateBalanceInstructionAccounts struct {
	Payer   ed25519.PublicKey
	Balance ed25519.PublicKey

	// Derived from Balance when nil.
	Buffer             ed25519.PublicKey
	DelegationRecord   ed25519.PublicKey
	DelegationMetadata ed25519.PublicKey
}

type delegateParamsLayout struct {
	CommitFrequencyMs uint32
	Validator         *[32]byte
}

// NewDelegateBalanceInstruction hands the balance account to the delegation
// program so an ephemeral rollup validator can take it over.
func NewDelegateBalanceInstruction(
	accounts *DelegateBalanceInstructionAccounts,
	args *DelegateBalanceInstructionArgs,
) (solana.Instruction, error) {
	if accounts.Buffer == nil || accounts.DelegationRecord == nil || accounts.DelegationMetadata == nil {
		addresses, err := delegation.GetAddresses(PROGRAM_ID, accounts.Balance)
		if err != nil {
			return solana.Instruction{}, err
		}

		accounts.Buffer = addresses.Buffer
		accounts.DelegationRecord = addresses.DelegationRecord
		accounts.DelegationMetadata = addresses.DelegationMetadata
	}

	params := delegateParamsLayout{CommitFrequencyMs: args.CommitFrequencyMs}
	if args.Validator != nil {
		if len(args.Validator) != ed25519.PublicKeySize {
			return solana.Instruction{}, errors.Errorf("invalid validator key length: %d", len(args.Validator))
		}

		var validator [32]byte
		copy(validator[:], args.Validator)
		params.Validator = &validator
	}

	encoded, err := borsh.Serialize(params)
	if err != nil {
		return solana.Instruction{}, errors.Wrap(err, "error encoding delegate params")
	}

	data := make([]byte, 0, discriminatorSize+len(encoded))
	data = append(data, delegateBalanceInstructionDiscriminator...)
	data = append(data, encoded...)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		writableSigner(accounts.Payer),
		writable(accounts.Balance),
		writable(accounts.Buffer),
		writable(accounts.DelegationRecord),
		writable(accounts.DelegationMetadata),
		readonly(PROGRAM_ID),
		readonly(delegation.ProgramKey),
		readonly(SYSTEM_PROGRAM_ID),
	), nil
}

func DelegateBalanceInstructionFromMessage(m solana.Message, index int) (*DelegateBalanceInstructionArgs, *DelegateBalanceInstructionAccounts, error) {
	data, accounts, err := decodeInstruction(m, index, delegateBalanceInstructionDiscriminator, DelegateBalanceInstructionAccountsSize)
	if err != nil {
		return nil, nil, err
	}
	if len(data) != 4+1 && len(data) != DelegateBalanceInstructionArgsSize {
		return nil, nil, ErrInvalidInstructionData
	}

	var params delegateParamsLayout
	if err := borsh.Deserialize(&params, data); err != nil {
		return nil, nil, errors.Wrap(ErrInvalidInstructionData, err.Error())
	}

	args := &DelegateBalanceInstructionArgs{CommitFrequencyMs: params.CommitFrequencyMs}
	if params.Validator != nil {
		args.Validator = append(ed25519.PublicKey(nil), params.Validator[:]...)
	}

	return args, &DelegateBalanceInstructionAccounts{
		Payer:              accounts[0],
		Balance:            accounts[1],
		Buffer:             accounts[2],
		DelegationRecord:   accounts[3],
		DelegationMetadata: accounts[4],
	}, nil
}
