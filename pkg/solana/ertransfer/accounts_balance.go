package ertransfer

import (
	"bytes"

	"github.com/near/borsh-go"
	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

// sha256("account:Balance")[:8]
var balanceAccountDiscriminator = []byte{
	127, 71, 25, 157, 105, 157, 241, 182,
}

const (
	BalanceAccountSize = (discriminatorSize + // discriminator
		8) // balance
)

// BalanceAccount is the state stored at an owner's balance PDA.
type BalanceAccount struct {
	Balance uint64
}

type balanceAccountLayout struct {
	Balance uint64
}

func (obj *BalanceAccount) Marshal() []byte {
	body, err := borsh.Serialize(balanceAccountLayout{Balance: obj.Balance})
	if err != nil {
		// Fixed size layouts can't fail to encode.
		panic(err)
	}

	data := make([]byte, 0, BalanceAccountSize)
	data = append(data, balanceAccountDiscriminator...)
	return append(data, body...)
}

func (obj *BalanceAccount) Unmarshal(data []byte) error {
	if len(data) < BalanceAccountSize {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(data[:discriminatorSize], balanceAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	var layout balanceAccountLayout
	if err := borsh.Deserialize(&layout, data[discriminatorSize:BalanceAccountSize]); err != nil {
		return errors.Wrap(err, "error decoding balance account")
	}

	obj.Balance = layout.Balance
	return nil
}

// BalanceAccountFromAccountInfo decodes a balance account fetched over RPC.
// While delegated the account is owned by the delegation program, so only the
// data layout is checked.
func BalanceAccountFromAccountInfo(info solana.AccountInfo) (*BalanceAccount, error) {
	var account BalanceAccount
	if err := account.Unmarshal(info.Data); err != nil {
		return nil, err
	}
	return &account, nil
}
