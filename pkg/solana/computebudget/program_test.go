package computebudget

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/system"
)

func TestProgramKey(t *testing.T) {
	assert.Equal(t, "ComputeBudget111111111111111111111111111111", solana.ToBase58(ProgramKey))
}

func TestDecompileBudget(t *testing.T) {
	payer, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	receiver, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	tx := solana.NewTransaction(
		payer,
		SetComputeUnitLimit(200_000),
		SetComputeUnitPrice(1_000),
		system.Transfer(payer, receiver, 10),
	)

	assert.True(t, IsComputeBudgetInstruction(tx.Message, 0))
	assert.True(t, IsComputeBudgetInstruction(tx.Message, 1))
	assert.False(t, IsComputeBudgetInstruction(tx.Message, 2))
	assert.False(t, IsComputeBudgetInstruction(tx.Message, 3))

	budget, err := DecompileBudget(tx.Message)
	require.NoError(t, err)
	require.NotNil(t, budget.UnitLimit)
	require.NotNil(t, budget.UnitPrice)
	assert.EqualValues(t, 200_000, *budget.UnitLimit)
	assert.EqualValues(t, 1_000, *budget.UnitPrice)

	budget, err = DecompileBudget(solana.NewTransaction(payer, system.Transfer(payer, receiver, 10)).Message)
	require.NoError(t, err)
	assert.Nil(t, budget.UnitLimit)
	assert.Nil(t, budget.UnitPrice)

	invalid := SetComputeUnitPrice(1)
	invalid.Data = invalid.Data[:4]
	_, err = DecompileBudget(solana.NewTransaction(payer, invalid).Message)
	assert.ErrorIs(t, err, ErrInvalidInstructionData)
}
