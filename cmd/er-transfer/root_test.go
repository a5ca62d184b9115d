package main

import (
	"bytes"
	"crypto/ed25519"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alizeeshan1234/er-transfer/pkg/ertransfer/scenario"
	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	ertransfer_program "github.com/alizeeshan1234/er-transfer/pkg/solana/ertransfer"
	"github.com/alizeeshan1234/er-transfer/pkg/testutil"
	"github.com/alizeeshan1234/er-transfer/pkg/wallet"
)

func execute(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))

	err := cmd.Execute()
	return out.String(), err
}

func TestSimulate(t *testing.T) {
	out, err := execute(t, "simulate", "--transfer-amount", "5")
	require.NoError(t, err)

	for _, name := range []string{
		scenario.StepFundReceiver,
		scenario.StepInitialize,
		scenario.StepInitializeReceiver,
		scenario.StepDelegate,
		scenario.StepDelegateReceiver,
		scenario.StepTransfer,
		scenario.StepUndelegate,
	} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "payer     balance 0\n")
	assert.Contains(t, out, "receiver  balance 5\n")
	assert.Contains(t, out, "recorded 7 steps\n")
}

func TestSimulate_InsufficientBalance(t *testing.T) {
	out, err := execute(t, "simulate", "--transfer-amount", "5", "--seed-balance", "4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), scenario.StepTransfer)
	assert.Contains(t, err.Error(), ertransfer_program.ErrInsufficientBalance.Error())
	assert.NotContains(t, out, scenario.StepUndelegate)
}

func TestAddress(t *testing.T) {
	owner := testutil.GenerateSolanaKeypair(t).Public().(ed25519.PublicKey)
	expected, _, err := ertransfer_program.GetBalanceAddress(owner)
	require.NoError(t, err)

	out, err := execute(t, "address", solana.ToBase58(owner))
	require.NoError(t, err)
	assert.Contains(t, out, solana.ToBase58(owner))
	assert.Contains(t, out, solana.ToBase58(expected))
}

func TestAddress_Wallet(t *testing.T) {
	key := testutil.GenerateSolanaKeypair(t)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, wallet.Save(path, key))
	t.Setenv("ANCHOR_WALLET", path)

	out, err := execute(t, "address")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "owner:   "+solana.ToBase58(wallet.PublicKey(key))))
}

func TestArgValidation(t *testing.T) {
	_, err := execute(t, "transfer", "not-a-key", "1")
	assert.Error(t, err)

	_, err = execute(t, "address", "not-a-key")
	assert.Error(t, err)

	_, err = execute(t, "transfer")
	assert.Error(t, err)
}
