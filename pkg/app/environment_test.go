package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alizeeshan1234/er-transfer/pkg/data/step"
	"github.com/alizeeshan1234/er-transfer/pkg/ertransfer"
	"github.com/alizeeshan1234/er-transfer/pkg/testutil"
	"github.com/alizeeshan1234/er-transfer/pkg/wallet"
)

func TestNewEnvironment(t *testing.T) {
	payer := testutil.GenerateSolanaKeypair(t)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, wallet.Save(path, payer))

	env, err := NewEnvironment(context.Background(), ClusterConfig{
		ProviderURL:    "http://localhost:8899",
		WalletPath:     path,
		RouterEndpoint: "http://localhost:7799",
		// Nothing listens here, so confirmations fall back to polling.
		RouterWsEndpoint: "ws://127.0.0.1:1",
		Commitment:       "confirmed",
		RPCRateLimit:     5,
		ComputeUnitPrice: 100,
	})
	require.NoError(t, err)
	defer env.Close()

	assert.EqualValues(t, payer, env.Payer)
	assert.Nil(t, env.subscriber)
	assert.Nil(t, env.db)
	assert.Equal(t, ertransfer.RouteEphemeral, env.Client.RouteFor(ertransfer.OperationTransfer))
	assert.Equal(t, ertransfer.RouteBase, env.Client.RouteFor(ertransfer.OperationInitialize))

	// Without a database, step records are kept in memory.
	record := &step.Record{
		RunId:     "run",
		Step:      "initialize",
		Signature: "sig",
		Layer:     step.LayerBase,
		State:     step.StatePending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, env.Steps.Save(context.Background(), record))
	_, err = env.Steps.Get(context.Background(), "sig")
	require.NoError(t, err)
}

func TestNewEnvironment_MissingWallet(t *testing.T) {
	_, err := NewEnvironment(context.Background(), ClusterConfig{
		WalletPath: filepath.Join(t.TempDir(), "missing.json"),
	})
	assert.Error(t, err)
}
