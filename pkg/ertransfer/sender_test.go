package ertransfer

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alizeeshan1234/er-transfer/pkg/magicrouter"
	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	ertransfer_program "github.com/alizeeshan1234/er-transfer/pkg/solana/ertransfer"
	"github.com/alizeeshan1234/er-transfer/pkg/testutil"
)

type rpcEnv struct {
	blockhash solana.Blockhash

	mu        sync.Mutex
	submitted [][]byte
	statusErr map[string]interface{}
	statuses  int32
}

func (e *rpcEnv) handlers(t *testing.T) map[string]testutil.RPCHandler {
	blockhashResult := func(params []json.RawMessage) (interface{}, map[string]interface{}) {
		return map[string]interface{}{
			"value": map[string]interface{}{
				"blockhash":            e.blockhash.String(),
				"lastValidBlockHeight": 100,
			},
		}, nil
	}

	return map[string]testutil.RPCHandler{
		"getLatestBlockhash": blockhashResult,
		"getBlockhashForAccounts": func(params []json.RawMessage) (interface{}, map[string]interface{}) {
			var accounts []string
			require.NoError(t, json.Unmarshal(params[0], &accounts))
			require.NotEmpty(t, accounts)

			return map[string]interface{}{
				"blockhash":            e.blockhash.String(),
				"lastValidBlockHeight": 100,
			}, nil
		},
		"sendTransaction": func(params []json.RawMessage) (interface{}, map[string]interface{}) {
			var encoded string
			require.NoError(t, json.Unmarshal(params[0], &encoded))

			raw, err := base64.StdEncoding.DecodeString(encoded)
			require.NoError(t, err)

			e.mu.Lock()
			e.submitted = append(e.submitted, raw)
			e.mu.Unlock()

			return "ignored", nil
		},
		"getSignatureStatuses": func(params []json.RawMessage) (interface{}, map[string]interface{}) {
			atomic.AddInt32(&e.statuses, 1)

			status := map[string]interface{}{
				"slot":               10,
				"confirmations":      nil,
				"confirmationStatus": "finalized",
			}
			if e.statusErr != nil {
				status["err"] = e.statusErr
			}

			return map[string]interface{}{
				"value": []interface{}{status},
			}, nil
		},
	}
}

type fakeConfirmer struct {
	waited []solana.Signature
	err    error
}

func (c *fakeConfirmer) WaitForSignature(_ context.Context, sig solana.Signature, _ solana.Commitment) error {
	c.waited = append(c.waited, sig)
	return c.err
}

func newInitializeTxn(t *testing.T) (*solana.Transaction, ed25519.PrivateKey) {
	payer := testutil.GenerateSolanaKeypair(t)
	owner := payer.Public().(ed25519.PublicKey)

	balance, _, err := ertransfer_program.GetBalanceAddress(owner)
	require.NoError(t, err)

	txn := solana.NewTransaction(owner, ertransfer_program.NewInitializeInstruction(&ertransfer_program.InitializeInstructionAccounts{
		User:    owner,
		Balance: balance,
	}))
	return &txn, payer
}

func TestRPCSender_Send(t *testing.T) {
	env := &rpcEnv{blockhash: solana.Blockhash{7, 7, 7}}
	server, _ := testutil.NewRPCServer(t, env.handlers(t))

	sender := NewRPCSender(solana.New(server.URL))

	txn, payer := newInitializeTxn(t)
	sig, err := sender.Send(context.Background(), txn, payer)
	require.NoError(t, err)

	assert.Equal(t, txn.Signature(), sig)
	assert.Equal(t, env.blockhash, txn.Message.RecentBlockhash)
	assert.NoError(t, txn.VerifySignatures())

	require.Len(t, env.submitted, 1)
	assert.Equal(t, txn.Marshal(), env.submitted[0])
	assert.EqualValues(t, 1, atomic.LoadInt32(&env.statuses))
}

func TestRPCSender_FailedOnChain(t *testing.T) {
	env := &rpcEnv{
		blockhash: solana.Blockhash{7, 7, 7},
		statusErr: map[string]interface{}{
			"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 6000}},
		},
	}
	server, _ := testutil.NewRPCServer(t, env.handlers(t))

	sender := NewRPCSender(solana.New(server.URL))

	txn, payer := newInitializeTxn(t)
	sig, err := sender.Send(context.Background(), txn, payer)
	require.Error(t, err)
	assert.Equal(t, txn.Signature(), sig)

	assert.True(t, errors.Is(ertransfer_program.ParseError(err), ertransfer_program.ErrInsufficientBalance))
}

func TestRPCSender_PreflightFailure(t *testing.T) {
	env := &rpcEnv{blockhash: solana.Blockhash{7, 7, 7}}
	handlers := env.handlers(t)
	handlers["sendTransaction"] = func(params []json.RawMessage) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{
			"code":    -32002,
			"message": "Transaction simulation failed",
			"data": map[string]interface{}{
				"err": "BlockhashNotFound",
			},
		}
	}
	server, _ := testutil.NewRPCServer(t, handlers)

	sender := NewRPCSender(solana.New(server.URL))

	txn, payer := newInitializeTxn(t)
	sig, err := sender.Send(context.Background(), txn, payer)
	require.Error(t, err)
	assert.Equal(t, txn.Signature(), sig)

	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.EqualValues(t, "BlockhashNotFound", txErr.ErrorKey())
	assert.EqualValues(t, 0, atomic.LoadInt32(&env.statuses))
}

func TestRPCSender_Options(t *testing.T) {
	env := &rpcEnv{blockhash: solana.Blockhash{7, 7, 7}}
	server, _ := testutil.NewRPCServer(t, env.handlers(t))

	t.Run("without confirmation", func(t *testing.T) {
		sender := NewRPCSender(solana.New(server.URL), WithoutConfirmation())

		txn, payer := newInitializeTxn(t)
		_, err := sender.Send(context.Background(), txn, payer)
		require.NoError(t, err)
		assert.EqualValues(t, 0, atomic.LoadInt32(&env.statuses))
	})

	t.Run("custom confirmer", func(t *testing.T) {
		confirmer := &fakeConfirmer{err: errors.New("timed out")}
		sender := NewRPCSender(solana.New(server.URL), WithConfirmer(confirmer), WithCommitment(solana.CommitmentFinalized))

		txn, payer := newInitializeTxn(t)
		sig, err := sender.Send(context.Background(), txn, payer)
		assert.Equal(t, confirmer.err, err)
		assert.Equal(t, []solana.Signature{sig}, confirmer.waited)
		assert.EqualValues(t, 0, atomic.LoadInt32(&env.statuses))
	})
}

func TestRouterSender_Send(t *testing.T) {
	env := &rpcEnv{blockhash: solana.Blockhash{3, 1, 4}}
	server, calls := testutil.NewRPCServer(t, env.handlers(t))

	sender := NewRouterSender(magicrouter.New(server.URL))

	txn, payer := newInitializeTxn(t)
	sig, err := sender.Send(context.Background(), txn, payer)
	require.NoError(t, err)

	assert.Equal(t, txn.Signature(), sig)
	assert.Equal(t, env.blockhash, txn.Message.RecentBlockhash)
	require.Len(t, env.submitted, 1)

	// getBlockhashForAccounts, sendTransaction, getSignatureStatuses
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestRouterSender_NoSigners(t *testing.T) {
	env := &rpcEnv{blockhash: solana.Blockhash{3, 1, 4}}
	server, calls := testutil.NewRPCServer(t, env.handlers(t))

	sender := NewRouterSender(magicrouter.New(server.URL))

	txn, _ := newInitializeTxn(t)
	_, err := sender.Send(context.Background(), txn)
	assert.Equal(t, magicrouter.ErrNoSigners, err)
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}
