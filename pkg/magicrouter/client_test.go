package magicrouter

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/ertransfer"
)

type testRouter struct {
	t *testing.T

	validator ed25519.PublicKey
	blockhash solana.Blockhash

	mu           sync.Mutex
	lastWritable []string
	submitted    []solana.Transaction
}

func newTestRouter(t *testing.T) (*testRouter, string) {
	validator, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	r := &testRouter{
		t:         t,
		validator: validator,
		blockhash: solana.Blockhash{9, 9, 9},
	}

	server := httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(server.Close)

	return r, server.URL
}

func (r *testRouter) serve(w http.ResponseWriter, req *http.Request) {
	var body struct {
		ID     int               `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	require.NoError(r.t, json.NewDecoder(req.Body).Decode(&body))

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": body.ID}

	switch body.Method {
	case "getIdentity":
		resp["result"] = map[string]interface{}{
			"identity": solana.ToBase58(r.validator),
			"fqdn":     "https://devnet-as.magicblock.app",
		}
	case "getRoutes":
		resp["result"] = []interface{}{
			map[string]interface{}{
				"identity":    solana.ToBase58(r.validator),
				"fqdn":        "https://devnet-as.magicblock.app",
				"baseFee":     0,
				"blockTimeMs": 50,
				"countryCode": "SG",
			},
		}
	case "getDelegationStatus":
		var account string
		require.NoError(r.t, json.Unmarshal(body.Params[0], &account))

		if account == solana.ToBase58(r.validator) {
			resp["result"] = map[string]interface{}{"isDelegated": false}
		} else {
			resp["result"] = map[string]interface{}{
				"isDelegated": true,
				"fqdn":        "https://devnet-as.magicblock.app",
				"delegationRecord": map[string]interface{}{
					"authority":      solana.ToBase58(r.validator),
					"owner":          solana.ToBase58(ertransfer.PROGRAM_ID),
					"delegationSlot": 77,
				},
			}
		}
	case "getBlockhashForAccounts":
		var accounts []string
		require.NoError(r.t, json.Unmarshal(body.Params[0], &accounts))

		r.mu.Lock()
		r.lastWritable = accounts
		r.mu.Unlock()

		resp["result"] = map[string]interface{}{
			"blockhash":            r.blockhash.String(),
			"lastValidBlockHeight": 1000,
		}
	case "sendTransaction":
		var encoded string
		require.NoError(r.t, json.Unmarshal(body.Params[0], &encoded))

		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(r.t, err)

		var txn solana.Transaction
		require.NoError(r.t, txn.Unmarshal(raw))

		r.mu.Lock()
		r.submitted = append(r.submitted, txn)
		r.mu.Unlock()

		resp["result"] = txn.Signature().String()
	default:
		resp["error"] = map[string]interface{}{"code": -32601, "message": "Method not found"}
	}

	w.Header().Set("Content-Type", "application/json")
	require.NoError(r.t, json.NewEncoder(w).Encode(resp))
}

func TestGetClosestValidator(t *testing.T) {
	router, endpoint := newTestRouter(t)

	validator, err := New(endpoint).GetClosestValidator(context.Background())
	require.NoError(t, err)
	assert.Equal(t, router.validator, validator.Identity)
	assert.Equal(t, "https://devnet-as.magicblock.app", validator.FQDN)
}

func TestGetRoutes(t *testing.T) {
	router, endpoint := newTestRouter(t)

	routes, err := New(endpoint).GetRoutes(context.Background())
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, router.validator, routes[0].Identity)
	assert.EqualValues(t, 50, routes[0].BlockTimeMs)
	assert.Equal(t, "SG", routes[0].CountryCode)
}

func TestGetDelegationStatus(t *testing.T) {
	router, endpoint := newTestRouter(t)
	c := New(endpoint)

	status, err := c.GetDelegationStatus(context.Background(), router.validator)
	require.NoError(t, err)
	assert.False(t, status.IsDelegated)
	assert.Nil(t, status.Authority)

	account, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	status, err = c.GetDelegationStatus(context.Background(), account)
	require.NoError(t, err)
	assert.True(t, status.IsDelegated)
	assert.Equal(t, router.validator, status.Authority)
	assert.Equal(t, ertransfer.PROGRAM_ID, status.Owner)
	assert.EqualValues(t, 77, status.DelegationSlot)
}

func TestSendMagicTransaction(t *testing.T) {
	router, endpoint := newTestRouter(t)

	_, payer, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	payerKey := payer.Public().(ed25519.PublicKey)

	balance, _, err := ertransfer.GetBalanceAddress(payerKey)
	require.NoError(t, err)

	txn := solana.NewTransaction(
		payerKey,
		ertransfer.NewUndelegateInstruction(&ertransfer.UndelegateInstructionAccounts{
			Payer:   payerKey,
			Balance: balance,
		}),
	)

	c := New(endpoint)

	_, err = c.SendMagicTransaction(context.Background(), &txn, solana.CommitmentConfirmed)
	assert.Equal(t, ErrNoSigners, err)

	sig, err := c.SendMagicTransaction(context.Background(), &txn, solana.CommitmentConfirmed, payer)
	require.NoError(t, err)
	assert.Equal(t, txn.Signature(), sig)

	router.mu.Lock()
	defer router.mu.Unlock()

	assert.ElementsMatch(t, []string{
		solana.ToBase58(payerKey),
		solana.ToBase58(balance),
		"MagicContext1111111111111111111111111111111",
	}, router.lastWritable)

	require.Len(t, router.submitted, 1)
	submitted := router.submitted[0]
	assert.Equal(t, router.blockhash, submitted.Message.RecentBlockhash)
	assert.NoError(t, submitted.VerifySignatures())
}
