package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

// newTestServer answers signatureSubscribe requests. Signatures present in
// results are notified with the mapped err payload, others are never notified.
func newTestServer(t *testing.T, results map[string]interface{}) string {
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var subscription uint64
		for {
			var req struct {
				ID     uint64            `json:"id"`
				Method string            `json:"method"`
				Params []json.RawMessage `json:"params"`
			}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}

			if req.Method != "signatureSubscribe" {
				_ = conn.WriteJSON(map[string]interface{}{
					"jsonrpc": "2.0",
					"id":      req.ID,
					"error":   map[string]interface{}{"code": -32601, "message": "Method not found"},
				})
				continue
			}

			var sig string
			require.NoError(t, json.Unmarshal(req.Params[0], &sig))

			subscription++
			_ = conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": subscription})

			// Noise for other subscriptions must be ignored.
			_ = conn.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "signatureNotification",
				"params": map[string]interface{}{
					"result":       map[string]interface{}{"value": map[string]interface{}{"err": "AccountInUse"}},
					"subscription": subscription + 100,
				},
			})

			txErr, ok := results[sig]
			if !ok {
				continue
			}
			_ = conn.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "signatureNotification",
				"params": map[string]interface{}{
					"result": map[string]interface{}{
						"context": map[string]interface{}{"slot": 5},
						"value":   map[string]interface{}{"err": txErr},
					},
					"subscription": subscription,
				},
			})
		}
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWaitForSignature(t *testing.T) {
	success := solana.Signature{1}
	failure := solana.Signature{2}

	endpoint := newTestServer(t, map[string]interface{}{
		success.String(): nil,
		failure.String(): map[string]interface{}{
			"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 6000}},
		},
	})

	ctx := context.Background()
	s, err := Dial(ctx, endpoint)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WaitForSignature(ctx, success, solana.CommitmentConfirmed))

	err = s.WaitForSignature(ctx, failure, solana.CommitmentConfirmed)
	require.Error(t, err)
	code, ok := solana.CustomErrorCode(err)
	require.True(t, ok)
	assert.EqualValues(t, 6000, code)
}

func TestWaitForSignature_ContextCanceled(t *testing.T) {
	endpoint := newTestServer(t, map[string]interface{}{})

	s, err := Dial(context.Background(), endpoint)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = s.WaitForSignature(ctx, solana.Signature{3}, solana.CommitmentConfirmed)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestWaitForSignature_AfterTimeout(t *testing.T) {
	confirmed := solana.Signature{4}
	endpoint := newTestServer(t, map[string]interface{}{
		confirmed.String(): nil,
	})

	s, err := Dial(context.Background(), endpoint)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = s.WaitForSignature(ctx, solana.Signature{3}, solana.CommitmentConfirmed)
	require.Equal(t, context.DeadlineExceeded, err)

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		require.NoError(t, s.WaitForSignature(ctx, confirmed, solana.CommitmentConfirmed))
		cancel()
	}
}

func TestWaitForSignature_Closed(t *testing.T) {
	endpoint := newTestServer(t, map[string]interface{}{})

	s, err := Dial(context.Background(), endpoint)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err = s.WaitForSignature(context.Background(), solana.Signature{3}, solana.CommitmentConfirmed)
	assert.Equal(t, ErrClosed, err)
}

func TestParseNotificationError(t *testing.T) {
	assert.NoError(t, parseNotificationError(nil))
	assert.NoError(t, parseNotificationError(json.RawMessage("null")))

	err := parseNotificationError(json.RawMessage(`"BlockhashNotFound"`))
	require.Error(t, err)
	assert.Equal(t, "BlockhashNotFound", err.Error())
}
