package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// RPCHandler serves one JSON-RPC method. Returning a non-nil rpcErr sends it
// as the response's error object instead of a result.
type RPCHandler func(params []json.RawMessage) (result interface{}, rpcErr map[string]interface{})

// NewRPCServer starts a JSON-RPC 2.0 server that dispatches to handlers by
// method name. Unknown methods get a -32601 error. The returned counter is
// incremented on every request.
func NewRPCServer(t *testing.T, handlers map[string]RPCHandler) (*httptest.Server, *int32) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		var req struct {
			ID     int               `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}

		handler, ok := handlers[req.Method]
		if !ok {
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		} else if result, rpcErr := handler(req.Params); rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)

	return server, &calls
}
