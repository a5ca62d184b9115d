// Package ws waits on transaction signatures over the Solana websocket
// pubsub API.
package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

var (
	ErrSubscriptionFailed = errors.New("subscription failed")
	ErrClosed             = errors.New("subscriber closed")
)

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params *struct {
		Result struct {
			Value struct {
				Err json.RawMessage `json:"err"`
			} `json:"value"`
		} `json:"result"`
		Subscription uint64 `json:"subscription"`
	} `json:"params"`
}

// Subscriber holds a single websocket connection. Waits are serialized on it.
//
// A wait that fails to read, including one aborted by its context, discards
// the connection. The next wait dials a fresh one.
type Subscriber struct {
	log      *logrus.Entry
	endpoint string

	nextID uint64

	waitMu sync.Mutex

	connMu sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Dial connects to a websocket RPC endpoint.
func Dial(ctx context.Context, endpoint string) (*Subscriber, error) {
	s := &Subscriber{
		log:      logrus.StandardLogger().WithField("type", "solana/ws"),
		endpoint: endpoint,
	}

	if _, err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// WaitForSignature blocks until sig reaches the commitment level. The
// transaction error is returned when the transaction failed.
func (s *Subscriber) WaitForSignature(ctx context.Context, sig solana.Signature, commitment solana.Commitment) error {
	log := s.log.WithField("signature", sig.String())

	s.waitMu.Lock()
	defer s.waitMu.Unlock()

	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}

	id := atomic.AddUint64(&s.nextID, 1)
	if err := conn.WriteJSON(request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "signatureSubscribe",
		Params:  []interface{}{sig.String(), commitment},
	}); err != nil {
		s.discard(conn)
		return errors.Wrap(err, "error sending signatureSubscribe")
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	var subscription *uint64
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			// Read errors are permanent on a websocket connection.
			s.discard(conn)

			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "error reading from websocket")
		}

		var e envelope
		if err := json.Unmarshal(msg, &e); err != nil {
			log.WithError(err).Debug("ignoring malformed message")
			continue
		}

		switch {
		case e.ID != nil && *e.ID == id:
			if e.Error != nil {
				return errors.Wrapf(ErrSubscriptionFailed, "%d: %s", e.Error.Code, e.Error.Message)
			}

			var subID uint64
			if err := json.Unmarshal(e.Result, &subID); err != nil {
				return errors.Wrap(err, "invalid subscription id")
			}
			subscription = &subID
		case e.Method == "signatureNotification" && e.Params != nil:
			if subscription == nil || e.Params.Subscription != *subscription {
				continue
			}

			// Signature subscriptions are removed by the server after the
			// first notification.
			return parseNotificationError(e.Params.Result.Value.Err)
		}
	}
}

// connect returns the live connection, dialing a new one if the previous
// connection was discarded.
func (s *Subscriber) connect(ctx context.Context) (*websocket.Conn, error) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.conn != nil {
		return s.conn, nil
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "error dialing %s", s.endpoint)
	}
	resp.Body.Close()

	s.conn = conn
	return conn, nil
}

func (s *Subscriber) discard(conn *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == conn {
		s.conn = nil
	}
	if err := conn.Close(); err != nil {
		s.log.WithError(err).Debug("error closing websocket")
	}
}

// Close closes the underlying connection. Subsequent waits fail with
// ErrClosed.
func (s *Subscriber) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.closed = true
	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn = nil
	return err
}

func parseNotificationError(raw json.RawMessage) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return errors.Wrap(err, "invalid transaction error")
	}

	txErr, err := solana.ParseTransactionError(v)
	if err != nil {
		return errors.Wrap(err, "failed to parse transaction error")
	}
	if txErr == nil {
		return nil
	}
	return txErr
}
