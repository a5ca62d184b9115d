// Package magicrouter is a client for the MagicBlock Magic Router, a Solana
// JSON-RPC endpoint that routes each transaction to the base layer or to the
// ephemeral rollup validator holding its writable accounts.
package magicrouter

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

const (
	DefaultEndpoint          = string(solana.EnvironmentRouterDev)
	DefaultWebsocketEndpoint = string(solana.WebsocketEnvironmentRouterDev)
)

var (
	ErrNoValidator = errors.New("router returned no validator")
	ErrNoSigners   = errors.New("at least one signer is required")
)

// Validator is an ephemeral rollup validator known to the router.
type Validator struct {
	Identity    ed25519.PublicKey
	FQDN        string
	BaseFee     uint64
	BlockTimeMs uint64
	CountryCode string
}

// DelegationStatus describes where an account currently lives.
type DelegationStatus struct {
	IsDelegated bool

	// Set when IsDelegated is true.
	Authority      ed25519.PublicKey
	Owner          ed25519.PublicKey
	DelegationSlot uint64
	FQDN           string
}

// Client is a Solana RPC client pointed at the Magic Router, extended with the
// router's own methods.
type Client interface {
	solana.Client

	// GetClosestValidator returns the ephemeral rollup validator the router
	// considers closest to the caller.
	GetClosestValidator(ctx context.Context) (*Validator, error)

	// GetRoutes lists the validators the router can forward to.
	GetRoutes(ctx context.Context) ([]*Validator, error)

	GetDelegationStatus(ctx context.Context, account ed25519.PublicKey) (*DelegationStatus, error)

	// GetBlockhashForAccounts returns a blockhash valid on the layer that
	// holds the given writable accounts.
	GetBlockhashForAccounts(ctx context.Context, accounts []ed25519.PublicKey) (solana.Blockhash, error)

	// SendMagicTransaction sets a blockhash valid for the transaction's
	// writable accounts, signs it, and submits it to the router.
	SendMagicTransaction(ctx context.Context, txn *solana.Transaction, commitment solana.Commitment, signers ...ed25519.PrivateKey) (solana.Signature, error)
}

type client struct {
	solana.Client

	log *logrus.Entry
}

// New returns a router client using the specified endpoint.
func New(endpoint string, opts ...solana.Option) Client {
	return &client{
		Client: solana.New(endpoint, opts...),
		log:    logrus.StandardLogger().WithField("type", "magicrouter/client"),
	}
}

type validatorResponse struct {
	Identity    string `json:"identity"`
	FQDN        string `json:"fqdn"`
	BaseFee     uint64 `json:"baseFee"`
	BlockTimeMs uint64 `json:"blockTimeMs"`
	CountryCode string `json:"countryCode"`
}

func (v validatorResponse) toValidator() (*Validator, error) {
	if len(v.Identity) == 0 {
		return nil, ErrNoValidator
	}

	identity, err := solana.PublicKeyFromString(v.Identity)
	if err != nil {
		return nil, errors.Wrap(err, "invalid validator identity")
	}

	return &Validator{
		Identity:    identity,
		FQDN:        v.FQDN,
		BaseFee:     v.BaseFee,
		BlockTimeMs: v.BlockTimeMs,
		CountryCode: v.CountryCode,
	}, nil
}

func (c *client) GetClosestValidator(ctx context.Context) (*Validator, error) {
	var resp validatorResponse
	if err := c.Call(ctx, &resp, "getIdentity"); err != nil {
		return nil, errors.Wrap(err, "getIdentity() failed to send request")
	}

	validator, err := resp.toValidator()
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"validator": solana.ToBase58(validator.Identity),
		"fqdn":      validator.FQDN,
	}).Debug("resolved closest validator")

	return validator, nil
}

func (c *client) GetRoutes(ctx context.Context) ([]*Validator, error) {
	var resp []validatorResponse
	if err := c.Call(ctx, &resp, "getRoutes"); err != nil {
		return nil, errors.Wrap(err, "getRoutes() failed to send request")
	}

	validators := make([]*Validator, 0, len(resp))
	for _, v := range resp {
		validator, err := v.toValidator()
		if err != nil {
			return nil, err
		}
		validators = append(validators, validator)
	}
	return validators, nil
}

func (c *client) GetDelegationStatus(ctx context.Context, account ed25519.PublicKey) (*DelegationStatus, error) {
	var resp struct {
		IsDelegated      bool   `json:"isDelegated"`
		FQDN             string `json:"fqdn"`
		DelegationRecord *struct {
			Authority      string `json:"authority"`
			Owner          string `json:"owner"`
			DelegationSlot uint64 `json:"delegationSlot"`
		} `json:"delegationRecord"`
	}

	if err := c.Call(ctx, &resp, "getDelegationStatus", base58.Encode(account)); err != nil {
		return nil, errors.Wrap(err, "getDelegationStatus() failed to send request")
	}

	status := &DelegationStatus{
		IsDelegated: resp.IsDelegated,
		FQDN:        resp.FQDN,
	}

	if record := resp.DelegationRecord; record != nil {
		var err error
		if status.Authority, err = solana.PublicKeyFromString(record.Authority); err != nil {
			return nil, errors.Wrap(err, "invalid delegation authority")
		}
		if status.Owner, err = solana.PublicKeyFromString(record.Owner); err != nil {
			return nil, errors.Wrap(err, "invalid delegation owner")
		}
		status.DelegationSlot = record.DelegationSlot
	}

	return status, nil
}

func (c *client) GetBlockhashForAccounts(ctx context.Context, accounts []ed25519.PublicKey) (solana.Blockhash, error) {
	encoded := make([]string, len(accounts))
	for i, account := range accounts {
		encoded[i] = base58.Encode(account)
	}

	var resp struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	}

	// note: wrapped so the account list is sent as the first positional param
	if err := c.Call(ctx, &resp, "getBlockhashForAccounts", []interface{}{encoded}); err != nil {
		return solana.Blockhash{}, errors.Wrap(err, "getBlockhashForAccounts() failed to send request")
	}

	return solana.BlockhashFromString(resp.Blockhash)
}

func (c *client) SendMagicTransaction(ctx context.Context, txn *solana.Transaction, commitment solana.Commitment, signers ...ed25519.PrivateKey) (solana.Signature, error) {
	if len(signers) == 0 {
		return solana.Signature{}, ErrNoSigners
	}

	writable := txn.WritableAccounts()

	blockhash, err := c.GetBlockhashForAccounts(ctx, writable)
	if err != nil {
		return solana.Signature{}, err
	}

	txn.SetBlockhash(blockhash)
	if err := txn.Sign(signers...); err != nil {
		return solana.Signature{}, errors.Wrap(err, "error signing transaction")
	}

	log := c.log.WithFields(logrus.Fields{
		"method":    "SendMagicTransaction",
		"signature": txn.Signature().String(),
		"writable":  len(writable),
	})

	sig, err := c.SubmitTransaction(ctx, *txn, commitment)
	if err != nil {
		log.WithError(err).Debug("router rejected transaction")
		return sig, err
	}

	log.Debug("transaction submitted")
	return sig, nil
}
