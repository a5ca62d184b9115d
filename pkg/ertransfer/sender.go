package ertransfer

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/alizeeshan1234/er-transfer/pkg/magicrouter"
	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

// Sender signs and submits transactions to one layer, either the base layer
// or an ephemeral rollup, and reads account state from it.
type Sender interface {
	// Send signs the transaction with a blockhash valid on the layer, submits
	// it and waits for confirmation. The returned signature is set whenever
	// the transaction was signed, even if it then failed.
	Send(ctx context.Context, txn *solana.Transaction, signers ...ed25519.PrivateKey) (solana.Signature, error)

	GetAccountInfo(ctx context.Context, account ed25519.PublicKey) (solana.AccountInfo, error)
}

// Confirmer waits for a submitted signature to reach a commitment level.
type Confirmer interface {
	WaitForSignature(ctx context.Context, sig solana.Signature, commitment solana.Commitment) error
}

type senderOpts struct {
	commitment solana.Commitment
	confirmer  Confirmer
	skipWait   bool
}

type SenderOption func(*senderOpts)

// WithCommitment sets the commitment used for preflight, confirmation and
// account reads. Defaults to confirmed.
func WithCommitment(commitment solana.Commitment) SenderOption {
	return func(o *senderOpts) {
		o.commitment = commitment
	}
}

// WithConfirmer replaces the default signature status polling, for example
// with a websocket subscription.
func WithConfirmer(confirmer Confirmer) SenderOption {
	return func(o *senderOpts) {
		o.confirmer = confirmer
	}
}

// WithoutConfirmation returns as soon as the transaction is accepted.
func WithoutConfirmation() SenderOption {
	return func(o *senderOpts) {
		o.skipWait = true
	}
}

type rpcSender struct {
	log    *logrus.Entry
	client solana.Client
	opts   senderOpts
}

// NewRPCSender returns a Sender that talks to a Solana RPC node directly.
func NewRPCSender(client solana.Client, opts ...SenderOption) Sender {
	s := &rpcSender{
		log:    logrus.StandardLogger().WithField("type", "ertransfer/rpc_sender"),
		client: client,
		opts:   applySenderOpts(client, opts),
	}
	return s
}

func (s *rpcSender) Send(ctx context.Context, txn *solana.Transaction, signers ...ed25519.PrivateKey) (solana.Signature, error) {
	blockhash, err := s.client.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "error getting latest blockhash")
	}

	txn.SetBlockhash(blockhash)
	if err := txn.Sign(signers...); err != nil {
		return solana.Signature{}, errors.Wrap(err, "error signing transaction")
	}

	sig, err := s.client.SubmitTransaction(ctx, *txn, s.opts.commitment)
	if err != nil {
		return txn.Signature(), err
	}

	return sig, s.opts.wait(ctx, s.log, sig)
}

func (s *rpcSender) GetAccountInfo(ctx context.Context, account ed25519.PublicKey) (solana.AccountInfo, error) {
	return s.client.GetAccountInfo(ctx, account, s.opts.commitment)
}

type routerSender struct {
	log    *logrus.Entry
	router magicrouter.Client
	opts   senderOpts
}

// NewRouterSender returns a Sender that submits through the Magic Router,
// which forwards each transaction to the layer holding its writable accounts.
func NewRouterSender(router magicrouter.Client, opts ...SenderOption) Sender {
	return &routerSender{
		log:    logrus.StandardLogger().WithField("type", "ertransfer/router_sender"),
		router: router,
		opts:   applySenderOpts(router, opts),
	}
}

func (s *routerSender) Send(ctx context.Context, txn *solana.Transaction, signers ...ed25519.PrivateKey) (solana.Signature, error) {
	sig, err := s.router.SendMagicTransaction(ctx, txn, s.opts.commitment, signers...)
	if err != nil {
		return txn.Signature(), err
	}

	return sig, s.opts.wait(ctx, s.log, sig)
}

func (s *routerSender) GetAccountInfo(ctx context.Context, account ed25519.PublicKey) (solana.AccountInfo, error) {
	return s.router.GetAccountInfo(ctx, account, s.opts.commitment)
}

func applySenderOpts(client solana.Client, opts []SenderOption) senderOpts {
	o := senderOpts{
		commitment: solana.CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.confirmer == nil {
		o.confirmer = &pollingConfirmer{client: client}
	}
	return o
}

func (o senderOpts) wait(ctx context.Context, log *logrus.Entry, sig solana.Signature) error {
	if o.skipWait {
		return nil
	}

	if err := o.confirmer.WaitForSignature(ctx, sig, o.commitment); err != nil {
		log.WithError(err).WithField("signature", sig.String()).Debug("transaction did not confirm")
		return err
	}
	return nil
}

type pollingConfirmer struct {
	client solana.Client
}

func (c *pollingConfirmer) WaitForSignature(ctx context.Context, sig solana.Signature, commitment solana.Commitment) error {
	_, err := c.client.GetSignatureStatus(ctx, sig, commitment)
	return err
}
