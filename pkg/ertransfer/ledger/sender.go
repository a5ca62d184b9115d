package ledger

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/ertransfer"
	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

type sender struct {
	ledger *Ledger
	layer  Layer
}

// BaseSender submits to the ledger's base layer.
func (l *Ledger) BaseSender() ertransfer.Sender {
	return &sender{ledger: l, layer: LayerBase}
}

// EphemeralSender submits to the ledger's ephemeral rollup.
func (l *Ledger) EphemeralSender() ertransfer.Sender {
	return &sender{ledger: l, layer: LayerEphemeral}
}

// Send implements ertransfer.Sender.Send. Execution is synchronous, so a
// returned signature is already final.
func (s *sender) Send(ctx context.Context, txn *solana.Transaction, signers ...ed25519.PrivateKey) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}

	txn.SetBlockhash(s.ledger.Blockhash())
	if err := txn.Sign(signers...); err != nil {
		return solana.Signature{}, errors.Wrap(err, "error signing transaction")
	}

	if err := s.ledger.process(s.layer, txn); err != nil {
		return txn.Signature(), err
	}
	return txn.Signature(), nil
}

// GetAccountInfo implements ertransfer.Sender.GetAccountInfo
func (s *sender) GetAccountInfo(ctx context.Context, account ed25519.PublicKey) (solana.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return solana.AccountInfo{}, err
	}
	return s.ledger.getAccountInfo(s.layer, account)
}
