// Package ertransfer drives the er_transfer program end to end: creating
// balance accounts on the base layer, delegating them to an ephemeral rollup,
// transferring between them there and committing them back.
package ertransfer

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/alizeeshan1234/er-transfer/pkg/magicrouter"
	"github.com/alizeeshan1234/er-transfer/pkg/metrics"
	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/computebudget"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/delegation"
	ertransfer_program "github.com/alizeeshan1234/er-transfer/pkg/solana/ertransfer"
)

const (
	metricsStructName = "ertransfer.client"
)

var (
	ErrBalanceNotFound = errors.New("balance account not found")
	ErrNotDelegated    = errors.New("balance account is not delegated")
	ErrNoSender        = errors.New("no sender configured for route")
)

// Route selects the layer an operation is submitted to.
type Route uint8

const (
	RouteUnknown Route = iota
	RouteBase
	RouteEphemeral
)

func (r Route) String() string {
	switch r {
	case RouteBase:
		return "base"
	case RouteEphemeral:
		return "ephemeral"
	}
	return "unknown"
}

type Operation string

const (
	OperationInitialize Operation = "initialize"
	OperationDelegate   Operation = "delegate"
	OperationTransfer   Operation = "transfer"
	OperationUndelegate Operation = "undelegate"
)

// ValidatorResolver picks the ephemeral rollup validator to delegate to when
// the caller doesn't name one.
type ValidatorResolver interface {
	GetClosestValidator(ctx context.Context) (*magicrouter.Validator, error)
}

// DelegateOptions configure DelegateBalance.
type DelegateOptions struct {
	// CommitFrequencyMs defaults to ertransfer_program.DefaultCommitFrequencyMs.
	CommitFrequencyMs uint32

	// Validator pins the delegation. When nil, the resolver is asked, and
	// failing that any validator may take the account.
	Validator ed25519.PublicKey
}

type Option func(*Client)

// WithRoute overrides the layer an operation is sent to.
func WithRoute(op Operation, route Route) Option {
	return func(c *Client) {
		c.routes[op] = route
	}
}

// WithValidatorResolver sets how DelegateBalance picks a validator.
func WithValidatorResolver(resolver ValidatorResolver) Option {
	return func(c *Client) {
		c.resolver = resolver
	}
}

// WithComputeUnitPrice adds a priority fee to base layer transactions.
func WithComputeUnitPrice(microLamports uint64) Option {
	return func(c *Client) {
		c.computeUnitPrice = &microLamports
	}
}

// WithComputeUnitLimit caps the compute units of base layer transactions.
func WithComputeUnitLimit(units uint32) Option {
	return func(c *Client) {
		c.computeUnitLimit = &units
	}
}

// Client executes er_transfer operations, routing each to the layer that
// owns the accounts it writes.
type Client struct {
	log *logrus.Entry

	base      Sender
	ephemeral Sender
	resolver  ValidatorResolver

	routes map[Operation]Route

	computeUnitPrice *uint64
	computeUnitLimit *uint32
}

// NewClient returns a client. Initialize and DelegateBalance go to base,
// Transfer and Undelegate go to ephemeral, since both write delegated
// accounts.
func NewClient(base, ephemeral Sender, opts ...Option) *Client {
	c := &Client{
		log:       logrus.StandardLogger().WithField("type", "ertransfer/client"),
		base:      base,
		ephemeral: ephemeral,
		routes: map[Operation]Route{
			OperationInitialize: RouteBase,
			OperationDelegate:   RouteBase,
			OperationTransfer:   RouteEphemeral,
			OperationUndelegate: RouteEphemeral,
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RouteFor returns the layer an operation is sent to.
func (c *Client) RouteFor(op Operation) Route {
	return c.routes[op]
}

// Initialize creates the user's balance account with a zero balance.
func (c *Client) Initialize(ctx context.Context, user ed25519.PrivateKey) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Initialize")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	owner := user.Public().(ed25519.PublicKey)
	balance, _, err := ertransfer_program.GetBalanceAddress(owner)
	if err != nil {
		return sig, errors.Wrap(err, "initialize")
	}

	ix := ertransfer_program.NewInitializeInstruction(&ertransfer_program.InitializeInstructionAccounts{
		User:    owner,
		Balance: balance,
	})

	return c.submit(ctx, OperationInitialize, owner, []solana.Instruction{ix}, user)
}

// DelegateBalance hands the payer's balance account to an ephemeral rollup
// validator.
func (c *Client) DelegateBalance(ctx context.Context, payer ed25519.PrivateKey, opts DelegateOptions) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "DelegateBalance")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	owner := payer.Public().(ed25519.PublicKey)
	balance, _, err := ertransfer_program.GetBalanceAddress(owner)
	if err != nil {
		return sig, errors.Wrap(err, "delegate")
	}

	if opts.CommitFrequencyMs == 0 {
		opts.CommitFrequencyMs = ertransfer_program.DefaultCommitFrequencyMs
	}

	validator := opts.Validator
	if validator == nil && c.resolver != nil {
		resolved, err := c.resolver.GetClosestValidator(ctx)
		if err != nil {
			return sig, errors.Wrap(err, "delegate: error resolving validator")
		}
		validator = resolved.Identity

		c.log.WithFields(logrus.Fields{
			"method":    "DelegateBalance",
			"validator": solana.ToBase58(validator),
			"fqdn":      resolved.FQDN,
		}).Debug("resolved validator")
	}

	ix, err := ertransfer_program.NewDelegateBalanceInstruction(
		&ertransfer_program.DelegateBalanceInstructionAccounts{
			Payer:   owner,
			Balance: balance,
		},
		&ertransfer_program.DelegateBalanceInstructionArgs{
			CommitFrequencyMs: opts.CommitFrequencyMs,
			Validator:         validator,
		},
	)
	if err != nil {
		return sig, errors.Wrap(err, "delegate")
	}

	return c.submit(ctx, OperationDelegate, owner, []solana.Instruction{ix}, payer)
}

// Transfer moves amount from the payer's balance to the receiver's.
func (c *Client) Transfer(ctx context.Context, payer ed25519.PrivateKey, receiver ed25519.PublicKey, amount uint64) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Transfer")
	tracer.AddAttribute("amount", amount)
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	owner := payer.Public().(ed25519.PublicKey)
	balance, _, err := ertransfer_program.GetBalanceAddress(owner)
	if err != nil {
		return sig, errors.Wrap(err, "transfer")
	}
	receiverBalance, _, err := ertransfer_program.GetBalanceAddress(receiver)
	if err != nil {
		return sig, errors.Wrap(err, "transfer")
	}

	ix := ertransfer_program.NewTransferInstruction(
		&ertransfer_program.TransferInstructionAccounts{
			Payer:           owner,
			Balance:         balance,
			Receiver:        receiver,
			ReceiverBalance: receiverBalance,
		},
		&ertransfer_program.TransferInstructionArgs{
			Amount: amount,
		},
	)

	return c.submit(ctx, OperationTransfer, owner, []solana.Instruction{ix}, payer)
}

// Undelegate commits the payer's balance back to the base layer and returns
// ownership to the er_transfer program.
func (c *Client) Undelegate(ctx context.Context, payer ed25519.PrivateKey) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Undelegate")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	owner := payer.Public().(ed25519.PublicKey)
	balance, _, err := ertransfer_program.GetBalanceAddress(owner)
	if err != nil {
		return sig, errors.Wrap(err, "undelegate")
	}

	ix := ertransfer_program.NewUndelegateInstruction(&ertransfer_program.UndelegateInstructionAccounts{
		Payer:   owner,
		Balance: balance,
	})

	return c.submit(ctx, OperationUndelegate, owner, []solana.Instruction{ix}, payer)
}

// GetBalance returns the owner's current balance, read from the ephemeral
// rollup while the account is delegated and from the base layer otherwise.
//
// Returns ErrBalanceNotFound if the owner hasn't initialized an account.
func (c *Client) GetBalance(ctx context.Context, owner ed25519.PublicKey) (uint64, error) {
	balance, _, err := ertransfer_program.GetBalanceAddress(owner)
	if err != nil {
		return 0, err
	}

	info, err := c.getAccountInfo(ctx, c.base, balance)
	if err != nil {
		return 0, err
	}

	if bytes.Equal(info.Owner, delegation.ProgramKey) && c.ephemeral != nil {
		info, err = c.getAccountInfo(ctx, c.ephemeral, balance)
		if err != nil {
			return 0, err
		}
	}

	account, err := ertransfer_program.BalanceAccountFromAccountInfo(info)
	if err != nil {
		return 0, errors.Wrap(err, "error decoding balance account")
	}
	return account.Balance, nil
}

// IsDelegated reports whether the owner's balance account is currently owned
// by the delegation program on the base layer.
//
// Returns ErrBalanceNotFound if the owner hasn't initialized an account.
func (c *Client) IsDelegated(ctx context.Context, owner ed25519.PublicKey) (bool, error) {
	balance, _, err := ertransfer_program.GetBalanceAddress(owner)
	if err != nil {
		return false, err
	}

	info, err := c.getAccountInfo(ctx, c.base, balance)
	if err != nil {
		return false, err
	}

	return bytes.Equal(info.Owner, delegation.ProgramKey), nil
}

// GetDelegationRecord fetches the delegation record for the owner's balance
// account from the base layer.
//
// Returns ErrNotDelegated if the account isn't delegated.
func (c *Client) GetDelegationRecord(ctx context.Context, owner ed25519.PublicKey) (*delegation.DelegationRecord, error) {
	balance, _, err := ertransfer_program.GetBalanceAddress(owner)
	if err != nil {
		return nil, err
	}

	address, _, err := delegation.GetDelegationRecordAddress(balance)
	if err != nil {
		return nil, err
	}

	info, err := c.base.GetAccountInfo(ctx, address)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrNotDelegated
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting delegation record")
	}

	return delegation.DelegationRecordFromAccountInfo(info)
}

func (c *Client) submit(ctx context.Context, op Operation, payer ed25519.PublicKey, instructions []solana.Instruction, signers ...ed25519.PrivateKey) (solana.Signature, error) {
	route := c.routes[op]

	var sender Sender
	switch route {
	case RouteBase:
		sender = c.base
		instructions = c.withComputeBudget(instructions)
	case RouteEphemeral:
		sender = c.ephemeral
	}
	if sender == nil {
		return solana.Signature{}, errors.Wrapf(ErrNoSender, "%s: %s", op, route)
	}

	log := c.log.WithFields(logrus.Fields{
		"operation": op,
		"route":     route.String(),
		"payer":     solana.ToBase58(payer),
	})

	txn := solana.NewTransaction(payer, instructions...)
	sig, err := sender.Send(ctx, &txn, signers...)
	if err != nil {
		log.WithError(err).WithField("signature", sig.String()).Info("transaction failed")
		return sig, errors.Wrapf(ertransfer_program.ParseError(err), "%s", op)
	}

	log.WithField("signature", sig.String()).Debug("transaction confirmed")
	return sig, nil
}

func (c *Client) withComputeBudget(instructions []solana.Instruction) []solana.Instruction {
	var budget []solana.Instruction
	if c.computeUnitLimit != nil {
		budget = append(budget, computebudget.SetComputeUnitLimit(*c.computeUnitLimit))
	}
	if c.computeUnitPrice != nil {
		budget = append(budget, computebudget.SetComputeUnitPrice(*c.computeUnitPrice))
	}
	return append(budget, instructions...)
}

func (c *Client) getAccountInfo(ctx context.Context, sender Sender, account ed25519.PublicKey) (solana.AccountInfo, error) {
	if sender == nil {
		return solana.AccountInfo{}, ErrNoSender
	}

	info, err := sender.GetAccountInfo(ctx, account)
	if err == solana.ErrNoAccountInfo {
		return info, ErrBalanceNotFound
	} else if err != nil {
		return info, errors.Wrap(err, "error getting balance account")
	}
	return info, nil
}
