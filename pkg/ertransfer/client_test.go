package ertransfer

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alizeeshan1234/er-transfer/pkg/magicrouter"
	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/computebudget"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/delegation"
	ertransfer_program "github.com/alizeeshan1234/er-transfer/pkg/solana/ertransfer"
	"github.com/alizeeshan1234/er-transfer/pkg/testutil"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []solana.Transaction
	err      error
	accounts map[string]solana.AccountInfo
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		accounts: make(map[string]solana.AccountInfo),
	}
}

func (s *fakeSender) Send(ctx context.Context, txn *solana.Transaction, signers ...ed25519.PrivateKey) (solana.Signature, error) {
	txn.SetBlockhash(solana.Blockhash{1, 2, 3})
	if err := txn.Sign(signers...); err != nil {
		return solana.Signature{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, *txn)
	return txn.Signature(), s.err
}

func (s *fakeSender) GetAccountInfo(_ context.Context, account ed25519.PublicKey) (solana.AccountInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.accounts[base58.Encode(account)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return info, nil
}

func (s *fakeSender) setBalance(t *testing.T, owner ed25519.PublicKey, programOwner ed25519.PublicKey, balance uint64) {
	address, _, err := ertransfer_program.GetBalanceAddress(owner)
	require.NoError(t, err)

	state := ertransfer_program.BalanceAccount{Balance: balance}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[base58.Encode(address)] = solana.AccountInfo{
		Data:     state.Marshal(),
		Owner:    programOwner,
		Lamports: 1_002_240,
	}
}

func (s *fakeSender) transactions() []solana.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]solana.Transaction(nil), s.sent...)
}

type fakeResolver struct {
	validator ed25519.PublicKey
	err       error
	calls     int
}

func (r *fakeResolver) GetClosestValidator(_ context.Context) (*magicrouter.Validator, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &magicrouter.Validator{Identity: r.validator, FQDN: "https://devnet-as.magicblock.app"}, nil
}

func TestClient_DefaultRoutes(t *testing.T) {
	client := NewClient(newFakeSender(), newFakeSender())

	assert.Equal(t, RouteBase, client.RouteFor(OperationInitialize))
	assert.Equal(t, RouteBase, client.RouteFor(OperationDelegate))
	assert.Equal(t, RouteEphemeral, client.RouteFor(OperationTransfer))
	assert.Equal(t, RouteEphemeral, client.RouteFor(OperationUndelegate))
	assert.Equal(t, RouteUnknown, client.RouteFor(Operation("close")))

	assert.Equal(t, "base", RouteBase.String())
	assert.Equal(t, "ephemeral", RouteEphemeral.String())
	assert.Equal(t, "unknown", RouteUnknown.String())
}

func TestClient_Routing(t *testing.T) {
	ctx := context.Background()
	payer := testutil.GenerateSolanaKeypair(t)
	receiver := testutil.GenerateSolanaKeys(t, 1)[0]

	base, ephemeral := newFakeSender(), newFakeSender()
	client := NewClient(base, ephemeral)

	_, err := client.Initialize(ctx, payer)
	require.NoError(t, err)
	_, err = client.DelegateBalance(ctx, payer, DelegateOptions{})
	require.NoError(t, err)
	_, err = client.Transfer(ctx, payer, receiver, 1)
	require.NoError(t, err)
	_, err = client.Undelegate(ctx, payer)
	require.NoError(t, err)

	baseTxns := base.transactions()
	require.Len(t, baseTxns, 2)
	assertInstructionType(t, baseTxns[0], ertransfer_program.InstructionTypeInitialize)
	assertInstructionType(t, baseTxns[1], ertransfer_program.InstructionTypeDelegateBalance)

	ephemeralTxns := ephemeral.transactions()
	require.Len(t, ephemeralTxns, 2)
	assertInstructionType(t, ephemeralTxns[0], ertransfer_program.InstructionTypeTransfer)
	assertInstructionType(t, ephemeralTxns[1], ertransfer_program.InstructionTypeUndelegate)

	for _, txn := range append(baseTxns, ephemeralTxns...) {
		assert.EqualValues(t, payer.Public(), txn.Message.Accounts[0])
		assert.NoError(t, txn.VerifySignatures())
	}
}

func TestClient_WithRoute(t *testing.T) {
	ctx := context.Background()
	payer := testutil.GenerateSolanaKeypair(t)
	receiver := testutil.GenerateSolanaKeys(t, 1)[0]

	base, ephemeral := newFakeSender(), newFakeSender()
	client := NewClient(base, ephemeral, WithRoute(OperationTransfer, RouteBase))
	assert.Equal(t, RouteBase, client.RouteFor(OperationTransfer))

	_, err := client.Transfer(ctx, payer, receiver, 10)
	require.NoError(t, err)

	assert.Len(t, base.transactions(), 1)
	assert.Empty(t, ephemeral.transactions())

	txn := base.transactions()[0]
	decompiled, err := ertransfer_program.DecompileInstruction(txn.Message, 0)
	require.NoError(t, err)
	require.Equal(t, ertransfer_program.InstructionTypeTransfer, decompiled.Type)
	assert.EqualValues(t, 10, decompiled.TransferArgs.Amount)
	assert.EqualValues(t, receiver, decompiled.Transfer.Receiver)
}

func TestClient_ComputeBudget(t *testing.T) {
	ctx := context.Background()
	payer := testutil.GenerateSolanaKeypair(t)
	receiver := testutil.GenerateSolanaKeys(t, 1)[0]

	base, ephemeral := newFakeSender(), newFakeSender()
	client := NewClient(
		base,
		ephemeral,
		WithComputeUnitLimit(200_000),
		WithComputeUnitPrice(1_000),
	)

	_, err := client.Initialize(ctx, payer)
	require.NoError(t, err)
	_, err = client.Transfer(ctx, payer, receiver, 1)
	require.NoError(t, err)

	txn := base.transactions()[0]
	require.Len(t, txn.Message.Instructions, 3)
	assert.True(t, computebudget.IsComputeBudgetInstruction(txn.Message, 0))
	assert.True(t, computebudget.IsComputeBudgetInstruction(txn.Message, 1))
	assert.True(t, ertransfer_program.IsErTransferInstruction(txn.Message, 2))

	budget, err := computebudget.DecompileBudget(txn.Message)
	require.NoError(t, err)
	require.NotNil(t, budget.UnitLimit)
	require.NotNil(t, budget.UnitPrice)
	assert.EqualValues(t, 200_000, *budget.UnitLimit)
	assert.EqualValues(t, 1_000, *budget.UnitPrice)

	// The ephemeral rollup charges no fees, so there's nothing to budget.
	txn = ephemeral.transactions()[0]
	require.Len(t, txn.Message.Instructions, 1)
	assert.True(t, ertransfer_program.IsErTransferInstruction(txn.Message, 0))
}

func TestClient_DelegateBalance_Validator(t *testing.T) {
	ctx := context.Background()
	payer := testutil.GenerateSolanaKeypair(t)
	keys := testutil.GenerateSolanaKeys(t, 2)
	resolved, pinned := keys[0], keys[1]

	for _, tc := range []struct {
		name      string
		resolver  *fakeResolver
		opts      DelegateOptions
		expected  ed25519.PublicKey
		frequency uint32
		calls     int
	}{
		{
			name:      "no resolver",
			frequency: ertransfer_program.DefaultCommitFrequencyMs,
		},
		{
			name:      "resolved",
			resolver:  &fakeResolver{validator: resolved},
			expected:  resolved,
			frequency: ertransfer_program.DefaultCommitFrequencyMs,
			calls:     1,
		},
		{
			name:      "pinned",
			resolver:  &fakeResolver{validator: resolved},
			opts:      DelegateOptions{Validator: pinned, CommitFrequencyMs: 5_000},
			expected:  pinned,
			frequency: 5_000,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			base := newFakeSender()

			var opts []Option
			if tc.resolver != nil {
				opts = append(opts, WithValidatorResolver(tc.resolver))
			}
			client := NewClient(base, newFakeSender(), opts...)

			_, err := client.DelegateBalance(ctx, payer, tc.opts)
			require.NoError(t, err)

			txns := base.transactions()
			require.Len(t, txns, 1)

			decompiled, err := ertransfer_program.DecompileInstruction(txns[0].Message, 0)
			require.NoError(t, err)
			require.Equal(t, ertransfer_program.InstructionTypeDelegateBalance, decompiled.Type)
			assert.Equal(t, tc.frequency, decompiled.DelegateBalanceArgs.CommitFrequencyMs)
			if tc.expected == nil {
				assert.Nil(t, decompiled.DelegateBalanceArgs.Validator)
			} else {
				assert.EqualValues(t, tc.expected, decompiled.DelegateBalanceArgs.Validator)
			}

			if tc.resolver != nil {
				assert.Equal(t, tc.calls, tc.resolver.calls)
			}
		})
	}
}

func TestClient_DelegateBalance_ResolverError(t *testing.T) {
	base := newFakeSender()
	resolverErr := errors.New("router unavailable")
	client := NewClient(base, newFakeSender(), WithValidatorResolver(&fakeResolver{err: resolverErr}))

	_, err := client.DelegateBalance(context.Background(), testutil.GenerateSolanaKeypair(t), DelegateOptions{})
	assert.True(t, errors.Is(err, resolverErr))
	assert.Empty(t, base.transactions())
}

func TestClient_ProgramError(t *testing.T) {
	payer := testutil.GenerateSolanaKeypair(t)
	receiver := testutil.GenerateSolanaKeys(t, 1)[0]

	txErr, err := solana.TransactionErrorFromInstructionError(
		solana.NewCustomInstructionError(0, uint32(ertransfer_program.ErrorCodeInsufficientBalance)),
	)
	require.NoError(t, err)

	ephemeral := newFakeSender()
	ephemeral.err = txErr
	client := NewClient(newFakeSender(), ephemeral)

	sig, err := client.Transfer(context.Background(), payer, receiver, 1)
	assert.True(t, errors.Is(err, ertransfer_program.ErrInsufficientBalance))
	assert.Contains(t, err.Error(), "transfer")

	// The signature is still reported so the failure can be looked up.
	assert.NotEqual(t, solana.Signature{}, sig)
	assert.Equal(t, ephemeral.transactions()[0].Signature(), sig)
}

func TestClient_OtherError(t *testing.T) {
	base := newFakeSender()
	base.err = solana.NewTransactionError(solana.TransactionErrorKey("InsufficientFundsForFee"))
	client := NewClient(base, newFakeSender())

	_, err := client.Initialize(context.Background(), testutil.GenerateSolanaKeypair(t))
	require.Error(t, err)

	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.EqualValues(t, "InsufficientFundsForFee", txErr.ErrorKey())
}

func TestClient_NoSender(t *testing.T) {
	ctx := context.Background()
	payer := testutil.GenerateSolanaKeypair(t)

	client := NewClient(newFakeSender(), nil)

	_, err := client.Undelegate(ctx, payer)
	assert.True(t, errors.Is(err, ErrNoSender))

	_, err = client.Initialize(ctx, payer)
	assert.NoError(t, err)
}

func TestClient_GetBalance(t *testing.T) {
	ctx := context.Background()
	owner := testutil.GenerateSolanaKeys(t, 1)[0]

	base, ephemeral := newFakeSender(), newFakeSender()
	client := NewClient(base, ephemeral)

	_, err := client.GetBalance(ctx, owner)
	assert.Equal(t, ErrBalanceNotFound, err)
	_, err = client.IsDelegated(ctx, owner)
	assert.Equal(t, ErrBalanceNotFound, err)

	base.setBalance(t, owner, ertransfer_program.PROGRAM_ID, 5)

	balance, err := client.GetBalance(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 5, balance)

	delegated, err := client.IsDelegated(ctx, owner)
	require.NoError(t, err)
	assert.False(t, delegated)

	// Once delegated, the base layer only holds the last committed value.
	base.setBalance(t, owner, delegation.ProgramKey, 5)
	ephemeral.setBalance(t, owner, ertransfer_program.PROGRAM_ID, 9)

	balance, err = client.GetBalance(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 9, balance)

	delegated, err = client.IsDelegated(ctx, owner)
	require.NoError(t, err)
	assert.True(t, delegated)
}

func TestClient_GetDelegationRecord(t *testing.T) {
	ctx := context.Background()
	owner := testutil.GenerateSolanaKeys(t, 1)[0]
	validator := testutil.GenerateSolanaKeys(t, 1)[0]

	base := newFakeSender()
	client := NewClient(base, newFakeSender())

	_, err := client.GetDelegationRecord(ctx, owner)
	assert.Equal(t, ErrNotDelegated, err)

	balance, _, err := ertransfer_program.GetBalanceAddress(owner)
	require.NoError(t, err)
	address, _, err := delegation.GetDelegationRecordAddress(balance)
	require.NoError(t, err)

	expected := delegation.DelegationRecord{
		Authority:         validator,
		Owner:             ertransfer_program.PROGRAM_ID,
		DelegationSlot:    42,
		Lamports:          1_002_240,
		CommitFrequencyMs: 30_000,
	}
	data, err := expected.Marshal()
	require.NoError(t, err)
	base.accounts[base58.Encode(address)] = solana.AccountInfo{
		Data:  data,
		Owner: delegation.ProgramKey,
	}

	actual, err := client.GetDelegationRecord(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, validator, actual.Authority)
	assert.EqualValues(t, ertransfer_program.PROGRAM_ID, actual.Owner)
	assert.EqualValues(t, 42, actual.DelegationSlot)
	assert.EqualValues(t, 30_000, actual.CommitFrequencyMs)
}

func assertInstructionType(t *testing.T, txn solana.Transaction, expected ertransfer_program.InstructionType) {
	var found bool
	for i := range txn.Message.Instructions {
		if !ertransfer_program.IsErTransferInstruction(txn.Message, i) {
			continue
		}

		decompiled, err := ertransfer_program.DecompileInstruction(txn.Message, i)
		require.NoError(t, err)
		assert.Equal(t, expected, decompiled.Type)
		found = true
	}
	assert.True(t, found, "no er_transfer instruction in transaction")
}
