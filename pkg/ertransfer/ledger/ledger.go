// Package ledger is an in-memory model of the er_transfer program running on
// a base layer with one ephemeral rollup attached. It executes the same signed
// transactions a cluster would, so clients and scenarios can run without one.
package ledger

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/alizeeshan1234/er-transfer/pkg/magicrouter"
	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/delegation"
	ertransfer_program "github.com/alizeeshan1234/er-transfer/pkg/solana/ertransfer"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/system"
)

const (
	// LamportsPerSignature is the base layer fee. The ephemeral rollup
	// charges nothing.
	LamportsPerSignature = 5000

	// Two years of rent at the default rate, per byte including the 128 byte
	// account overhead.
	lamportsPerByteYear = 3480
	exemptionYears      = 2
	accountOverhead     = 128

	maxBlockhashAge = 150
)

var (
	ErrAccountNotFound = errors.New("balance account not found")
)

// Layer is one of the two execution environments the ledger models.
type Layer uint8

const (
	LayerBase Layer = iota
	LayerEphemeral
)

func (l Layer) String() string {
	switch l {
	case LayerBase:
		return "base"
	case LayerEphemeral:
		return "ephemeral"
	}
	return "unknown"
}

// Account is the ledger's view of one balance PDA.
type Account struct {
	Address  ed25519.PublicKey
	Owner    ed25519.PublicKey
	Lamports uint64

	// Balance is the live value. While delegated only the ephemeral rollup
	// sees it; the base layer sees Committed.
	Balance   uint64
	Committed uint64

	Delegated         bool
	Validator         ed25519.PublicKey
	CommitFrequencyMs uint32
	DelegationSlot    uint64
}

func (a *Account) Clone() *Account {
	cloned := *a
	cloned.Address = append(ed25519.PublicKey(nil), a.Address...)
	cloned.Owner = append(ed25519.PublicKey(nil), a.Owner...)
	if a.Validator != nil {
		cloned.Validator = append(ed25519.PublicKey(nil), a.Validator...)
	}
	return &cloned
}

// Ledger holds balance accounts, system lamports and signature results.
type Ledger struct {
	log *logrus.Entry

	validator ed25519.PublicKey

	mu          sync.RWMutex
	slot        uint64
	blockhashes map[solana.Blockhash]uint64
	accounts    map[string]*Account
	records     map[string]string
	lamports    map[string]uint64
	statuses    map[solana.Signature]*solana.SignatureStatus
}

// New returns an empty ledger whose ephemeral rollup is run by validator.
func New(validator ed25519.PublicKey) *Ledger {
	l := &Ledger{
		log:         logrus.StandardLogger().WithField("type", "ertransfer/ledger"),
		validator:   validator,
		blockhashes: make(map[solana.Blockhash]uint64),
		accounts:    make(map[string]*Account),
		records:     make(map[string]string),
		lamports:    make(map[string]uint64),
		statuses:    make(map[solana.Signature]*solana.SignatureStatus),
	}
	l.advance()
	return l
}

// RentExemptMinimum returns the lamports an account of size bytes must hold.
func RentExemptMinimum(size uint64) uint64 {
	return (accountOverhead + size) * lamportsPerByteYear * exemptionYears
}

// Airdrop credits system lamports to an account.
func (l *Ledger) Airdrop(account ed25519.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lamports[base58.Encode(account)] += lamports
}

// Lamports returns the system lamports held by an account.
func (l *Ledger) Lamports(account ed25519.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.lamports[base58.Encode(account)]
}

// Credit adds to an owner's program balance outside of any transaction. The
// program has no instruction that does this; it exists to seed simulations.
func (l *Ledger) Credit(owner ed25519.PublicKey, amount uint64) error {
	address, _, err := ertransfer_program.GetBalanceAddress(owner)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[base58.Encode(address)]
	if !ok {
		return ErrAccountNotFound
	}

	account.Balance += amount
	if !account.Delegated {
		account.Committed = account.Balance
	}
	return nil
}

// GetAccount returns a copy of the owner's balance account.
func (l *Ledger) GetAccount(owner ed25519.PublicKey) (*Account, error) {
	address, _, err := ertransfer_program.GetBalanceAddress(owner)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	account, ok := l.accounts[base58.Encode(address)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account.Clone(), nil
}

// Slot returns the current slot, which advances with every transaction.
func (l *Ledger) Slot() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.slot
}

// Blockhash returns the most recent blockhash.
func (l *Ledger) Blockhash() solana.Blockhash {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return blockhashAt(l.slot)
}

// GetClosestValidator reports the ledger's own validator, standing in for
// the router.
func (l *Ledger) GetClosestValidator(_ context.Context) (*magicrouter.Validator, error) {
	return &magicrouter.Validator{
		Identity: l.validator,
		FQDN:     "localhost",
	}, nil
}

// GetSignatureStatuses mirrors the RPC method of the same name. Processed
// transactions are reported as finalized.
func (l *Ledger) GetSignatureStatuses(_ context.Context, sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	res := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		if status, ok := l.statuses[sig]; ok {
			cloned := *status
			res[i] = &cloned
		}
	}
	return res, nil
}

// getAccountInfo renders an account as the given layer would return it over
// RPC.
func (l *Ledger) getAccountInfo(layer Layer, address ed25519.PublicKey) (solana.AccountInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	key := base58.Encode(address)

	if account, ok := l.accounts[key]; ok {
		owner := ertransfer_program.PROGRAM_ID
		balance := account.Balance
		if account.Delegated && layer == LayerBase {
			owner = delegation.ProgramKey
			balance = account.Committed
		}

		state := ertransfer_program.BalanceAccount{Balance: balance}
		return solana.AccountInfo{
			Data:     state.Marshal(),
			Owner:    append(ed25519.PublicKey(nil), owner...),
			Lamports: account.Lamports,
		}, nil
	}

	if balanceKey, ok := l.records[key]; ok && layer == LayerBase {
		account := l.accounts[balanceKey]

		record := delegation.DelegationRecord{
			Authority:         account.Validator,
			Owner:             ertransfer_program.PROGRAM_ID,
			DelegationSlot:    account.DelegationSlot,
			Lamports:          account.Lamports,
			CommitFrequencyMs: uint64(account.CommitFrequencyMs),
		}
		if record.Authority == nil {
			record.Authority = make(ed25519.PublicKey, ed25519.PublicKeySize)
		}

		data, err := record.Marshal()
		if err != nil {
			return solana.AccountInfo{}, err
		}
		return solana.AccountInfo{
			Data:     data,
			Owner:    delegation.ProgramKey,
			Lamports: RentExemptMinimum(delegation.DelegationRecordSize),
		}, nil
	}

	if lamports, ok := l.lamports[key]; ok && lamports > 0 {
		return solana.AccountInfo{
			Data:     []byte{},
			Owner:    system.ProgramKey,
			Lamports: lamports,
		}, nil
	}

	return solana.AccountInfo{}, solana.ErrNoAccountInfo
}

// advance moves to the next slot and publishes its blockhash. Callers must
// hold the write lock, or be New.
func (l *Ledger) advance() {
	l.slot++
	l.blockhashes[blockhashAt(l.slot)] = l.slot

	if l.slot > maxBlockhashAge {
		delete(l.blockhashes, blockhashAt(l.slot-maxBlockhashAge-1))
	}
}

func blockhashAt(slot uint64) solana.Blockhash {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], slot)
	return sha256.Sum256(b[:])
}
