package ledger

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/computebudget"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/delegation"
	ertransfer_program "github.com/alizeeshan1234/er-transfer/pkg/solana/ertransfer"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/system"
)

// Custom error codes raised by the runtime around the program.
const (
	// System program: the funding account can't cover the amount.
	systemErrorInsufficientLamports solana.CustomError = 1

	// Anchor: a seeds constraint was violated.
	anchorErrorConstraintSeeds solana.CustomError = 2006

	// Anchor: the account is owned by a different program, which is what a
	// base layer instruction sees for a delegated account.
	anchorErrorAccountOwnedByWrongProgram solana.CustomError = 3007

	// Anchor: the account has not been initialized.
	anchorErrorAccountNotInitialized solana.CustomError = 3012
)

// working is the mutable state a transaction runs against. It's only written
// back to the ledger when every instruction succeeds. Fees are not part of it.
type working struct {
	accounts map[string]*Account
	records  map[string]string
	lamports map[string]uint64
}

func (l *Ledger) snapshot() *working {
	w := &working{
		accounts: make(map[string]*Account, len(l.accounts)),
		records:  make(map[string]string, len(l.records)),
		lamports: make(map[string]uint64, len(l.lamports)),
	}
	for k, v := range l.accounts {
		w.accounts[k] = v.Clone()
	}
	for k, v := range l.records {
		w.records[k] = v
	}
	for k, v := range l.lamports {
		w.lamports[k] = v
	}
	return w
}

// process executes a signed transaction on the given layer. A transaction
// whose payer covers the fee lands: the fee is charged and the signature
// status recorded whether or not execution succeeds.
func (l *Ledger) process(layer Layer, txn *solana.Transaction) error {
	if err := txn.VerifySignatures(); err != nil {
		return solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sig := txn.Signature()
	if _, ok := l.statuses[sig]; ok {
		return solana.NewTransactionError(solana.TransactionErrorDuplicateSignature)
	}
	if _, ok := l.blockhashes[txn.Message.RecentBlockhash]; !ok {
		return solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)
	}

	log := l.log.WithFields(logrus.Fields{
		"layer":     layer.String(),
		"signature": sig.String(),
	})

	// Only the base layer charges fees. A payer that can't cover them is
	// rejected before the transaction lands.
	if layer == LayerBase {
		payer := base58.Encode(txn.Message.Accounts[0])
		fee := uint64(LamportsPerSignature) * uint64(len(txn.Signatures))
		if l.lamports[payer] < fee {
			return solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
		}
		l.lamports[payer] -= fee
	}

	w := l.snapshot()
	txErr := l.execute(w, layer, txn)

	l.advance()
	status := &solana.SignatureStatus{
		Slot:               l.slot,
		ErrorResult:        txErr,
		ConfirmationStatus: "finalized",
	}
	l.statuses[sig] = status

	if txErr != nil {
		log.WithError(txErr).Debug("transaction failed")
		return txErr
	}

	l.accounts = w.accounts
	l.records = w.records
	l.lamports = w.lamports

	log.Debug("transaction processed")
	return nil
}

func (l *Ledger) execute(w *working, layer Layer, txn *solana.Transaction) *solana.TransactionError {
	m := txn.Message

	if _, err := computebudget.DecompileBudget(m); err != nil {
		return instructionError(0, solana.InstructionErrorInvalidInstructionData)
	}

	for i := range m.Instructions {
		var err *solana.TransactionError
		switch {
		case computebudget.IsComputeBudgetInstruction(m, i):
			continue
		case system.IsSystemInstruction(m, i):
			err = l.executeSystem(w, layer, m, i)
		case ertransfer_program.IsErTransferInstruction(m, i):
			err = l.executeProgram(w, layer, m, i)
		default:
			err = instructionError(i, solana.InstructionErrorIncorrectProgramID)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (l *Ledger) executeSystem(w *working, layer Layer, m solana.Message, index int) *solana.TransactionError {
	if layer != LayerBase {
		return solana.NewTransactionError(solana.TransactionErrorInvalidWritableAccount)
	}

	ix, err := system.DecompileTransfer(m, index)
	if err != nil {
		return instructionError(index, solana.InstructionErrorInvalidInstructionData)
	}
	if !isSigner(m, ix.From) {
		return instructionError(index, solana.InstructionErrorMissingRequiredSignature)
	}

	from := base58.Encode(ix.From)
	if w.lamports[from] < ix.Lamports {
		return customError(index, systemErrorInsufficientLamports)
	}

	w.lamports[from] -= ix.Lamports
	w.lamports[base58.Encode(ix.To)] += ix.Lamports
	return nil
}

func (l *Ledger) executeProgram(w *working, layer Layer, m solana.Message, index int) *solana.TransactionError {
	ix, err := ertransfer_program.DecompileInstruction(m, index)
	if err != nil {
		return instructionError(index, solana.InstructionErrorInvalidInstructionData)
	}

	switch ix.Type {
	case ertransfer_program.InstructionTypeInitialize:
		return l.initialize(w, layer, m, index, ix.Initialize)
	case ertransfer_program.InstructionTypeDelegateBalance:
		return l.delegate(w, layer, m, index, ix.DelegateBalance, ix.DelegateBalanceArgs)
	case ertransfer_program.InstructionTypeTransfer:
		return l.transfer(w, layer, m, index, ix.Transfer, ix.TransferArgs)
	case ertransfer_program.InstructionTypeUndelegate:
		return l.undelegate(w, layer, m, index, ix.Undelegate)
	}

	return instructionError(index, solana.InstructionErrorInvalidInstructionData)
}

func (l *Ledger) initialize(w *working, layer Layer, m solana.Message, index int, accounts *ertransfer_program.InitializeInstructionAccounts) *solana.TransactionError {
	if layer != LayerBase {
		return solana.NewTransactionError(solana.TransactionErrorInvalidWritableAccount)
	}
	if !isSigner(m, accounts.User) {
		return instructionError(index, solana.InstructionErrorMissingRequiredSignature)
	}
	if err := checkSeeds(index, accounts.User, accounts.Balance); err != nil {
		return err
	}

	key := base58.Encode(accounts.Balance)
	if _, ok := w.accounts[key]; ok {
		return instructionError(index, solana.InstructionErrorAccountAlreadyInitialized)
	}

	return w.create(index, accounts.User, accounts.User, accounts.Balance)
}

func (l *Ledger) delegate(w *working, layer Layer, m solana.Message, index int, accounts *ertransfer_program.DelegateBalanceInstructionAccounts, args *ertransfer_program.DelegateBalanceInstructionArgs) *solana.TransactionError {
	if layer != LayerBase {
		return solana.NewTransactionError(solana.TransactionErrorInvalidWritableAccount)
	}
	if !isSigner(m, accounts.Payer) {
		return instructionError(index, solana.InstructionErrorMissingRequiredSignature)
	}
	if err := checkSeeds(index, accounts.Payer, accounts.Balance); err != nil {
		return err
	}

	addresses, err := delegation.GetAddresses(ertransfer_program.PROGRAM_ID, accounts.Balance)
	if err != nil {
		return instructionError(index, solana.InstructionErrorInvalidSeeds)
	}
	if !bytes.Equal(addresses.Buffer, accounts.Buffer) ||
		!bytes.Equal(addresses.DelegationRecord, accounts.DelegationRecord) ||
		!bytes.Equal(addresses.DelegationMetadata, accounts.DelegationMetadata) {
		return instructionError(index, solana.InstructionErrorInvalidSeeds)
	}

	key := base58.Encode(accounts.Balance)
	account, ok := w.accounts[key]
	if !ok {
		return customError(index, anchorErrorAccountNotInitialized)
	}
	if account.Delegated {
		return customError(index, anchorErrorAccountOwnedByWrongProgram)
	}

	account.Delegated = true
	account.Validator = args.Validator
	account.CommitFrequencyMs = args.CommitFrequencyMs
	account.DelegationSlot = l.slot
	account.Committed = account.Balance

	w.records[base58.Encode(addresses.DelegationRecord)] = key
	return nil
}

func (l *Ledger) transfer(w *working, layer Layer, m solana.Message, index int, accounts *ertransfer_program.TransferInstructionAccounts, args *ertransfer_program.TransferInstructionArgs) *solana.TransactionError {
	if !isSigner(m, accounts.Payer) {
		return instructionError(index, solana.InstructionErrorMissingRequiredSignature)
	}
	if err := checkSeeds(index, accounts.Payer, accounts.Balance); err != nil {
		return err
	}
	if err := checkSeeds(index, accounts.Receiver, accounts.ReceiverBalance); err != nil {
		return err
	}

	source, ok := w.accounts[base58.Encode(accounts.Balance)]
	if !ok {
		return customError(index, anchorErrorAccountNotInitialized)
	}
	if err := checkLayer(index, layer, source); err != nil {
		return err
	}

	receiverKey := base58.Encode(accounts.ReceiverBalance)
	destination, ok := w.accounts[receiverKey]
	if ok {
		if err := checkLayer(index, layer, destination); err != nil {
			return err
		}
	} else {
		// init_if_needed, which only the base layer can do
		if layer != LayerBase {
			return solana.NewTransactionError(solana.TransactionErrorInvalidWritableAccount)
		}
		if err := w.create(index, accounts.Payer, accounts.Receiver, accounts.ReceiverBalance); err != nil {
			return err
		}
		destination = w.accounts[receiverKey]
	}

	if source.Balance < args.Amount {
		return customError(index, ertransfer_program.ErrorCodeInsufficientBalance)
	}

	// A self transfer reads and writes the same account.
	if source == destination {
		return nil
	}

	source.Balance -= args.Amount
	destination.Balance += args.Amount
	if !source.Delegated {
		source.Committed = source.Balance
	}
	if !destination.Delegated {
		destination.Committed = destination.Balance
	}
	return nil
}

func (l *Ledger) undelegate(w *working, layer Layer, m solana.Message, index int, accounts *ertransfer_program.UndelegateInstructionAccounts) *solana.TransactionError {
	if !isSigner(m, accounts.Payer) {
		return instructionError(index, solana.InstructionErrorMissingRequiredSignature)
	}
	if err := checkSeeds(index, accounts.Payer, accounts.Balance); err != nil {
		return err
	}

	key := base58.Encode(accounts.Balance)
	account, ok := w.accounts[key]
	if !ok {
		return customError(index, anchorErrorAccountNotInitialized)
	}

	// Commit and undelegate is scheduled through the magic program, which
	// only exists on the ephemeral rollup and only for delegated accounts.
	if layer != LayerEphemeral || !account.Delegated {
		return solana.NewTransactionError(solana.TransactionErrorInvalidWritableAccount)
	}

	for record, balance := range w.records {
		if balance == key {
			delete(w.records, record)
		}
	}

	account.Committed = account.Balance
	account.Delegated = false
	account.Validator = nil
	account.CommitFrequencyMs = 0
	account.DelegationSlot = 0
	return nil
}

// create allocates a balance account, funded with rent by funder.
func (w *working) create(index int, funder, owner, address ed25519.PublicKey) *solana.TransactionError {
	rent := RentExemptMinimum(ertransfer_program.BalanceAccountSize)

	funderKey := base58.Encode(funder)
	if w.lamports[funderKey] < rent {
		return customError(index, systemErrorInsufficientLamports)
	}
	w.lamports[funderKey] -= rent

	w.accounts[base58.Encode(address)] = &Account{
		Address:  append(ed25519.PublicKey(nil), address...),
		Owner:    append(ed25519.PublicKey(nil), owner...),
		Lamports: rent,
	}
	return nil
}

// checkLayer enforces who owns a balance account. The base layer sees the
// delegation program as owner of delegated accounts, and the ephemeral
// rollup can only write accounts delegated to it.
func checkLayer(index int, layer Layer, account *Account) *solana.TransactionError {
	switch layer {
	case LayerBase:
		if account.Delegated {
			return customError(index, anchorErrorAccountOwnedByWrongProgram)
		}
	case LayerEphemeral:
		if !account.Delegated {
			return solana.NewTransactionError(solana.TransactionErrorInvalidWritableAccount)
		}
	}
	return nil
}

func checkSeeds(index int, owner, address ed25519.PublicKey) *solana.TransactionError {
	expected, _, err := ertransfer_program.GetBalanceAddress(owner)
	if err != nil || !bytes.Equal(expected, address) {
		return customError(index, anchorErrorConstraintSeeds)
	}
	return nil
}

func isSigner(m solana.Message, account ed25519.PublicKey) bool {
	for i := 0; i < int(m.Header.NumSignatures) && i < len(m.Accounts); i++ {
		if bytes.Equal(m.Accounts[i], account) {
			return true
		}
	}
	return false
}

func instructionError(index int, key solana.InstructionErrorKey) *solana.TransactionError {
	txErr, _ := solana.TransactionErrorFromInstructionError(solana.NewInstructionError(index, key))
	return txErr
}

func customError(index int, code solana.CustomError) *solana.TransactionError {
	txErr, _ := solana.TransactionErrorFromInstructionError(solana.NewCustomInstructionError(index, uint32(code)))
	return txErr
}
