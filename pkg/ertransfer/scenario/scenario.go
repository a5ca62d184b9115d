// Package scenario runs the er_transfer lifecycle end to end: both parties
// initialize and delegate their balance accounts, the payer transfers to the
// receiver on the ephemeral rollup, and the payer's account is committed back
// to the base layer.
package scenario

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/alizeeshan1234/er-transfer/pkg/data/step"
	"github.com/alizeeshan1234/er-transfer/pkg/ertransfer"
	"github.com/alizeeshan1234/er-transfer/pkg/metrics"
	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/system"
)

const (
	metricsStructName = "ertransfer.scenario"

	runEventName      = "ErTransferScenarioRun"
	runDurationMetric = "ErTransferScenario/RunDuration"
)

// Step names, in execution order.
const (
	StepFundReceiver       = "fund_receiver"
	StepInitialize         = "initialize"
	StepInitializeReceiver = "initialize_receiver"
	StepDelegate           = "delegate"
	StepDelegateReceiver   = "delegate_receiver"
	StepTransfer           = "transfer"
	StepUndelegate         = "undelegate"
)

// StepError is returned when a step fails, aborting the run.
type StepError struct {
	Step string

	// Signature is zero if the transaction was never signed.
	Signature solana.Signature

	Err error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepResult is a step that landed, or that was skipped because the state it
// produces already exists.
type StepResult struct {
	Step      string
	Layer     step.Layer
	Signature solana.Signature
	Skipped   bool
}

// Run is the state of one pass through the scenario. It's returned even when
// a step fails, holding everything that succeeded before it.
type Run struct {
	Id       string
	Payer    ed25519.PublicKey
	Receiver ed25519.PublicKey
	Steps    []StepResult
}

// Hook is invoked after each successful step, but not after skipped ones. Returning an error aborts the
// run as if the step had failed.
type Hook func(ctx context.Context, name string, run *Run) error

type Option func(*Scenario)

// WithHook registers a hook run after every successful step.
func WithHook(hook Hook) Option {
	return func(s *Scenario) {
		s.hooks = append(s.hooks, hook)
	}
}

// WithReceiver uses a fixed receiver instead of generating one per run.
func WithReceiver(receiver ed25519.PrivateKey) Option {
	return func(s *Scenario) {
		s.receiver = receiver
	}
}

type Scenario struct {
	log    *logrus.Entry
	conf   *conf
	client *ertransfer.Client
	base   ertransfer.Sender
	steps  step.Store

	receiver ed25519.PrivateKey
	hooks    []Hook
}

// New returns a scenario that drives client. base is used for the receiver
// funding transfer and may be nil when funding is disabled.
func New(client *ertransfer.Client, base ertransfer.Sender, steps step.Store, configProvider ConfigProvider, opts ...Option) *Scenario {
	s := &Scenario{
		log:    logrus.StandardLogger().WithField("type", "ertransfer/scenario"),
		conf:   configProvider(),
		client: client,
		base:   base,
		steps:  steps,
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes every step in order with payer funding the run. The first
// failure aborts the run with a *StepError.
//
// The payer is reused across runs, so initialize and delegate are skipped for
// any party whose balance account already exists or is already delegated.
// A run that stopped between delegate and undelegate is picked up again by the
// next one.
func (s *Scenario) Run(ctx context.Context, payer ed25519.PrivateKey) (run *Run, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Run")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	receiver := s.receiver
	if receiver == nil {
		_, receiver, err = ed25519.GenerateKey(nil)
		if err != nil {
			return nil, errors.Wrap(err, "error generating receiver")
		}
	}

	run = &Run{
		Id:       uuid.New().String(),
		Payer:    payer.Public().(ed25519.PublicKey),
		Receiver: receiver.Public().(ed25519.PublicKey),
	}

	log := s.log.WithFields(logrus.Fields{
		"method":   "Run",
		"run":      run.Id,
		"payer":    solana.ToBase58(run.Payer),
		"receiver": solana.ToBase58(run.Receiver),
	})
	tracer.AddAttribute("run", run.Id)

	start := time.Now()
	defer func() {
		metrics.RecordDuration(ctx, runDurationMetric, time.Since(start))
		metrics.RecordEvent(ctx, runEventName, map[string]interface{}{
			"run":       run.Id,
			"steps":     len(run.Steps),
			"succeeded": err == nil,
		})
	}()

	transferAmount := s.conf.transferAmount.Get(ctx)
	receiverFunding := s.conf.receiverFunding.Get(ctx)
	commitFrequencyMs := s.conf.commitFrequencyMs.Get(ctx)
	if commitFrequencyMs > math.MaxUint32 {
		return run, errors.Errorf("commit frequency %dms out of range", commitFrequencyMs)
	}
	delegateOpts := ertransfer.DelegateOptions{
		CommitFrequencyMs: uint32(commitFrequencyMs),
	}

	type action struct {
		name  string
		layer step.Layer
		skip  func(context.Context) (bool, error)
		do    func(context.Context) (solana.Signature, error)
	}

	var actions []action
	if receiverFunding > 0 {
		actions = append(actions, action{StepFundReceiver, step.LayerBase, nil, func(ctx context.Context) (solana.Signature, error) {
			return s.fundReceiver(ctx, payer, run.Receiver, receiverFunding)
		}})
	}
	actions = append(actions,
		action{StepInitialize, s.layerFor(ertransfer.OperationInitialize), s.isInitialized(run.Payer), func(ctx context.Context) (solana.Signature, error) {
			return s.client.Initialize(ctx, payer)
		}},
		action{StepInitializeReceiver, s.layerFor(ertransfer.OperationInitialize), s.isInitialized(run.Receiver), func(ctx context.Context) (solana.Signature, error) {
			return s.client.Initialize(ctx, receiver)
		}},
		action{StepDelegate, s.layerFor(ertransfer.OperationDelegate), s.isDelegated(run.Payer), func(ctx context.Context) (solana.Signature, error) {
			return s.client.DelegateBalance(ctx, payer, delegateOpts)
		}},
		action{StepDelegateReceiver, s.layerFor(ertransfer.OperationDelegate), s.isDelegated(run.Receiver), func(ctx context.Context) (solana.Signature, error) {
			return s.client.DelegateBalance(ctx, receiver, delegateOpts)
		}},
		action{StepTransfer, s.layerFor(ertransfer.OperationTransfer), nil, func(ctx context.Context) (solana.Signature, error) {
			return s.client.Transfer(ctx, payer, run.Receiver, transferAmount)
		}},
		action{StepUndelegate, s.layerFor(ertransfer.OperationUndelegate), nil, func(ctx context.Context) (solana.Signature, error) {
			return s.client.Undelegate(ctx, payer)
		}},
	)

	for _, a := range actions {
		if a.skip != nil {
			skip, err := a.skip(ctx)
			if err != nil {
				log.WithError(err).WithField("step", a.name).Warn("failure checking scenario step state")
				return run, &StepError{Step: a.name, Err: err}
			}
			if skip {
				log.WithField("step", a.name).Info("scenario step skipped")
				run.Steps = append(run.Steps, StepResult{Step: a.name, Layer: a.layer, Skipped: true})
				continue
			}
		}

		sig, err := s.runStep(ctx, run, a.name, a.layer, a.do)
		if err != nil {
			log.WithError(err).WithField("step", a.name).Warn("scenario step failed")
			return run, &StepError{Step: a.name, Signature: sig, Err: err}
		}

		log.WithFields(logrus.Fields{
			"step":      a.name,
			"layer":     a.layer.String(),
			"signature": sig.String(),
		}).Info("scenario step succeeded")

		run.Steps = append(run.Steps, StepResult{Step: a.name, Layer: a.layer, Signature: sig})

		for _, hook := range s.hooks {
			if err := hook(ctx, a.name, run); err != nil {
				log.WithError(err).WithField("step", a.name).Warn("scenario hook failed")
				return run, &StepError{Step: a.name, Signature: sig, Err: errors.Wrap(err, "hook")}
			}
		}
	}

	log.Info("scenario completed")
	return run, nil
}

func (s *Scenario) runStep(ctx context.Context, run *Run, name string, layer step.Layer, do func(context.Context) (solana.Signature, error)) (solana.Signature, error) {
	stepCtx, cancel := context.WithTimeout(ctx, s.conf.stepTimeout.Get(ctx))
	defer cancel()

	sig, err := do(stepCtx)

	// Nothing reached the network if the transaction was never signed.
	if sig == (solana.Signature{}) {
		if err == nil {
			err = errors.New("no signature returned")
		}
		return sig, err
	}

	record := &step.Record{
		RunId:     run.Id,
		Step:      name,
		Signature: sig.String(),
		Layer:     layer,
		State:     step.StatePending,
		CreatedAt: time.Now(),
	}
	if err != nil {
		errString := err.Error()
		record.State = step.StateFailed
		record.Error = &errString
	}

	if saveErr := s.steps.Save(ctx, record); saveErr != nil {
		s.log.WithError(saveErr).WithFields(logrus.Fields{
			"run":       run.Id,
			"step":      name,
			"signature": sig.String(),
		}).Warn("failure saving step record")

		if err == nil {
			err = errors.Wrap(saveErr, "error saving step record")
		}
	}

	return sig, err
}

func (s *Scenario) isInitialized(owner ed25519.PublicKey) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		_, err := s.client.IsDelegated(ctx, owner)
		switch err {
		case nil:
			return true, nil
		case ertransfer.ErrBalanceNotFound:
			return false, nil
		}
		return false, err
	}
}

func (s *Scenario) isDelegated(owner ed25519.PublicKey) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		return s.client.IsDelegated(ctx, owner)
	}
}

func (s *Scenario) fundReceiver(ctx context.Context, payer ed25519.PrivateKey, receiver ed25519.PublicKey, lamports uint64) (solana.Signature, error) {
	if s.base == nil {
		return solana.Signature{}, ertransfer.ErrNoSender
	}

	owner := payer.Public().(ed25519.PublicKey)
	txn := solana.NewTransaction(owner, system.Transfer(owner, receiver, lamports))
	return s.base.Send(ctx, &txn, payer)
}

func (s *Scenario) layerFor(op ertransfer.Operation) step.Layer {
	switch s.client.RouteFor(op) {
	case ertransfer.RouteBase:
		return step.LayerBase
	case ertransfer.RouteEphemeral:
		return step.LayerEphemeral
	}
	return step.LayerUnknown
}
