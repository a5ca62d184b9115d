package scenario

import (
	"time"

	"github.com/alizeeshan1234/er-transfer/pkg/config"
	"github.com/alizeeshan1234/er-transfer/pkg/config/env"
	"github.com/alizeeshan1234/er-transfer/pkg/config/memory"
	"github.com/alizeeshan1234/er-transfer/pkg/config/wrapper"
	ertransfer_program "github.com/alizeeshan1234/er-transfer/pkg/solana/ertransfer"
)

const (
	envConfigPrefix = "SCENARIO_"

	// The program cannot credit a balance, so a payer only ever holds what
	// it was seeded with. Transferring zero still exercises the full path.
	TransferAmountConfigEnvName = envConfigPrefix + "TRANSFER_AMOUNT"
	defaultTransferAmount       = 0

	// Covers the receiver's rent and its two base layer fees, with room to
	// spare. Zero disables funding.
	ReceiverFundingConfigEnvName = envConfigPrefix + "RECEIVER_FUNDING_LAMPORTS"
	defaultReceiverFunding       = 10_000_000

	// Must fit in a u32. Zero delegates with the program default.
	CommitFrequencyConfigEnvName = envConfigPrefix + "COMMIT_FREQUENCY_MS"
	defaultCommitFrequency       = uint64(ertransfer_program.DefaultCommitFrequencyMs)

	StepTimeoutConfigEnvName = envConfigPrefix + "STEP_TIMEOUT"
	defaultStepTimeout       = time.Minute
)

type conf struct {
	transferAmount    config.Uint64
	receiverFunding   config.Uint64
	commitFrequencyMs config.Uint64
	stepTimeout       config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			transferAmount:    env.NewUint64Config(TransferAmountConfigEnvName, defaultTransferAmount),
			receiverFunding:   env.NewUint64Config(ReceiverFundingConfigEnvName, defaultReceiverFunding),
			commitFrequencyMs: env.NewUint64Config(CommitFrequencyConfigEnvName, defaultCommitFrequency),
			stepTimeout:       env.NewDurationConfig(StepTimeoutConfigEnvName, defaultStepTimeout),
		}
	}
}

// Overrides pins config values, for the CLI and tests. Nil fields keep their
// defaults.
type Overrides struct {
	TransferAmount    *uint64
	ReceiverFunding   *uint64
	CommitFrequencyMs *uint64
	StepTimeout       *time.Duration
}

// WithOverrides returns configuration with the provided values fixed in
// memory.
func WithOverrides(overrides *Overrides) ConfigProvider {
	return func() *conf {
		transferAmount := memory.NewConfig(uint64(defaultTransferAmount))
		if overrides.TransferAmount != nil {
			transferAmount.SetValue(*overrides.TransferAmount)
		}

		receiverFunding := memory.NewConfig(uint64(defaultReceiverFunding))
		if overrides.ReceiverFunding != nil {
			receiverFunding.SetValue(*overrides.ReceiverFunding)
		}

		commitFrequencyMs := memory.NewConfig(defaultCommitFrequency)
		if overrides.CommitFrequencyMs != nil {
			commitFrequencyMs.SetValue(*overrides.CommitFrequencyMs)
		}

		stepTimeout := memory.NewConfig(defaultStepTimeout)
		if overrides.StepTimeout != nil {
			stepTimeout.SetValue(*overrides.StepTimeout)
		}

		return &conf{
			transferAmount:    wrapper.NewUint64Config(transferAmount, defaultTransferAmount),
			receiverFunding:   wrapper.NewUint64Config(receiverFunding, defaultReceiverFunding),
			commitFrequencyMs: wrapper.NewUint64Config(commitFrequencyMs, defaultCommitFrequency),
			stepTimeout:       wrapper.NewDurationConfig(stepTimeout, defaultStepTimeout),
		}
	}
}
