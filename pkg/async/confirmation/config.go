package async_confirmation

import (
	"time"

	"github.com/alizeeshan1234/er-transfer/pkg/config"
	"github.com/alizeeshan1234/er-transfer/pkg/config/env"
	"github.com/alizeeshan1234/er-transfer/pkg/config/memory"
	"github.com/alizeeshan1234/er-transfer/pkg/config/wrapper"
)

const (
	envConfigPrefix = "CONFIRMATION_SERVICE_"

	// getSignatureStatuses accepts at most 256 signatures per call.
	WorkerBatchSizeConfigEnvName = envConfigPrefix + "WORKER_BATCH_SIZE"
	defaultWorkerBatchSize       = 100

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "finalized"

	// A signature unknown to the cluster for this long had its blockhash
	// expire and will never land.
	MaxPendingAgeConfigEnvName = envConfigPrefix + "MAX_PENDING_AGE"
	defaultMaxPendingAge       = 2 * time.Minute
)

type conf struct {
	workerBatchSize config.Uint64
	commitment      config.String
	maxPendingAge   config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			workerBatchSize: env.NewUint64Config(WorkerBatchSizeConfigEnvName, defaultWorkerBatchSize),
			commitment:      env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
			maxPendingAge:   env.NewDurationConfig(MaxPendingAgeConfigEnvName, defaultMaxPendingAge),
		}
	}
}

type testOverrides struct {
	workerBatchSize uint64
	commitment      string
	maxPendingAge   time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			workerBatchSize: wrapper.NewUint64Config(memory.NewConfig(overrides.workerBatchSize), defaultWorkerBatchSize),
			commitment:      wrapper.NewStringConfig(memory.NewConfig(overrides.commitment), defaultCommitment),
			maxPendingAge:   wrapper.NewDurationConfig(memory.NewConfig(overrides.maxPendingAge), defaultMaxPendingAge),
		}
	}
}
