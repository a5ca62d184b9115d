package async_confirmation

import (
	"context"
	"fmt"
	"time"

	"github.com/alizeeshan1234/er-transfer/pkg/data/step"
	"github.com/alizeeshan1234/er-transfer/pkg/metrics"
)

const (
	stepCountEventName = "StepCountPollingCheck"
)

func (p *service) metricsGaugeWorker(ctx context.Context) error {
	delay := time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			start := time.Now()

			for _, state := range []step.State{
				step.StatePending,
				step.StateConfirmed,
				step.StateFailed,
			} {
				p.recordStepCountEvent(ctx, state)
			}

			delay = time.Second - time.Since(start)
		}
	}
}

func (p *service) recordStepCountEvent(ctx context.Context, state step.State) {
	count, err := p.steps.CountByState(ctx, state)
	if err != nil {
		return
	}

	metrics.RecordCount(ctx, fmt.Sprintf("ErTransfer/Steps/%s", state.String()), count)
	metrics.RecordEvent(ctx, stepCountEventName, map[string]interface{}{
		"count": count,
		"state": state.String(),
	})
}
