package async_confirmation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alizeeshan1234/er-transfer/pkg/async"
	"github.com/alizeeshan1234/er-transfer/pkg/data/step"
	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

// StatusClient looks up signature statuses on one layer. solana.Client and
// the ledger both satisfy it.
type StatusClient interface {
	GetSignatureStatuses(ctx context.Context, sigs []solana.Signature) ([]*solana.SignatureStatus, error)
}

type service struct {
	log     *logrus.Entry
	conf    *conf
	steps   step.Store
	clients map[step.Layer]StatusClient
}

// New returns a service that moves pending step records to confirmed or
// failed once their signatures resolve. ephemeral may be nil when no step is
// ever sent to an ephemeral rollup.
func New(steps step.Store, base, ephemeral StatusClient, configProvider ConfigProvider) async.Service {
	clients := map[step.Layer]StatusClient{
		step.LayerBase: base,
	}
	if ephemeral != nil {
		clients[step.LayerEphemeral] = ephemeral
	}

	return &service{
		log:     logrus.StandardLogger().WithField("service", "confirmation"),
		conf:    configProvider(),
		steps:   steps,
		clients: clients,
	}
}

func (p *service) Start(ctx context.Context, interval time.Duration) error {
	go func() {
		err := p.worker(ctx, interval)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warn("confirmation processing loop terminated unexpectedly")
		}
	}()

	go func() {
		err := p.metricsGaugeWorker(ctx)
		if err != nil && err != context.Canceled {
			p.log.WithError(err).Warn("confirmation metrics gauge loop terminated unexpectedly")
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}
