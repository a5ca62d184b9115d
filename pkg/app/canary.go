package app

import (
	"context"
	"sync"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/alizeeshan1234/er-transfer/pkg/async"
	async_confirmation "github.com/alizeeshan1234/er-transfer/pkg/async/confirmation"
	"github.com/alizeeshan1234/er-transfer/pkg/ertransfer/scenario"
	"github.com/alizeeshan1234/er-transfer/pkg/metrics"
)

// Canary runs the transfer scenario on a schedule against a live cluster, and
// resolves the resulting step records in the background.
type Canary struct {
	log *logrus.Entry

	env          *Environment
	scenario     *scenario.Scenario
	confirmation async.Service
	cron         *cron.Cron

	ctx        context.Context
	cancel     context.CancelFunc
	shutdownCh chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.Mutex
	isShutdown bool
}

func NewCanary() *Canary {
	return &Canary{
		log:        logrus.StandardLogger().WithField("type", "app/canary"),
		shutdownCh: make(chan struct{}),
	}
}

// Init implements App.Init.
func (c *Canary) Init(config BaseConfig, metricsProvider *newrelic.Application) error {
	c.ctx, c.cancel = context.WithCancel(metrics.WithApplication(context.Background(), metricsProvider))

	env, err := NewEnvironment(c.ctx, config.Cluster)
	if err != nil {
		c.cancel()
		return err
	}
	c.env = env

	c.scenario = scenario.New(env.Client, env.Base, env.Steps, scenario.WithEnvConfigs())
	c.confirmation = async_confirmation.New(env.Steps, env.Solana, env.Router, async_confirmation.WithEnvConfigs())

	c.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.cron.AddFunc(config.Cluster.ScenarioSchedule, c.runScenario); err != nil {
		c.cancel()
		env.Close()
		return errors.Wrapf(err, "invalid scenario schedule %q", config.Cluster.ScenarioSchedule)
	}

	go func() {
		err := c.confirmation.Start(c.ctx, config.Cluster.ConfirmationInterval)
		if err != nil && err != context.Canceled {
			c.log.WithError(err).Warn("confirmation service terminated unexpectedly")
			c.shutdown()
		}
	}()

	c.cron.Start()

	c.log.WithField("schedule", config.Cluster.ScenarioSchedule).Info("canary started")
	return nil
}

func (c *Canary) runScenario() {
	ctx, end := metrics.StartTransaction(c.ctx, "canary__run_scenario")
	defer end()

	run, err := c.scenario.Run(ctx, c.env.Payer)
	if err != nil {
		log := c.log.WithError(err)
		if run != nil {
			log = log.WithField("run", run.Id)
		}
		log.Warn("scenario run failed")
	}
}

// RegisterWithGRPC implements App.RegisterWithGRPC. Only the health service
// is exposed.
func (c *Canary) RegisterWithGRPC(server *grpc.Server) {
}

// ShutdownChan implements App.ShutdownChan.
func (c *Canary) ShutdownChan() <-chan struct{} {
	return c.shutdownCh
}

func (c *Canary) shutdown() {
	c.shutdownMu.Lock()
	defer c.shutdownMu.Unlock()

	if !c.isShutdown {
		close(c.shutdownCh)
		c.isShutdown = true
	}
}

// Stop implements App.Stop.
func (c *Canary) Stop() {
	c.stopOnce.Do(func() {
		// Cancelling first aborts an in flight run instead of waiting it out.
		if c.cancel != nil {
			c.cancel()
		}
		if c.cron != nil {
			<-c.cron.Stop().Done()
		}
		if c.env != nil {
			c.env.Close()
		}
		c.shutdown()
	})
}
