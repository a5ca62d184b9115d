package app

import (
	"context"
	"crypto/ed25519"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"

	"github.com/alizeeshan1234/er-transfer/pkg/data/step"
	step_memory_client "github.com/alizeeshan1234/er-transfer/pkg/data/step/memory"
	step_postgres_client "github.com/alizeeshan1234/er-transfer/pkg/data/step/postgres"
	pg "github.com/alizeeshan1234/er-transfer/pkg/database/postgres"
	"github.com/alizeeshan1234/er-transfer/pkg/ertransfer"
	"github.com/alizeeshan1234/er-transfer/pkg/magicrouter"
	"github.com/alizeeshan1234/er-transfer/pkg/rate"
	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	"github.com/alizeeshan1234/er-transfer/pkg/solana/ws"
	"github.com/alizeeshan1234/er-transfer/pkg/wallet"
)

// Environment holds the live dependencies built from a ClusterConfig.
type Environment struct {
	Payer ed25519.PrivateKey

	Solana solana.Client
	Router magicrouter.Client

	Base      ertransfer.Sender
	Ephemeral ertransfer.Sender
	Client    *ertransfer.Client

	Steps step.Store

	db         *sql.DB
	subscriber *ws.Subscriber
}

// NewEnvironment loads the payer wallet and connects to the base layer, the
// router and the step store.
func NewEnvironment(ctx context.Context, config ClusterConfig) (*Environment, error) {
	log := logrus.StandardLogger().WithField("type", "app/environment")

	payer, err := wallet.Load(config.WalletPath)
	if err != nil {
		return nil, errors.Wrap(err, "error loading wallet")
	}

	var limiter rate.Limiter = &rate.NoLimiter{}
	if config.RPCRateLimit > 0 {
		limiter = rate.NewLocalRateLimiter(xrate.Limit(config.RPCRateLimit))
	}

	env := &Environment{
		Payer:  payer,
		Solana: solana.New(config.ProviderURL, solana.WithRateLimiter(limiter)),
		Router: magicrouter.New(config.RouterEndpoint, solana.WithRateLimiter(limiter)),
	}

	commitment := solana.CommitmentFromString(config.Commitment)

	ephemeralOpts := []ertransfer.SenderOption{ertransfer.WithCommitment(commitment)}
	if len(config.RouterWsEndpoint) > 0 {
		subscriber, err := ws.Dial(ctx, config.RouterWsEndpoint)
		if err != nil {
			log.WithError(err).Warn("router websocket unavailable, polling for confirmations")
		} else {
			env.subscriber = subscriber
			ephemeralOpts = append(ephemeralOpts, ertransfer.WithConfirmer(subscriber))
		}
	}

	env.Base = ertransfer.NewRPCSender(env.Solana, ertransfer.WithCommitment(commitment))
	env.Ephemeral = ertransfer.NewRouterSender(env.Router, ephemeralOpts...)

	clientOpts := []ertransfer.Option{ertransfer.WithValidatorResolver(env.Router)}
	if config.ComputeUnitPrice > 0 {
		clientOpts = append(clientOpts, ertransfer.WithComputeUnitPrice(config.ComputeUnitPrice))
	}
	if config.ComputeUnitLimit > 0 {
		clientOpts = append(clientOpts, ertransfer.WithComputeUnitLimit(config.ComputeUnitLimit))
	}
	env.Client = ertransfer.NewClient(env.Base, env.Ephemeral, clientOpts...)

	switch {
	case len(config.DatabaseURL) > 0:
		env.db, err = pg.NewWithUrl(config.DatabaseURL)
	case len(config.DatabaseHost) > 0:
		env.db, err = pg.Open(&pg.Config{
			User:               config.DatabaseUser,
			Host:               config.DatabaseHost,
			Password:           config.DatabasePassword,
			Port:               config.DatabasePort,
			DbName:             config.DatabaseName,
			MaxOpenConnections: 10,
			MaxIdleConnections: 10,
			UseAwsIam:          config.DatabaseAwsIam,
		})
	}
	if err != nil {
		env.Close()
		return nil, errors.Wrap(err, "error connecting to database")
	}

	if env.db != nil {
		env.Steps = step_postgres_client.New(env.db)
	} else {
		log.Info("no database configured, keeping step records in memory")
		env.Steps = step_memory_client.New()
	}

	return env, nil
}

// Close releases the websocket and database connections.
func (e *Environment) Close() {
	if e.subscriber != nil {
		e.subscriber.Close()
	}
	if e.db != nil {
		e.db.Close()
	}
}
