// Package test runs throwaway postgres containers for store tests.
package test

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v4/stdlib" //nolint:revive

	"github.com/alizeeshan1234/er-transfer/pkg/retry"
	"github.com/alizeeshan1234/er-transfer/pkg/retry/backoff"
)

const (
	image    = "postgres"
	imageTag = "14"

	user     = "ertransfer"
	password = "ertransfer"
	dbname   = "ertransfer_test"

	// Containers outliving a crashed test run are reaped by docker.
	containerTTL = 2 * time.Minute

	readyPollInterval = 500 * time.Millisecond
	readyPollAttempts = 60
)

// StartPostgresDB runs a postgres container in pool and blocks until it
// accepts connections. The returned func purges the container and is safe to
// call even when err is set.
func StartPostgresDB(pool *dockertest.Pool) (*sql.DB, func(), error) {
	log := logrus.StandardLogger().WithField("type", "database/postgres/test")

	resource, err := pool.RunWithOptions(
		&dockertest.RunOptions{
			Repository: image,
			Tag:        imageTag,
			Env: []string{
				"POSTGRES_USER=" + user,
				"POSTGRES_PASSWORD=" + password,
				"POSTGRES_DB=" + dbname,
			},
		},
		func(hc *docker.HostConfig) {
			hc.AutoRemove = true
			hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
		},
	)
	if err != nil {
		return nil, func() {}, errors.Wrap(err, "error starting postgres container")
	}

	purge := func() {
		if err := pool.Purge(resource); err != nil {
			log.WithError(err).Warn("failure purging postgres container")
		}
	}
	_ = resource.Expire(uint(containerTTL.Seconds()))

	url := fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		user,
		password,
		resource.GetHostPort("5432/tcp"),
		dbname,
	)

	var db *sql.DB
	_, err = retry.Retry(
		func() error {
			if db == nil {
				db, err = sql.Open("pgx", url)
				if err != nil {
					return err
				}
			}
			return db.Ping()
		},
		retry.Limit(readyPollAttempts),
		retry.Backoff(backoff.Constant(readyPollInterval), readyPollInterval),
	)
	if err != nil {
		return nil, purge, errors.Wrap(err, "postgres container never became ready")
	}
	return db, purge, nil
}
