// Package config provides runtime tunables whose source (environment, memory)
// is chosen by the caller and whose type is fixed by a wrapper.
package config

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNoValue indicates no value was set for the config
	ErrNoValue = errors.New("config: no value set")

	// ErrShutdown indicates the use of a Config after calling Shutdown
	ErrShutdown = errors.New("config: shutdown")
)

// Config is an untyped source of a configuration value
type Config interface {
	// Get returns the latest config value
	Get(ctx context.Context) (interface{}, error)

	// Shutdown signals the config to stop all underlying resources
	Shutdown()
}

// Value is a typed config.Config.
type Value[T any] interface {
	// Get returns the latest value, falling back to the last known or
	// default value on error.
	Get(ctx context.Context) T

	// GetSafe is Get, with the error.
	GetSafe(ctx context.Context) (T, error)

	Shutdown()
}

type (
	Uint64   = Value[uint64]
	Duration = Value[time.Duration]
	String   = Value[string]
)
