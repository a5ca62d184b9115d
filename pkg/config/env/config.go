// Package env provides configs backed by process environment variables.
package env

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/alizeeshan1234/er-transfer/pkg/config"
	"github.com/alizeeshan1234/er-transfer/pkg/config/wrapper"
)

// variable is read once, at construction, so later changes to the
// environment are not observed.
type variable string

// NewConfig returns a config holding the value of the upper cased key.
func NewConfig(key string) config.Config {
	return variable(os.Getenv(strings.ToUpper(key)))
}

func (v variable) Get(_ context.Context) (interface{}, error) {
	if v == "" {
		return nil, config.ErrNoValue
	}
	return []byte(v), nil
}

func (variable) Shutdown() {}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}

func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}
