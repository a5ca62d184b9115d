package env

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alizeeshan1234/er-transfer/pkg/config"
)

func TestConfig(t *testing.T) {
	const env = "ENV_CONFIG_TEST_VAR"

	t.Setenv(env, "value")
	v, err := NewConfig(env).Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	// Keys are upper cased.
	v, err = NewConfig("env_config_test_var").Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	t.Setenv(env, "")
	v, err = NewConfig(env).Get(context.Background())
	assert.Nil(t, v)
	assert.Equal(t, config.ErrNoValue, err)
}

func TestTypedConfigs(t *testing.T) {
	ctx := context.Background()

	t.Setenv("ENV_CONFIG_TEST_UINT64", "25")
	t.Setenv("ENV_CONFIG_TEST_STRING", "finalized")
	t.Setenv("ENV_CONFIG_TEST_DURATION", "90s")

	assert.EqualValues(t, 25, NewUint64Config("ENV_CONFIG_TEST_UINT64", 1).Get(ctx))
	assert.Equal(t, "finalized", NewStringConfig("ENV_CONFIG_TEST_STRING", "confirmed").Get(ctx))
	assert.Equal(t, 90*time.Second, NewDurationConfig("ENV_CONFIG_TEST_DURATION", time.Second).Get(ctx))

	// Unset variables fall back to the default.
	assert.EqualValues(t, 1, NewUint64Config("ENV_CONFIG_TEST_MISSING", 1).Get(ctx))
}
