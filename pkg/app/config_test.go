package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name: canary-test
anchor_provider_url: http://localhost:8899
rpc_rate_limit: 2.5
compute_unit_price: 1000
scenario_schedule: "@every 1m"
confirmation_interval: 3s
`), 0o644))

	// The environment wins over the file.
	t.Setenv("COMMITMENT", "finalized")
	t.Setenv("DATABASE_PORT", "6543")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "canary-test", config.AppName)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, 30*time.Second, config.ShutdownGracePeriod)

	assert.Equal(t, "http://localhost:8899", config.Cluster.ProviderURL)
	assert.Equal(t, defaultConfig.Cluster.RouterEndpoint, config.Cluster.RouterEndpoint)
	assert.Equal(t, "finalized", config.Cluster.Commitment)
	assert.Equal(t, 2.5, config.Cluster.RPCRateLimit)
	assert.EqualValues(t, 1000, config.Cluster.ComputeUnitPrice)
	assert.Equal(t, 6543, config.Cluster.DatabasePort)
	assert.Equal(t, "@every 1m", config.Cluster.ScenarioSchedule)
	assert.Equal(t, 3*time.Second, config.Cluster.ConfirmationInterval)
}
