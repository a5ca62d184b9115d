package app

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// BaseConfig contains the process configuration for the service and the CLI.
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	InsecureListenAddress string `mapstructure:"insecure_listen_address"`
	DebugListenAddress    string `mapstructure:"debug_listen_address"`

	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	EnablePprof  bool `mapstructure:"enable_pprof"`
	EnableExpvar bool `mapstructure:"enable_expvar"`

	// Ballast for improving Go GC performance. Note that capacity will be
	// limited to 50% of the total memory.
	// https://blog.twitch.tv/en/2019/04/10/go-memory-ballast-how-i-learnt-to-stop-worrying-and-love-the-heap/
	EnableBallast   bool    `mapstructure:"enable_ballast"`
	BallastCapacity float32 `mapstructure:"ballast_capacity"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	Cluster ClusterConfig `mapstructure:",squash"`
}

// ClusterConfig says where the er_transfer program lives and who pays for it.
type ClusterConfig struct {
	// ProviderURL is the base layer RPC endpoint.
	ProviderURL string `mapstructure:"anchor_provider_url"`

	// WalletPath is the payer keypair file.
	WalletPath string `mapstructure:"anchor_wallet"`

	RouterEndpoint   string `mapstructure:"router_endpoint"`
	RouterWsEndpoint string `mapstructure:"router_ws_endpoint"`

	Commitment string `mapstructure:"commitment"`

	// RPCRateLimit caps requests per second per RPC method. Zero disables
	// limiting.
	RPCRateLimit float64 `mapstructure:"rpc_rate_limit"`

	ComputeUnitPrice uint64 `mapstructure:"compute_unit_price"`
	ComputeUnitLimit uint32 `mapstructure:"compute_unit_limit"`

	// The step store is postgres when either a URL or host is set, and in
	// memory otherwise.
	DatabaseURL      string `mapstructure:"database_url"`
	DatabaseHost     string `mapstructure:"database_host"`
	DatabasePort     int    `mapstructure:"database_port"`
	DatabaseUser     string `mapstructure:"database_user"`
	DatabasePassword string `mapstructure:"database_password"`
	DatabaseName     string `mapstructure:"database_name"`
	DatabaseAwsIam   bool   `mapstructure:"database_aws_iam"`

	ScenarioSchedule     string        `mapstructure:"scenario_schedule"`
	ConfirmationInterval time.Duration `mapstructure:"confirmation_interval"`
}

var defaultConfig = BaseConfig{
	LogLevel: "info",

	AppName: "er-transfer",

	InsecureListenAddress: "localhost:8086",
	DebugListenAddress:    ":8123",

	ShutdownGracePeriod: 30 * time.Second,

	EnablePprof:  true,
	EnableExpvar: true,

	EnableBallast:   false,
	BallastCapacity: 0.333,

	Cluster: ClusterConfig{
		ProviderURL:      "https://api.devnet.solana.com",
		WalletPath:       "~/.config/solana/id.json",
		RouterEndpoint:   "https://devnet-router.magicblock.app",
		RouterWsEndpoint: "wss://devnet-router.magicblock.app",

		Commitment:   "confirmed",
		RPCRateLimit: 10,

		DatabasePort: 5432,

		ScenarioSchedule:     "@every 10m",
		ConfirmationInterval: 5 * time.Second,
	},
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	_ = viper.BindEnv("app_name", "APP_NAME")

	_ = viper.BindEnv("insecure_listen_address", "INSECURE_LISTEN_ADDRESS")
	_ = viper.BindEnv("debug_listen_address", "DEBUG_LISTEN_ADDRESS")

	_ = viper.BindEnv("shutdown_grace_period", "SHUTDOWN_GRACE_PERIOD")

	_ = viper.BindEnv("enable_pprof", "ENABLE_PPROF")
	_ = viper.BindEnv("enable_expvar", "ENABLE_EXPVAR")

	_ = viper.BindEnv("enable_ballast", "ENABLE_BALLAST")
	_ = viper.BindEnv("ballast_capacity", "BALLAST_CAPACITY")

	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")

	_ = viper.BindEnv("anchor_provider_url", "ANCHOR_PROVIDER_URL")
	_ = viper.BindEnv("anchor_wallet", "ANCHOR_WALLET")
	_ = viper.BindEnv("router_endpoint", "ROUTER_ENDPOINT")
	_ = viper.BindEnv("router_ws_endpoint", "ROUTER_WS_ENDPOINT")
	_ = viper.BindEnv("commitment", "COMMITMENT")
	_ = viper.BindEnv("rpc_rate_limit", "RPC_RATE_LIMIT")
	_ = viper.BindEnv("compute_unit_price", "COMPUTE_UNIT_PRICE")
	_ = viper.BindEnv("compute_unit_limit", "COMPUTE_UNIT_LIMIT")

	_ = viper.BindEnv("database_url", "DATABASE_URL")
	_ = viper.BindEnv("database_host", "DATABASE_HOST")
	_ = viper.BindEnv("database_port", "DATABASE_PORT")
	_ = viper.BindEnv("database_user", "DATABASE_USER")
	_ = viper.BindEnv("database_password", "DATABASE_PASSWORD")
	_ = viper.BindEnv("database_name", "DATABASE_NAME")
	_ = viper.BindEnv("database_aws_iam", "DATABASE_AWS_IAM")

	_ = viper.BindEnv("scenario_schedule", "SCENARIO_SCHEDULE")
	_ = viper.BindEnv("confirmation_interval", "CONFIRMATION_INTERVAL")
}

// LoadConfig reads the optional config file at path, overlays the
// environment and returns the result on top of the defaults.
func LoadConfig(path string) (*BaseConfig, error) {
	// viper.ReadInConfig only returns ConfigFileNotFoundError if it has to search
	// for a default config file because one hasn't been explicitly set. That is,
	// if we explicitly set a config file, and it does not exist, viper will not
	// return a ConfigFileNotFoundError, so we do it ourselves.
	if len(path) > 0 {
		if _, err := os.Stat(path); err == nil {
			viper.SetConfigFile(path)
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "failed to check if config exists")
		}
	}

	err := viper.ReadInConfig()
	_, isConfigNotFound := err.(viper.ConfigFileNotFoundError)
	if err != nil && !isConfigNotFound {
		return nil, errors.Wrap(err, "failed to load config")
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if len(config.AppName) == 0 {
		return nil, errors.New("must specify an application name")
	}
	return &config, nil
}
