package main

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alizeeshan1234/er-transfer/pkg/app"
)

type cli struct {
	configPath string
	config     *app.BaseConfig
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "er-transfer",
		Short: "Drive the er_transfer program across Solana and an ephemeral rollup",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
		SilenceUsage: true,
	}

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "config.yaml", "configuration file path")

	cmd.AddCommand(
		c.newAddressCmd(),
		c.newBalanceCmd(),
		c.newInitializeCmd(),
		c.newDelegateCmd(),
		c.newTransferCmd(),
		c.newUndelegateCmd(),
		c.newRunCmd(),
		c.newSimulateCmd(),
		c.newServeCmd(),
	)
	return cmd
}

func (c *cli) loadConfig() error {
	config, err := app.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	c.config = config

	// Command output goes to stdout, logs to stderr.
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel)); err == nil {
		logrus.SetLevel(level)
	}
	return nil
}

// withEnvironment connects to the configured cluster for the duration of fn.
func (c *cli) withEnvironment(ctx context.Context, fn func(env *app.Environment) error) error {
	env, err := app.NewEnvironment(ctx, c.config.Cluster)
	if err != nil {
		return err
	}
	defer env.Close()

	return fn(env)
}

func (c *cli) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scenario on a schedule and confirm its steps in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(app.NewCanary(), c.config)
		},
	}
}
