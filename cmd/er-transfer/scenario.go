package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alizeeshan1234/er-transfer/pkg/app"
	"github.com/alizeeshan1234/er-transfer/pkg/data/step"
	step_memory_client "github.com/alizeeshan1234/er-transfer/pkg/data/step/memory"
	"github.com/alizeeshan1234/er-transfer/pkg/ertransfer"
	"github.com/alizeeshan1234/er-transfer/pkg/ertransfer/ledger"
	"github.com/alizeeshan1234/er-transfer/pkg/ertransfer/scenario"
	"github.com/alizeeshan1234/er-transfer/pkg/wallet"
)

const simulatedPayerLamports = 1_000_000_000

func (c *cli) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the transfer scenario once against the configured cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEnvironment(cmd.Context(), func(env *app.Environment) error {
				s := scenario.New(env.Client, env.Base, env.Steps, scenario.WithEnvConfigs())

				run, err := s.Run(cmd.Context(), env.Payer)
				printRun(cmd.OutOrStdout(), run)
				return err
			})
		},
	}
}

func (c *cli) newSimulateCmd() *cobra.Command {
	var transferAmount, seedBalance, receiverFunding uint64

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the transfer scenario against an in-process ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			validator, err := wallet.Generate()
			if err != nil {
				return err
			}
			payer, err := wallet.Generate()
			if err != nil {
				return err
			}

			l := ledger.New(wallet.PublicKey(validator))
			l.Airdrop(wallet.PublicKey(payer), simulatedPayerLamports)

			overrides := &scenario.Overrides{
				TransferAmount:  &transferAmount,
				ReceiverFunding: &receiverFunding,
			}
			if !cmd.Flags().Changed("seed-balance") {
				seedBalance = transferAmount
			}

			client := ertransfer.NewClient(l.BaseSender(), l.EphemeralSender(), ertransfer.WithValidatorResolver(l))
			steps := step_memory_client.New()

			// The program has no instruction that credits a balance, so the
			// payer is seeded directly once its account exists.
			seed := func(_ context.Context, name string, run *scenario.Run) error {
				if name != scenario.StepInitialize || seedBalance == 0 {
					return nil
				}
				return l.Credit(run.Payer, seedBalance)
			}

			s := scenario.New(client, l.BaseSender(), steps, scenario.WithOverrides(overrides), scenario.WithHook(seed))

			run, err := s.Run(ctx, payer)
			printRun(cmd.OutOrStdout(), run)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, party := range []struct {
				name  string
				owner ed25519.PublicKey
			}{
				{"payer", run.Payer},
				{"receiver", run.Receiver},
			} {
				balance, err := client.GetBalance(ctx, party.owner)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-9s balance %d\n", party.name, balance)
			}

			records, err := steps.GetAllByRun(ctx, run.Id)
			if err != nil && err != step.ErrStepNotFound {
				return err
			}
			fmt.Fprintf(out, "recorded %d steps\n", len(records))
			return nil
		},
	}

	cmd.Flags().Uint64Var(&transferAmount, "transfer-amount", 1, "amount transferred from payer to receiver")
	cmd.Flags().Uint64Var(&seedBalance, "seed-balance", 0, "program balance credited to the payer, defaults to the transfer amount")
	cmd.Flags().Uint64Var(&receiverFunding, "receiver-funding", 10_000_000, "lamports sent to the receiver before it initializes")
	return cmd
}

func printRun(out io.Writer, run *scenario.Run) {
	if run == nil {
		return
	}

	fmt.Fprintf(out, "run %s\n", run.Id)
	for _, result := range run.Steps {
		outcome := result.Signature.String()
		if result.Skipped {
			outcome = "skipped"
		}
		fmt.Fprintf(out, "  %-20s %-9s %s\n", result.Step, result.Layer.String(), outcome)
	}
}
