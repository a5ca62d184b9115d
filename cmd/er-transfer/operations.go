package main

import (
	"crypto/ed25519"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/alizeeshan1234/er-transfer/pkg/app"
	"github.com/alizeeshan1234/er-transfer/pkg/ertransfer"
	"github.com/alizeeshan1234/er-transfer/pkg/solana"
	ertransfer_program "github.com/alizeeshan1234/er-transfer/pkg/solana/ertransfer"
	"github.com/alizeeshan1234/er-transfer/pkg/wallet"
)

func (c *cli) newAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address [owner]",
		Short: "Print the balance account address of owner, or of the wallet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.ownerFromArgs(args)
			if err != nil {
				return err
			}

			address, bump, err := ertransfer_program.GetBalanceAddress(owner)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "owner:   %s\n", solana.ToBase58(owner))
			fmt.Fprintf(cmd.OutOrStdout(), "balance: %s (bump %d)\n", solana.ToBase58(address), bump)
			return nil
		},
	}
}

func (c *cli) newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [owner]",
		Short: "Print the program balance of owner, or of the wallet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.ownerFromArgs(args)
			if err != nil {
				return err
			}

			return c.withEnvironment(cmd.Context(), func(env *app.Environment) error {
				delegated, err := env.Client.IsDelegated(cmd.Context(), owner)
				if err != nil {
					return err
				}

				balance, err := env.Client.GetBalance(cmd.Context(), owner)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "balance:   %d\n", balance)
				fmt.Fprintf(cmd.OutOrStdout(), "delegated: %t\n", delegated)
				return nil
			})
		},
	}
}

func (c *cli) newInitializeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initialize",
		Short: "Create the wallet's balance account on the base layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEnvironment(cmd.Context(), func(env *app.Environment) error {
				sig, err := env.Client.Initialize(cmd.Context(), env.Payer)
				return printSignature(cmd, sig, err)
			})
		},
	}
}

func (c *cli) newDelegateCmd() *cobra.Command {
	var validator string
	var commitFrequencyMs uint32

	cmd := &cobra.Command{
		Use:   "delegate",
		Short: "Delegate the wallet's balance account to an ephemeral rollup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ertransfer.DelegateOptions{
				CommitFrequencyMs: commitFrequencyMs,
			}
			if len(validator) > 0 {
				key, err := solana.PublicKeyFromString(validator)
				if err != nil {
					return errors.Wrap(err, "invalid validator")
				}
				opts.Validator = key
			}

			return c.withEnvironment(cmd.Context(), func(env *app.Environment) error {
				sig, err := env.Client.DelegateBalance(cmd.Context(), env.Payer, opts)
				return printSignature(cmd, sig, err)
			})
		},
	}

	cmd.Flags().StringVar(&validator, "validator", "", "validator identity, defaults to the router's closest")
	cmd.Flags().Uint32Var(&commitFrequencyMs, "commit-frequency", ertransfer_program.DefaultCommitFrequencyMs, "commit frequency in milliseconds")
	return cmd
}

func (c *cli) newTransferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <receiver> <amount>",
		Short: "Transfer from the wallet's balance to receiver's on the ephemeral rollup",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			receiver, err := solana.PublicKeyFromString(args[0])
			if err != nil {
				return errors.Wrap(err, "invalid receiver")
			}

			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return errors.Wrap(err, "invalid amount")
			}

			return c.withEnvironment(cmd.Context(), func(env *app.Environment) error {
				sig, err := env.Client.Transfer(cmd.Context(), env.Payer, receiver, amount)
				return printSignature(cmd, sig, err)
			})
		},
	}
}

func (c *cli) newUndelegateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undelegate",
		Short: "Commit the wallet's balance account and return it to the base layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEnvironment(cmd.Context(), func(env *app.Environment) error {
				sig, err := env.Client.Undelegate(cmd.Context(), env.Payer)
				return printSignature(cmd, sig, err)
			})
		},
	}
}

func (c *cli) ownerFromArgs(args []string) (ed25519.PublicKey, error) {
	if len(args) > 0 {
		owner, err := solana.PublicKeyFromString(args[0])
		if err != nil {
			return nil, errors.Wrap(err, "invalid owner")
		}
		return owner, nil
	}

	key, err := wallet.Load(c.config.Cluster.WalletPath)
	if err != nil {
		return nil, err
	}
	return wallet.PublicKey(key), nil
}

// printSignature prints sig whenever one exists, since a transaction that
// failed on chain still has one worth looking up.
func printSignature(cmd *cobra.Command, sig solana.Signature, err error) error {
	if sig != (solana.Signature{}) {
		fmt.Fprintf(cmd.OutOrStdout(), "signature: %s\n", sig.String())
	}
	return err
}
