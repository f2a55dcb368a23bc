package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Zhima-Mochi/readify/internal/config"
)

// maintenanceCmd groups the one-off data fixes operators run against a live store.
func maintenanceCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "One-off data maintenance tasks",
	}

	withApp := func(run func(ctx context.Context, a *app, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			// scrape-less process: keep the instruments off the default registry
			a, err := newApp(cmd.Context(), cfg, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer a.close(context.Background())
			return run(cmd.Context(), a, cmd)
		}
	}

	verifyAll := &cobra.Command{
		Use:   "verify-all-accounts",
		Short: "Activate every account still waiting for email verification",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
			n, err := a.services.Accounts.VerifyAllAccounts(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("activated %d account(s)\n", n)
			return nil
		}),
	}

	var email string
	verifyOne := &cobra.Command{
		Use:   "verify-account",
		Short: "Activate one account by email",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
			acc, err := a.services.Accounts.VerifyAccountByEmail(ctx, email)
			if err != nil {
				return err
			}
			cmd.Printf("account %s (%s) is active\n", acc.ID, acc.Email)
			return nil
		}),
	}
	verifyOne.Flags().StringVar(&email, "email", "", "account email")
	_ = verifyOne.MarkFlagRequired("email")

	hashPasswords := &cobra.Command{
		Use:   "hash-passwords",
		Short: "Hash passwords that were stored in plain text",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
			n, err := a.services.Accounts.HashPlaintextPasswords(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("hashed %d password(s)\n", n)
			return nil
		}),
	}

	var olderThan time.Duration
	cleanupMedia := &cobra.Command{
		Use:   "cleanup-media",
		Short: "Delete TEMP uploads that were never attached",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			n, err := a.services.Catalog.CleanupTempMedia(ctx, olderThan)
			if err != nil {
				return err
			}
			cmd.Printf("removed %d media record(s)\n", n)
			return nil
		}),
	}
	cleanupMedia.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "minimum age of a TEMP upload")

	cmd.AddCommand(verifyAll, verifyOne, hashPasswords, cleanupMedia)
	return cmd
}
