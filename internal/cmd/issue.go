package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/MrEthical07/goIntake/internal/observability"
	"github.com/spf13/cobra"
)

func newIssueCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "issue",
		Short: "Issue one intake credential and print it as JSON",
		Long:  "Issue one intake credential. The passcode is printed once and cannot be recovered afterward.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			log, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Development)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			client, closeRedis, err := openRedis(cmd.Context(), cfg.Redis, log)
			if err != nil {
				return err
			}
			defer closeRedis()

			engine, err := buildEngine(cfg, client, nil, log)
			if err != nil {
				return err
			}
			defer engine.Close()

			cred, err := engine.IssueCredential(cmd.Context())
			if err != nil {
				return fmt.Errorf("issue credential: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cred)
		},
	}
}

func newDeactivateCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <case-id>",
		Short: "Retire an intake credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			log, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Development)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			client, closeRedis, err := openRedis(cmd.Context(), cfg.Redis, log)
			if err != nil {
				return err
			}
			defer closeRedis()

			engine, err := buildEngine(cfg, client, nil, log)
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.DeactivateCredential(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deactivate %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deactivated\n", args[0])
			return nil
		},
	}
}
