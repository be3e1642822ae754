package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solanaetl/internal/config"
	"solanaetl/internal/jobs"
	"solanaetl/internal/model"
	"solanaetl/internal/storage"
)

func newExtractAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract_accounts",
		Short: "Extract created accounts from instructions, or every account of transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd, "instructions", model.TypeAccount, func(items []model.Item, deps jobs.Deps) (jobs.Job, error) {
				return jobs.NewExtractAccountsJob(items, deps)
			})
		},
	}
	addCommonFlags(cmd, 100, 1)
	cmd.Flags().StringP("instructions", "i", "", "instructions or transactions file, .csv or .json")
	cmd.Flags().StringP("output", "o", "-", "output file, .csv or .json; - writes JSON lines to stdout")
	return cmd
}

func newExtractTokenTransfersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract_token_transfers",
		Short: "Extract token transfers from instructions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd, "instructions", model.TypeTokenTransfer, func(items []model.Item, deps jobs.Deps) (jobs.Job, error) {
				return jobs.NewExtractTokenTransfersJob(items, deps)
			})
		},
	}
	addCommonFlags(cmd, 100, 1)
	cmd.Flags().StringP("instructions", "i", "", "instructions file, .csv or .json")
	cmd.Flags().StringP("output", "o", "-", "output file, .csv or .json; - writes JSON lines to stdout")
	return cmd
}

func newExtractTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract_tokens",
		Short: "Extract tokens and NFTs from mint accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd, "accounts", model.TypeToken, func(items []model.Item, deps jobs.Deps) (jobs.Job, error) {
				return jobs.NewExtractTokensJob(items, deps)
			})
		},
	}
	addCommonFlags(cmd, 100, 1)
	cmd.Flags().StringP("accounts", "a", "", "accounts file, .csv or .json")
	cmd.Flags().StringP("output", "o", "-", "output file, .csv or .json; - writes JSON lines to stdout")
	return cmd
}

func runExtract(cmd *cobra.Command, inputKey, outputType string, build func([]model.Item, jobs.Deps) (jobs.Job, error)) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExtract(cfgFile, cmd.Flags(), inputKey)
	if err != nil {
		return err
	}
	if cfg.Input == "" {
		return fmt.Errorf("%s file is required", inputKey)
	}
	items, err := storage.ReadItems(cfg.Input)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	rt, err := newRuntime(ctx, cfg.Common)
	if err != nil {
		return err
	}
	defer rt.Close()

	exporter, err := rt.typedExporter(cfg.Output, outputType)
	if err != nil {
		return err
	}
	job, err := build(items, rt.deps(exporter))
	if err != nil {
		return err
	}

	rt.logger.Info("extract start",
		zap.String("command", cmd.Name()),
		zap.String("input", cfg.Input),
		zap.Int("items", len(items)),
	)
	if err := job.Run(ctx); err != nil {
		return err
	}
	rt.logger.Info("extract done", zap.String("command", cmd.Name()), zap.Any("items", exporter.Counts()))
	return nil
}

func newExtractFieldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract_field",
		Short: "Write one field of every item in a CSV or JSON lines file, one value per line",
		RunE:  runExtractField,
	}
	cmd.Flags().StringP("input", "i", "", "input file, .csv or .json")
	cmd.Flags().StringP("field", "f", "", "field name")
	cmd.Flags().StringP("output", "o", "-", "output file; - writes to stdout")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runExtractField(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExtractField(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input file is required")
	}
	if cfg.Field == "" {
		return fmt.Errorf("field is required")
	}
	items, err := storage.ReadItems(cfg.Input)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if cfg.Output != "" && cfg.Output != "-" {
		file, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer file.Close()
		out = file
	}
	if err := storage.ExtractField(items, cfg.Field, out); err != nil {
		return err
	}
	logger.Debug("field extracted", zap.String("field", cfg.Field), zap.Int("items", len(items)))
	return nil
}
