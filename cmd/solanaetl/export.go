package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solanaetl/internal/config"
	"solanaetl/internal/jobs"
	"solanaetl/internal/model"
	"solanaetl/internal/storage"
)

func newExportBlocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export_blocks_and_transactions",
		Short: "Export blocks, transactions and instructions for a slot range",
		RunE:  runExportBlocks,
	}
	addCommonFlags(cmd, 100, 5)
	cmd.Flags().Uint64P("start-block", "s", 0, "start slot (inclusive)")
	cmd.Flags().Uint64P("end-block", "e", 0, "end slot (inclusive)")
	cmd.Flags().String("blocks-output", "", "blocks output file, .csv or .json")
	cmd.Flags().String("transactions-output", "", "transactions output file, .csv or .json")
	cmd.Flags().String("instructions-output", "", "instructions output file, .csv or .json")
	cmd.Flags().String("encoding", "jsonParsed", "getBlock encoding (jsonParsed, json)")
	return cmd
}

func runExportBlocks(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExport(cfgFile, cmd.Flags())
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

	byType, err := storage.NewFileExporters(map[string]string{
		model.TypeBlock:       cfg.BlocksOutput,
		model.TypeTransaction: cfg.TransactionsOutput,
		model.TypeInstruction: cfg.InstructionsOutput,
	})
	if err != nil {
		return err
	}
	exporter := storage.NewCompositeExporter(byType, rt.logger, rt.metrics)

	job, err := jobs.NewExportBlocksJob(jobs.ExportBlocksConfig{
		StartBlock:         cfg.StartBlock,
		EndBlock:           cfg.EndBlock,
		ExportBlocks:       cfg.BlocksOutput != "",
		ExportTransactions: cfg.TransactionsOutput != "",
		ExportInstructions: cfg.InstructionsOutput != "",
		Encoding:           cfg.Encoding,
	}, rt.deps(exporter), rt.parser)
	if err != nil {
		return err
	}

	rt.logger.Info("export blocks start",
		zap.Uint64("from", cfg.StartBlock),
		zap.Uint64("to", cfg.EndBlock),
		zap.Int("batch", cfg.BatchSize),
		zap.Int("workers", cfg.MaxWorkers),
	)
	if err := job.Run(ctx); err != nil {
		return err
	}
	rt.logger.Info("export blocks done", zap.Any("items", exporter.Counts()))
	return nil
}

func newExportInstructionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export_instructions",
		Short: "Export the instructions of the given transactions",
		RunE:  runExportInstructions,
	}
	addCommonFlags(cmd, 100, 1)
	cmd.Flags().StringP("transaction-signatures", "t", "", "file with one transaction signature per line")
	cmd.Flags().StringP("output", "o", "-", "output file, .csv or .json; - writes JSON lines to stdout")
	cmd.Flags().String("encoding", "jsonParsed", "getTransaction encoding (jsonParsed, json)")
	return cmd
}

func runExportInstructions(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExportInstructions(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.TransactionSignatures == "" {
		return fmt.Errorf("transaction signatures file is required")
	}
	signatures, err := readLines(cfg.TransactionSignatures)
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

	exporter, err := rt.typedExporter(cfg.Output, model.TypeInstruction)
	if err != nil {
		return err
	}
	job, err := jobs.NewExportInstructionsJob(signatures, cfg.Encoding, rt.deps(exporter), rt.parser)
	if err != nil {
		return err
	}

	rt.logger.Info("export instructions start", zap.Int("transactions", len(signatures)))
	if err := job.Run(ctx); err != nil {
		return err
	}
	rt.logger.Info("export instructions done", zap.Any("items", exporter.Counts()))
	return nil
}

func (rt *runtime) deps(exporter storage.Exporter) jobs.Deps {
	return jobs.Deps{Executor: rt.exec, Clients: rt.clients, Exporter: exporter, Logger: rt.logger}
}

// typedExporter writes items of typ to output, or JSON lines to stdout for "-".
func (rt *runtime) typedExporter(output, typ string) (*storage.CompositeExporter, error) {
	var e storage.Exporter
	if output == "" || output == "-" {
		e = storage.NewConsoleExporter(nil)
	} else {
		var err error
		if e, err = storage.NewFileExporter(output, typ); err != nil {
			return nil, err
		}
	}
	return storage.NewCompositeExporter(map[string]storage.Exporter{typ: e}, rt.logger, rt.metrics), nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}
