package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solanaetl/internal/config"
	"solanaetl/internal/storage"
	"solanaetl/internal/storage/postgres"
	"solanaetl/internal/streaming"
)

func newStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Follow the chain head and publish new entities",
		RunE:  runStream,
	}
	addCommonFlags(cmd, 10, 5)
	cmd.Flags().StringP("last-synced-block-file", "l", "last_synced_block.txt", "file holding the last synced slot")
	cmd.Flags().String("state-dsn", "", "keep the last synced slot in Postgres instead of a file")
	cmd.Flags().String("state-name", "stream", "state row name when state-dsn is set")
	cmd.Flags().Uint64("lag", 0, "slots to lag behind the head")
	cmd.Flags().StringP("output", "o", "-", "- or console, a JSON lines file, nats://host:port/prefix or postgres://dsn; comma-separated to fan out")
	cmd.Flags().Uint64P("start-block", "s", 0, "start slot; defaults to the lagged head when no state is saved")
	cmd.Flags().StringP("entity-types", "e", "", "comma-separated entity types to emit, all when empty")
	cmd.Flags().Int("period-seconds", 10, "seconds to sleep when there is nothing to sync")
	cmd.Flags().Uint64P("block-batch-size", "B", 1, "slots per sync round")
	cmd.Flags().String("encoding", "jsonParsed", "getBlock encoding (jsonParsed, json)")
	return cmd
}

func runStream(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadStream(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	entities, err := streaming.ParseEntityTypes(cfg.EntityTypes)
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

	var state streaming.StateStore = &streaming.FileStateStore{Path: cfg.LastSyncedBlockFile}
	if cfg.StateDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.StateDSN)
		if err != nil {
			return fmt.Errorf("state store: %w", err)
		}
		defer store.Close()
		if err := store.Open(ctx); err != nil {
			return err
		}
		state = &streaming.DBStateStore{Store: store, Name: cfg.StateName}
	}

	exporter, err := storage.NewOutputExporter(ctx, cfg.Output, rt.logger)
	if err != nil {
		return err
	}
	adapter, err := streaming.NewAdapter(streaming.AdapterConfig{
		Entities: entities,
		Encoding: cfg.Encoding,
		Executor: rt.exec,
		Clients:  rt.clients,
		Parser:   rt.parser,
		Exporter: exporter,
		Logger:   rt.logger,
	})
	if err != nil {
		return err
	}

	streamer, err := streaming.NewStreamer(streaming.Config{
		StartBlock:     cfg.StartBlock,
		Lag:            cfg.Lag,
		Period:         cfg.Period,
		BlockBatchSize: cfg.BlockBatchSize,
	}, adapter, state, rt.metrics, rt.logger)
	if err != nil {
		return err
	}

	rt.logger.Info("stream configured",
		zap.String("entities", entities.String()),
		zap.String("output", cfg.Output),
		zap.Uint64("block_batch_size", cfg.BlockBatchSize),
	)
	return streamer.Run(ctx)
}
