package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scribelabs/scribed/internal/analysis"
	"github.com/scribelabs/scribed/internal/config"
	"github.com/scribelabs/scribed/internal/corpus"
	"github.com/scribelabs/scribed/internal/draft"
	"github.com/scribelabs/scribed/internal/httpapi"
	"github.com/scribelabs/scribed/internal/llm"
	"github.com/scribelabs/scribed/internal/outline"
	"github.com/scribelabs/scribed/internal/pipeline"
	"github.com/scribelabs/scribed/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scribed HTTP daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, pl, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(store, pl, cfg, logger)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("scribed starting",
		zap.String("version", version),
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		zap.String("strategy", cfg.Pipeline.Strategy),
	)

	if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("scribed stopped")
	return nil
}

// buildPipeline wires the store, stages, and pipeline service.
func buildPipeline(cfg *config.Config, logger *zap.Logger) (*session.Store, *pipeline.Service, error) {
	client, err := llm.NewClient(llm.Config{
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey.Value(),
		DefaultModel: cfg.LLM.DraftModel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building llm client: %w", err)
	}

	store := session.NewStore(logger.Named("session"))
	reader := corpus.NewReader(cfg.Corpus, logger.Named("corpus"))

	an, err := analysis.NewStage(client, reader, cfg.LLM.AnalysisModel, logger.Named("analysis"))
	if err != nil {
		return nil, nil, fmt.Errorf("building analysis stage: %w", err)
	}
	ol, err := outlineStage(client, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	strategy, err := draft.New(cfg.Pipeline.Strategy, client, draft.Config{
		Model:                 cfg.LLM.DraftModel,
		MaxContinuationRounds: cfg.Pipeline.MaxContinuationRounds,
	}, logger.Named("draft"))
	if err != nil {
		return nil, nil, fmt.Errorf("building drafting strategy: %w", err)
	}

	pl, err := pipeline.NewService(store, reader, an, ol, strategy, logger.Named("pipeline"))
	if err != nil {
		return nil, nil, fmt.Errorf("building pipeline: %w", err)
	}
	return store, pl, nil
}

func outlineStage(client llm.Client, cfg *config.Config, logger *zap.Logger) (*outline.Stage, error) {
	ol, err := outline.NewStage(client, cfg.LLM.DraftModel, logger.Named("outline"))
	if err != nil {
		return nil, fmt.Errorf("building outline stage: %w", err)
	}
	return ol, nil
}
