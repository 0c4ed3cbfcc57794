package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cyberlegal-backend/config"
	"cyberlegal-backend/ingest"
	"cyberlegal-backend/logging"
	"cyberlegal-backend/models"
	"cyberlegal-backend/repository"
	"cyberlegal-backend/service"
	"cyberlegal-backend/storage"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	config.LoadDotEnv()

	app := &cli.App{
		Name:      "ingest-cases",
		Usage:     "Embed the case corpus and load it into the case store",
		ArgsUsage: "<corpus path in storage>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "reset", Usage: "Remove all existing case records before loading"},
			&cli.IntFlag{Name: "batch-size", Value: 100, Usage: "Records embedded and written per batch"},
			&cli.IntFlag{Name: "concurrency", Value: 4, Usage: "Batches processed in parallel"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one corpus path, got %d", c.NArg())
	}
	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be positive, got %d", batchSize)
	}
	concurrency := max(c.Int("concurrency"), 1)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Init(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))
	ctx := context.Background()

	store, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return err
	}
	data, err := readCorpus(ctx, store, c.Args().First())
	if err != nil {
		return err
	}

	cases, skipped, err := ingest.ParseCorpus(data)
	if err != nil {
		return err
	}
	records := make([]models.CaseRecord, 0, len(cases))
	for _, raw := range cases {
		record, err := ingest.BuildRecord(raw)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, record)
	}
	logger.Info("corpus parsed", "records", len(records), "skipped", skipped)

	client, err := service.NewGeminiClient(ctx, cfg.GoogleAPIKey)
	if err != nil {
		return err
	}
	if client == nil {
		return fmt.Errorf("GOOGLE_API_KEY or GEMINI_API_KEY is required to embed the corpus")
	}
	defer client.Close()
	embedder := service.NewGeminiEmbedder(client, cfg.EmbeddingModel, cfg.EmbeddingDimensions)

	db, err := repository.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := repository.NewCaseRepository(db, embedder)

	if c.Bool("reset") {
		if err := repo.Reset(ctx); err != nil {
			return err
		}
		logger.Info("existing case records removed")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		batch := records[start:end]

		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			texts := make([]string, len(batch))
			for i, r := range batch {
				texts[i] = r.Document
			}
			embeddings, err := embedder.EmbedDocuments(gctx, texts)
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			if err := repo.Upsert(gctx, batch, embeddings); err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			logger.Info("batch loaded", "from", start, "to", end)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info("ingestion complete", "loaded", len(records), "total_records", total)
	return nil
}

func readCorpus(ctx context.Context, store storage.Storage, path string) ([]byte, error) {
	rc, err := store.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	return data, nil
}
