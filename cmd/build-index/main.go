package main

import (
	"context"
	"flag"
	"time"

	"catalogue-search/internal/config"
	"catalogue-search/internal/embedclient"
	"catalogue-search/internal/indexbuild"
)

func main() {
	csvPath := flag.String("csv", "data/catalogue.csv", "path to the catalogue CSV to index")
	limit := flag.Int("limit", 0, "limit the number of rows indexed (0 = no limit)")
	flag.Parse()

	cfg := config.Load()
	logger := cfg.SetupLogger()

	embed := embedclient.New(cfg.EmbeddingBaseURL, cfg.EmbeddingModel, time.Duration(cfg.EmbeddingTimeoutSecs*float64(time.Second)))
	builder := indexbuild.New(embed, cfg.BuildWorkerPoolSize, logger)

	logger.Info().Str("csv_path", *csvPath).Msg("building catalogue index")
	start := time.Now()

	result, err := builder.Build(context.Background(), *csvPath, cfg.EmbeddingModel, *limit)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build index")
	}

	if err := result.Persist(cfg.IndexPath, cfg.LookupPath, cfg.MetaPath, cfg.VocabPath); err != nil {
		logger.Fatal().Err(err).Msg("failed to persist index artifacts")
	}

	duration := time.Since(start)
	logger.Info().
		Dur("duration", duration).
		Int("num_items", result.Meta.NumItems).
		Int("embedding_dim", result.Meta.EmbeddingDim).
		Msg("index build complete")
}
