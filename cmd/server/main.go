package main

import (
	"time"

	"catalogue-search/internal/config"
	"catalogue-search/internal/embedclient"
	"catalogue-search/internal/facetcompose"
	"catalogue-search/internal/facetstore"
	"catalogue-search/internal/handlers"
	"catalogue-search/internal/indexbuild"
	"catalogue-search/internal/queryengine"
	"catalogue-search/internal/server"
	"catalogue-search/internal/vectorindex"
)

func main() {
	cfg := config.Load()
	logger := cfg.SetupLogger()

	index, err := vectorindex.Load(cfg.IndexPath)
	if err != nil {
		logger.Fatal().Err(err).Str("index_path", cfg.IndexPath).Msg("failed to load vector index")
	}
	lookup, err := indexbuild.LoadLookup(cfg.LookupPath)
	if err != nil {
		logger.Fatal().Err(err).Str("lookup_path", cfg.LookupPath).Msg("failed to load product lookup")
	}

	embed := embedclient.New(cfg.EmbeddingBaseURL, cfg.EmbeddingModel, time.Duration(cfg.EmbeddingTimeoutSecs*float64(time.Second)))
	engine := queryengine.New(embed, index, lookup, logger)

	var facets handlers.FacetQuerier
	var composerStore facetcompose.Store
	if cfg.DatabaseURL != "" {
		db, err := facetstore.Connect(cfg.DatabaseURL)
		if err != nil {
			logger.Warn().Err(err).Msg("facet/sku store connection failed, starting without facets")
		} else {
			store := facetstore.New(db)
			facets = store
			composerStore = store
			logger.Info().Msg("facet/sku store connection established")
		}
	} else {
		logger.Info().Msg("DATABASE_URL not set, starting without facets")
	}
	composer := facetcompose.New(composerStore, logger)

	srv := server.New(cfg, engine, composer, facets, logger)
	srv.Initialize()

	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("server failed to start")
	}
}
