package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/vetlab-site/labmedia/blob"
	"github.com/vetlab-site/labmedia/config"
	"github.com/vetlab-site/labmedia/fileutils"
	"github.com/vetlab-site/labmedia/imaging"
	"github.com/vetlab-site/labmedia/refindex"
	"github.com/vetlab-site/labmedia/resolve"
)

func ingestCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	startTime := time.Now()
	logger.Info().Str("file", args.Ingest.File).Str("module", args.Ingest.Module).Msg("starting ingestion")
	defer func() {
		logger.Info().Float64("seconds", time.Since(startTime).Seconds()).Msg("ingestion done")
	}()

	storageRoot := args.Ingest.Storage
	database := args.Ingest.Database
	baseURL := args.Ingest.BaseURL
	quality := args.Ingest.Quality
	maxBytes := args.Ingest.MaxSize.Size

	if args.Ingest.Config != "" {
		cfg, err := config.LoadFromFile(args.Ingest.Config)
		if err != nil {
			return fmt.Errorf("could not load config: %w", err)
		}
		if storageRoot == "" {
			storageRoot = cfg.StorageRoot
		}
		if database == "" {
			database = cfg.Database
		}
		if baseURL == "" {
			baseURL = cfg.BaseURL
		}
		if quality == 0 {
			quality = cfg.WebpQuality
		}
		if maxBytes == 0 {
			maxBytes = cfg.MaxUploadSize.Size
		}
	}
	if storageRoot == "" {
		return fmt.Errorf("no storage root specified")
	}
	if baseURL == "" {
		baseURL = os.Getenv("BASE_URL")
	}

	data, err := os.ReadFile(args.Ingest.File)
	if err != nil {
		return fmt.Errorf("could not read input file: %w", err)
	}

	contentType := args.Ingest.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(args.Ingest.File))
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	if err := os.MkdirAll(storageRoot, 0755); err != nil {
		return fmt.Errorf("could not create storage root: %w", err)
	}
	if err := fileutils.VerifyWritable(storageRoot); err != nil {
		return fmt.Errorf("storage root must be writable: %w", err)
	}

	var pairs imaging.PairRecorder
	if database != "" {
		dbCli, err := newSQLite(database, logger)
		if err != nil {
			return fmt.Errorf("could not open database: %w", err)
		}
		pairs = refindex.NewIndex(refindex.IndexParams{
			DB:     dbCli,
			Logger: logger,
		})
	}

	pipeline := imaging.NewPipeline(imaging.PipelineParams{
		Store:    blob.NewStore(storageRoot, logger),
		Pairs:    pairs,
		Quality:  quality,
		MaxBytes: maxBytes,
		Logger:   logger,
	})

	result, err := pipeline.Ingest(ctx, data, contentType, args.Ingest.Module, filepath.Base(args.Ingest.File))
	if err != nil {
		return err
	}
	logger.Info().Object("result", result).Msg("stored upload")

	resolver := resolve.NewResolver(baseURL)

	out := map[string]any{
		"url":    resolver.ResolveURL(result.URL),
		"format": result.Format,
		"size":   result.Size,
	}
	if result.OriginalURL != "" {
		out["originalUrl"] = resolver.ResolveURL(result.OriginalURL)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
