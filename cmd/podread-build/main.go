package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"podread/internal/config"
	"podread/internal/library"
	"podread/internal/logging"
)

func main() {
	logger := logging.New(config.LogLevel(), config.Env())

	defaultOut, err := config.ResolveDataFile()
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve data file")
	}

	source := flag.String("source", os.Getenv("PODREAD_SOURCE_DIR"), "directory holding transcripts and artifacts")
	out := flag.String("out", defaultOut, "path of the episode dataset to write")
	watch := flag.Bool("watch", false, "keep rebuilding while the source directory changes")
	debounce := flag.Duration("debounce", config.RefreshDebounce(), "delay before rebuilding after a change")
	flag.Parse()

	if *source == "" {
		logger.Fatal().Msg("a source directory is required (-source or PODREAD_SOURCE_DIR)")
	}

	builder := library.NewBuilder(*source, *out, logger)

	if !*watch {
		start := time.Now()
		episodes, err := builder.Build()
		if err != nil {
			logger.Fatal().Err(err).Str("source", *source).Msg("build dataset")
		}
		logger.Info().
			Int("episodes", len(episodes)).
			Str("out", *out).
			Dur("took", time.Since(start)).
			Msg("dataset written")
		return
	}

	if err := builder.Watch(*debounce); err != nil {
		logger.Fatal().Err(err).Str("source", *source).Msg("watch source directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("source", *source).Str("out", *out).Msg("watching for changes")
	<-ctx.Done()

	if err := builder.Close(); err != nil {
		logger.Error().Err(err).Msg("error closing builder")
	}
	logger.Info().Msg("builder stopped")
}
