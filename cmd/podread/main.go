package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"podread/internal/auth"
	"podread/internal/bookmarks"
	"podread/internal/config"
	"podread/internal/content"
	"podread/internal/dataset"
	"podread/internal/library"
	"podread/internal/logging"
	"podread/internal/metrics"
	"podread/internal/server"
)

func main() {
	logger := logging.New(config.LogLevel(), config.Env())

	listenAddr := config.ListenAddr()
	if err := config.ValidateListenAddr(listenAddr); err != nil {
		logger.Fatal().Err(err).Str("addr", listenAddr).Msg("invalid listen address")
	}

	dataFile, err := config.ResolveDataFile()
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve data file")
	}

	debounce := config.RefreshDebounce()

	sourceDir, building, err := config.ResolveSourceDir()
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve source directory")
	}
	if building {
		builder := library.NewBuilder(sourceDir, dataFile, logger)
		if err := builder.Watch(debounce); err != nil {
			logger.Fatal().Err(err).Str("source", sourceDir).Msg("initialise dataset builder")
		}
		defer func() {
			if err := builder.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing dataset builder")
			}
		}()
	} else if _, err := os.Stat(dataFile); err != nil {
		logger.Warn().Err(err).Str("data_file", dataFile).Msg("dataset not readable yet; episode endpoints will fail until it exists")
	}

	subscriberFile, tokensEnabled, err := config.ResolveSubscriberFile()
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve subscriber file")
	}

	var tokens auth.TokenValidator
	if tokensEnabled {
		tokenStore, err := auth.NewTokenStore(subscriberFile, debounce, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise token store")
		}
		defer func() {
			if err := tokenStore.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing token store")
			}
		}()
		tokens = tokenStore
	}

	site, err := config.ResolveSite()
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve site metadata")
	}

	sessions := auth.NewSessions(config.AdminPassword())
	if !sessions.Enabled() {
		logger.Info().Msg("admin login disabled; set PODREAD_ADMIN_PASSWORD to enable it")
	}

	handler := server.New(server.Options{
		Episodes:    dataset.NewFileSource(dataFile),
		Renderer:    content.NewRenderer(),
		Entitlement: auth.NewEntitlement(tokens, sessions),
		Sessions:    sessions,
		Store:       bookmarks.NewMemoryStore(),
		Feed: server.FeedMetadata{
			Title:       site.Title,
			Description: site.Description,
			Language:    site.Language,
			Author:      site.Author,
			BaseURL:     site.BaseURL,
		},
		Metrics: metrics.New(),
		Logger:  logger,
	})

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("graceful shutdown error")
		}
	}()

	logger.Info().Str("addr", listenAddr).Str("data_file", dataFile).Bool("builder", building).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("shutdown complete")
}
