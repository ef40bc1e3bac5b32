package daemon

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"tosho/internal/anilist"
	"tosho/internal/config"
	"tosho/internal/ingest"
	"tosho/internal/logging"
	"tosho/internal/nyaa"
	"tosho/internal/state"
	"tosho/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run wires the full ingestion stack and blocks until the context is
// canceled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "tosho.log")},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldRunID, uuid.NewString()))

	s, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	tracker, err := state.NewTracker(signalCtx, s, logger)
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("init state tracker: %w", err)
	}

	manager := ingest.NewManager(cfg, s, tracker,
		nyaa.New(cfg, logger),
		anilist.New(cfg, logger),
		logger)

	d, err := New(cfg, s, manager, logger)
	if err != nil {
		_ = s.Close()
		return err
	}
	if err := d.Start(signalCtx); err != nil {
		_ = s.Close()
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("close daemon", logging.Error(err))
		}
	}()

	<-signalCtx.Done()
	logger.Info("shutdown signal received")
	return nil
}
