package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/hsarchitect/folio/config"
	"github.com/hsarchitect/folio/mail"
	"github.com/hsarchitect/folio/media"
	"github.com/hsarchitect/folio/rebuild"
	"github.com/hsarchitect/folio/server/auth"
	"github.com/hsarchitect/folio/server/middleware"
	"github.com/hsarchitect/folio/server/state"
	"github.com/hsarchitect/folio/server/util"
	"github.com/hsarchitect/folio/storage/catalog"
	"github.com/hsarchitect/folio/storage/catalog/memory"
	"github.com/hsarchitect/folio/storage/objects"
	objectsfactory "github.com/hsarchitect/folio/storage/objects/factory"
	storageutil "github.com/hsarchitect/folio/storage/util"
	"github.com/hsarchitect/folio/upload"
)

const (
	shutdownTimeout  = 15 * time.Second
	cacheEntries     = 256
	cacheTTL         = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// StartServer wires every collaborator from cfg, serves until SIGINT or
// SIGTERM and then drains in-flight requests and pending rebuilds.
func StartServer(cfg *config.Config) error {
	logger := util.NewLogger(cfg.Log, cfg.Debug, os.Stdout)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	st, err := initializeState(cfg, logger, reg)
	if err != nil {
		return err
	}
	defer cleanup(st, logger)

	ka, err := startKeepAlive(st, cfg.KeepAlive.Schedule, logger)
	if err != nil {
		return err
	}
	if ka != nil {
		defer ka.Stop()
	}

	ln, err := net.Listen("tcp", cfg.Server.BindAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", cfg.Server.BindAddress(), err)
	}

	srv := &http.Server{
		Handler:           NewRouter(st, logger, reg),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", ln.Addr().String()).Msg("serving http requests")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

func initializeState(cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer) (*state.FolioState, error) {
	cat, err := initializeCatalog(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	objs, err := initializeObjectStore(&cfg.Media)
	if err != nil {
		_ = cat.Close()
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}

	sched, err := initializeRebuild(&cfg.Rebuild, logger, reg)
	if err != nil {
		_ = cat.Close()
		return nil, fmt.Errorf("failed to initialize rebuild trigger: %w", err)
	}

	processor := upload.NewProcessor(objs,
		media.Options{TargetWidth: cfg.Media.TargetWidth, Quality: cfg.Media.Quality},
		upload.WithMetrics(upload.NewMetrics(reg)))

	return &state.FolioState{
		Cfg:               cfg,
		ProjectKeyPattern: keyPattern(cfg.Media.ProjectKeyPattern, storageutil.DefaultProjectPattern()),
		StudioKeyPattern:  keyPattern(cfg.Media.StudioKeyPattern, storageutil.DefaultStudioPattern()),
		Catalog:           cat,
		Objects:           objs,
		Processor:         processor,
		Rebuild:           sched,
		Tokens:            auth.NewTokens(cfg.Auth),
		Cache:             middleware.NewResponseCache(cacheEntries, cacheTTL),
		Mailer:            mail.NewSMTPSender(cfg.Mail.Smtp),
		Inbox:             mail.NewIMAPInbox(cfg.Mail.Imap),
	}, nil
}

func keyPattern(pattern string, fallback *storageutil.KeyPattern) *storageutil.KeyPattern {
	if pattern == "" {
		return fallback
	}
	return storageutil.NewKeyPattern(pattern)
}

func initializeCatalog(cfg *config.Database, logger zerolog.Logger) (*catalog.Catalog, error) {
	if cfg.Driver == "memory" {
		logger.Warn().Msg("using the in-memory catalog; data is lost on restart")
		return memory.New().Catalog(), nil
	}

	if cfg.Migrate {
		if err := catalog.Migrate(*cfg, logger, "up"); err != nil {
			return nil, err
		}
	}

	db, err := catalog.Open(*cfg)
	if err != nil {
		return nil, err
	}

	return catalog.NewSQLCatalog(db), nil
}

func initializeObjectStore(cfg *config.Media) (objects.Store, error) {
	return objectsfactory.Create(cfg)
}

func initializeRebuild(cfg *config.Rebuild, logger zerolog.Logger, reg prometheus.Registerer) (*rebuild.Scheduler, error) {
	trigger, err := rebuild.NewTrigger(cfg)
	if err != nil {
		return nil, err
	}

	return rebuild.NewScheduler(trigger, cfg.Debounce,
		rebuild.WithLogger(logger.With().Str("component", "rebuild").Logger()),
		rebuild.WithReason(cfg.Reason),
		rebuild.WithRegisterer(reg)), nil
}

// cleanup flushes the rebuild scheduler and closes the catalog.
func cleanup(st *state.FolioState, logger zerolog.Logger) {
	if st == nil {
		return
	}

	if st.Rebuild != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := st.Rebuild.Close(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to flush pending rebuilds")
		}
		cancel()
	}

	if st.Catalog != nil {
		if err := st.Catalog.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close catalog")
		}
	}
}
