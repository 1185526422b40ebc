// Package server builds the application's dependencies from config and runs
// the HTTP server until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/linkboard/internal/api"
	"github.com/JakeFAU/linkboard/internal/clock/system"
	"github.com/JakeFAU/linkboard/internal/config"
	"github.com/JakeFAU/linkboard/internal/id/uuid"
	"github.com/JakeFAU/linkboard/internal/links"
	"github.com/JakeFAU/linkboard/internal/notion"
	"github.com/JakeFAU/linkboard/internal/policy/ratelimit"
	gcppublisher "github.com/JakeFAU/linkboard/internal/publisher/pubsub"
	"github.com/JakeFAU/linkboard/internal/state"
	drivestorage "github.com/JakeFAU/linkboard/internal/storage/drive"
	gcsstorage "github.com/JakeFAU/linkboard/internal/storage/gcs"
	localstorage "github.com/JakeFAU/linkboard/internal/storage/local"
	memorystorage "github.com/JakeFAU/linkboard/internal/storage/memory"
	pgstore "github.com/JakeFAU/linkboard/internal/storage/postgres"
	"github.com/JakeFAU/linkboard/internal/upload"
)

const (
	userAgent       = "linkboard/1.0"
	shutdownTimeout = 10 * time.Second
)

// App contains the application's dependencies.
type App struct {
	cfg             *config.Config
	logger          *zap.Logger
	apiServer       *api.Server
	store           *state.Store
	pubsubClient    *pubsub.Client
	pubsubPublisher *gcppublisher.Publisher
	storage         *storage.Client
	history         *pgstore.HistoryStore
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{cfg: cfg, logger: logger}
	app.logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("upload_backend", cfg.Upload.Backend),
		zap.Bool("history", cfg.History.Enabled()),
		zap.Bool("pubsub", cfg.PubSub.Enabled()),
	)

	fetcher, err := NewFetcher(cfg.Notion, logger.Named("notion"))
	if err != nil {
		return nil, err
	}

	stateCfg := state.Config{
		Clock: system.New(),
		IDs:   uuid.New(),
	}
	var history links.HistoryStore
	if err := app.setupHistory(ctx); err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	if app.history != nil {
		history = app.history
		stateCfg.History = app.history
	}
	if err := app.setupPublisher(ctx); err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	if app.pubsubPublisher != nil {
		stateCfg.Publisher = app.pubsubPublisher
	}
	app.store = state.New(fetcher, stateCfg, logger.Named("state"))
	app.restoreSnapshot(ctx)

	opts := api.Options{
		History:        history,
		RequestTimeout: cfg.Server.RequestTimeout(),
	}
	if cfg.Upload.Enabled() {
		uploader, err := app.setupUploader(ctx)
		if err != nil {
			app.closeInfrastructure()
			return nil, err
		}
		opts.Uploader = uploader
	} else {
		app.logger.Info("uploads disabled")
	}

	app.apiServer = api.NewServer(app.store, opts, logger.Named("api"))
	return app, nil
}

// NewFetcher builds the Notion page fetcher from config.
func NewFetcher(cfg config.NotionConfig, logger *zap.Logger) (*notion.Client, error) {
	client, err := notion.NewClient(notion.Options{
		BaseURL:        cfg.BaseURL,
		Token:          cfg.Token,
		DatabaseID:     cfg.DatabaseID,
		APIVersion:     cfg.APIVersion,
		FilterProperty: cfg.FilterProperty,
		PageSize:       cfg.PageSize,
		UserAgent:      userAgent,
		HTTPClient:     &http.Client{Timeout: cfg.Timeout()},
		Limiter: ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.RequestsPerSecond,
			DefaultBurst: cfg.Burst,
		}),
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("notion client init failed: %w", err)
	}
	return client, nil
}

// Handler exposes the API router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Store exposes the shared directory state.
func (a *App) Store() *state.Store {
	return a.store
}

// Run starts the application and blocks until the context is canceled or
// SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.cfg.Server.Address())
	if err != nil {
		_ = a.Close(context.Background())
		return fmt.Errorf("listen on %s: %w", a.cfg.Server.Address(), err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if a.cfg.Refresh.OnStart {
		g.Go(func() error {
			if _, err := a.store.Refresh(gctx); err != nil {
				a.logger.Warn("startup refresh failed", zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	runErr := g.Wait()
	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, a.Close(closeCtx))
}

// Close gracefully shuts down the application.
func (a *App) Close(_ context.Context) error {
	a.closeInfrastructure()
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure() {
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
		a.pubsubPublisher = nil
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
		a.pubsubClient = nil
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
		a.storage = nil
	}
	if a.history != nil {
		a.history.Close()
		a.history = nil
	}
}

func (a *App) setupHistory(ctx context.Context) error {
	if !a.cfg.History.Enabled() {
		a.logger.Warn("no history DSN specified, refresh history disabled")
		return nil
	}
	history, err := pgstore.NewHistoryStore(ctx, pgstore.HistoryStoreConfig{
		DSN:             a.cfg.History.DSN,
		Table:           a.cfg.History.Table,
		MaxConns:        a.cfg.History.MaxConns,
		MaxConnLifetime: a.cfg.History.MaxConnLifetime(),
	})
	if err != nil {
		return fmt.Errorf("history store init failed: %w", err)
	}
	a.history = history
	if err := history.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("history schema init failed: %w", err)
	}
	a.logger.Info("history store initialized", zap.String("table", a.cfg.History.Table))
	return nil
}

// restoreSnapshot seeds the index from the last recorded refresh so GET /
// and selection work before the first refresh after a restart.
func (a *App) restoreSnapshot(ctx context.Context) {
	if a.history == nil {
		return
	}
	snap, ok, err := a.history.LatestSnapshot(ctx)
	if err != nil {
		a.logger.Warn("load latest snapshot failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	a.store.Seed(snap.Index)
	a.logger.Info("index restored from history",
		zap.String("snapshot", snap.ID),
		zap.Time("refreshed_at", snap.RefreshedAt),
		zap.Int("entries", snap.EntryCount),
	)
}

func (a *App) setupPublisher(ctx context.Context) error {
	if !a.cfg.PubSub.Enabled() {
		a.logger.Info("no Pub/Sub topic configured, selection events disabled")
		return nil
	}
	var err error
	a.pubsubClient, err = pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubPublisher = gcppublisher.New(a.pubsubClient.Topic(a.cfg.PubSub.Topic))
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.Topic),
	)
	return nil
}

func (a *App) setupUploader(ctx context.Context) (*upload.Forwarder, error) {
	fileStore, err := a.setupFileStore(ctx)
	if err != nil {
		return nil, err
	}
	fwd, err := upload.New(fileStore, a.logger.Named("upload"),
		upload.WithClock(system.New()),
		upload.WithMaxBytes(a.cfg.Upload.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("upload forwarder init failed: %w", err)
	}
	return fwd, nil
}

func (a *App) setupFileStore(ctx context.Context) (links.FileStore, error) {
	upCfg := a.cfg.Upload
	switch upCfg.Backend {
	case config.BackendDrive:
		svc, err := drivestorage.NewService(ctx, drivestorage.Config{
			CredentialsFile: upCfg.Drive.CredentialsFile,
			CredentialsJSON: upCfg.Drive.CredentialsJSON,
		})
		if err != nil {
			return nil, fmt.Errorf("drive client init failed: %w", err)
		}
		store, err := drivestorage.New(svc, drivestorage.Config{FolderID: upCfg.Drive.FolderID})
		if err != nil {
			return nil, fmt.Errorf("drive file store init failed: %w", err)
		}
		a.logger.Info("using Google Drive upload backend", zap.String("folder", upCfg.Drive.FolderID))
		return store, nil
	case config.BackendGCS:
		var err error
		a.storage, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		store, err := gcsstorage.New(a.storage, gcsstorage.Config{
			Bucket: upCfg.GCS.Bucket,
			Prefix: upCfg.GCS.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs file store init failed: %w", err)
		}
		a.logger.Info("using GCS upload backend", zap.String("bucket", upCfg.GCS.Bucket))
		return store, nil
	case config.BackendLocal:
		store, err := localstorage.New(localstorage.Config{BaseDir: upCfg.Local.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local file store init failed: %w", err)
		}
		a.logger.Info("using local upload backend", zap.String("path", upCfg.Local.BaseDir))
		return store, nil
	default:
		a.logger.Info("using in-memory upload backend")
		return memorystorage.NewFileStore(), nil
	}
}
