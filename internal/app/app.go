package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hybridgroup/mjpeg"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"trackserver/internal/config"
	"trackserver/internal/logger"
	"trackserver/internal/repository"
	"trackserver/internal/repository/sqlite"
	"trackserver/internal/route"
	"trackserver/internal/service"
	"trackserver/internal/service/ai"
	"trackserver/internal/service/annotate"
	"trackserver/internal/service/pipeline"
	"trackserver/internal/service/source"
	"trackserver/internal/service/storage"
	"trackserver/internal/service/websocket"
)

const (
	statusInterval  = time.Second
	shutdownTimeout = 5 * time.Second
)

type App struct {
	config  *config.Config
	logger  *logger.Logger
	hub     *websocket.HubService
	stream  *mjpeg.Stream
	manager *service.Manager
	db      *sqlite.DB
	catalog *sqlite.SightingRepository
}

// NewApp wires the pipeline, catalog and HTTP services. A model that cannot be
// loaded is fatal.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	clk := clock.New()

	detector, err := ai.NewDetectorService(cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		config: cfg,
		logger: log,
		hub:    websocket.NewHubService(log),
		stream: mjpeg.NewStream(),
	}

	sinks := storage.MultiSink{a.hub}
	if cfg.EnableCatalog {
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to open catalog: %w", err), detector.Close())
		}
		a.db = db
		a.catalog = sqlite.NewSightingRepository(db)
		sinks = append(sinks, a.catalog)
	}

	storeOptions := storage.OptionsFromConfig(cfg)
	storeOptions.Sink = sinks
	storeOptions.Clock = clk

	driverOptions := pipeline.OptionsFromConfig(cfg)
	driverOptions.Clock = clk

	a.manager = service.NewManager(service.Deps{
		Opener: source.NewOpener(source.Options{
			Width:  cfg.FrameWidth,
			Height: cfg.FrameHeight,
			FPS:    cfg.FPS,
		}, clk),
		Detector:      detector,
		Store:         storage.NewStore(storeOptions, log.With(map[string]interface{}{"component": "store"})),
		Renderer:      annotate.New(true, true),
		Hub:           a.hub,
		Stream:        a.stream,
		Options:       driverOptions,
		DefaultSource: cfg.StreamSource,
	}, log)

	return a, nil
}

// Run serves HTTP until ctx is cancelled or a service fails, then stops the stream.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	router := route.SetupRoutes(route.Deps{
		Manager: a.manager,
		Hub:     a.hub,
		Stream:  a.stream,
		Catalog: a.catalogRepository(),
		Logs:    a.logger,
	}, a.config, a.logger)

	server := &http.Server{
		Addr:    a.config.Addr(),
		Handler: router,
	}

	g.Go(func() error {
		return a.hub.Run(ctx)
	})
	g.Go(func() error {
		return a.hub.PublishStatus(ctx, statusInterval, a.manager.Status)
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	a.stream.UpdateJPEG(a.manager.LatestJPEG())

	a.logger.Info("Track server listening on http://%s", a.config.Addr())
	a.logger.Info("Model: %s, storage: %s, catalog: %t", a.config.ModelPath, a.config.StoragePath, a.catalog != nil)

	if a.config.AutoStart {
		if _, err := a.manager.Start(a.config.StreamSource); err != nil {
			a.logger.Error("Failed to start stream %s: %v", a.config.StreamSource, err)
		}
	}

	err := g.Wait()
	a.manager.Stop()
	return err
}

// Close releases the detector and the catalog.
func (a *App) Close() error {
	err := a.manager.Close()
	if a.db != nil {
		err = multierr.Append(err, a.db.Close())
	}
	return err
}

// catalogRepository keeps a disabled catalog a nil interface.
func (a *App) catalogRepository() repository.SightingRepository {
	if a.catalog == nil {
		return nil
	}
	return a.catalog
}
