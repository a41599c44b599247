package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"parkfinder/internal/config"
	"parkfinder/internal/handler"
	"parkfinder/internal/logger"
	"parkfinder/internal/repository"
	"parkfinder/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	zl.Info("parkfinder",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
	zl.Info("server stopped")
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load the facility catalog once; it is read-only afterwards
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	facilities, err := repository.LoadCatalog(loadCtx, cfg.Catalog)
	cancel()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	catalog := service.NewCatalogIndex(facilities)
	source := cfg.Catalog.Path
	if cfg.Catalog.DSN != "" {
		source = "postgres:" + cfg.Catalog.Table
	}
	zl.Info("catalog loaded", zap.Int("facilities", catalog.Len()), zap.String("source", source))

	// External services share one transport
	httpClient := &http.Client{Timeout: cfg.Timeouts.HTTPClient}
	availability := service.NewAvailabilityClient(cfg.Services.AvailabilityEndpoint, httpClient, cfg.Timeouts.HTTPClient, cfg.Services.UserAgent, zl.Named("availability"))
	geocoder := service.NewGeocoder(cfg.Services.GeocodingEndpoint, httpClient, cfg.Timeouts.HTTPClient, cfg.Services.UserAgent, cfg.Services.GeocoderRatePerSec, zl.Named("geocoder"))
	routes := service.NewRouteClient(cfg.Services.RoutingEndpoint, httpClient, cfg.Timeouts.HTTPClient, cfg.Services.UserAgent, zl.Named("route"))
	zl.Info("services initialized",
		zap.String("availability", cfg.Services.AvailabilityEndpoint),
		zap.String("geocoding", cfg.Services.GeocodingEndpoint),
		zap.String("routing", cfg.Services.RoutingEndpoint),
		zap.Float64("geocoder_rate_per_sec", cfg.Services.GeocoderRatePerSec),
	)

	store := service.NewSessionStore(func(device service.DeviceLocator) *service.Controller {
		return service.NewController(service.ControllerDeps{
			Catalog:      catalog,
			Availability: availability,
			Origins:      service.NewLocationResolver(device, geocoder),
			Routes:       routes,
			CallTimeout:  cfg.Timeouts.ExternalCall,
			Log:          zl.Named("controller"),
		})
	}, cfg.Sessions.IdleTTL, zl.Named("sessions"))

	router := newRouter(cfg, zl, handler.NewSessionHandler(store, zl.Named("handler")))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return store.Run(gctx, cfg.Sessions.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(cfg *config.Config, zl *zap.Logger, sessions *handler.SessionHandler) *gin.Engine {
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestLogger(zl.Named("http")))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.AllowedOrigins, ",")
	if cfg.Server.AllowedOrigins == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "healthy",
			"service":    "parkfinder",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	sessions.RegisterRoutes(router.Group("/api/v1"))

	// Serve static files (map front end)
	// This function is implemented in embed.go (production) or static_dev.go (development)
	setupStaticFiles(router, zl)
	return router
}
