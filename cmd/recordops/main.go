package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recordops"
	"github.com/kailas-cloud/recordops/internal/config"
	domcol "github.com/kailas-cloud/recordops/internal/domain/collection"
	logpkg "github.com/kailas-cloud/recordops/internal/logger"
	"github.com/kailas-cloud/recordops/internal/metrics"
	chiTransport "github.com/kailas-cloud/recordops/internal/transport/chi"
	collectionuc "github.com/kailas-cloud/recordops/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/recordops/internal/usecase/health"
	recordsuc "github.com/kailas-cloud/recordops/internal/usecase/records"
	"github.com/kailas-cloud/recordops/internal/version"
)

func main() {
	env := pflag.String("env", config.GetEnv(), "environment name, selects config/<env>.yaml")
	configPath := pflag.String("config", "", "explicit config file path")
	logLevel := pflag.String("log-level", "", "override logging.level: debug, info, warn, error")
	ensureIndexes := pflag.Bool("ensure-indexes", false, "create missing collection indexes on startup")
	showVersion := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load(*env)
	}
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logger, err := logpkg.New(*env, level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *ensureIndexes, logger); err != nil {
		logger.Fatal("recordops stopped", zap.Error(err))
	}
}

func run(cfg config.Config, ensureIndexes bool, logger *zap.Logger) error {
	logger.Info("Starting recordops API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("driver", cfg.Backend.Driver),
		zap.Strings("addrs", cfg.Backend.Addrs),
	)

	cols, err := cfg.BuildCollections()
	if err != nil {
		return fmt.Errorf("collections: %w", err)
	}

	ctx := context.Background()
	client, err := recordops.NewClient(ctx, clientOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("connect backend: %w", err)
	}
	defer client.Close()
	logger.Info("Connected to backend")

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	collSvc, err := collectionuc.New(&indexRepo{client: client}, cols)
	if err != nil {
		return err //nolint:wrapcheck // already describes the collection
	}
	if ensureIndexes {
		created, err := collSvc.EnsureAll(ctx)
		if err != nil {
			return err //nolint:wrapcheck // already describes the collection
		}
		logger.Info("Indexes ensured", zap.Strings("created", created))
	}

	recSvc, err := recordsuc.New(client.Backend(), cols, builderOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("records service: %w", err)
	}
	healthSvc := healthuc.New(client, collSvc)

	server := chiTransport.NewServer(collSvc, recSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys, cfg.Auth.ReadOnlyKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func clientOptions(cfg config.Config) []recordops.ClientOption {
	b := cfg.Backend
	var opts []recordops.ClientOption
	switch b.Driver {
	case config.DriverRedis:
		opts = append(opts, recordops.WithRedis(b.Addrs...), recordops.WithRedisDB(b.DB))
	default:
		opts = append(opts, recordops.WithOpenSearch(b.Addrs...))
	}
	if b.Username != "" || b.Password != "" {
		opts = append(opts, recordops.WithBasicAuth(b.Username, b.Password))
	}
	if b.AWS.Enabled {
		opts = append(opts, recordops.WithAWSSigV4(b.AWS.Region, b.AWS.Service))
	}
	if b.Refresh != "" {
		opts = append(opts, recordops.WithRefresh(b.Refresh))
	}
	if b.TLS {
		opts = append(opts, recordops.WithTLS())
	}
	if b.InsecureTLS {
		opts = append(opts, recordops.WithInsecureTLS())
	}
	return append(opts,
		recordops.WithInstance(b.Instance),
		recordops.WithReadinessTimeout(time.Duration(b.ReadinessTimeout)*time.Second),
	)
}

func builderOptions(cfg config.Config, logger *zap.Logger) []recordops.Option {
	opts := []recordops.Option{
		recordops.WithMaxLimit(cfg.Pagination.MaxLimit),
		recordops.WithDefaultLimit(cfg.Pagination.DefaultLimit),
		recordops.WithLogger(logger),
		recordops.WithPrometheus(prometheus.DefaultRegisterer),
	}
	if cfg.Save.Parallel {
		opts = append(opts, recordops.WithParallelSave())
	}
	if cfg.Save.GenerateIDs {
		opts = append(opts, recordops.WithUUIDs())
	}
	return opts
}

// indexRepo manages collection indexes through the client.
type indexRepo struct {
	client *recordops.Client
}

func (r *indexRepo) Ensure(ctx context.Context, col domcol.Collection) (bool, error) {
	fields := make([]recordops.Field, 0, len(col.Fields()))
	for _, f := range col.Fields() {
		fields = append(fields, recordops.Field{Name: f.Name(), Type: f.FieldType()})
	}
	return r.client.Ensure(ctx, recordops.IndexSpec{ //nolint:wrapcheck // client errors carry the index
		Index:   col.Index(),
		IDField: col.IDField(),
		Nesting: col.Nesting(),
		Fields:  fields,
	})
}

func (r *indexRepo) Exists(ctx context.Context, col domcol.Collection) (bool, error) {
	return r.client.Exists(ctx, col.Index()) //nolint:wrapcheck // client errors carry the index
}
