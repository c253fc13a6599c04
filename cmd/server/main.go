package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/org/examvault/internal/api"
	"github.com/org/examvault/internal/audit"
	"github.com/org/examvault/internal/auth"
	"github.com/org/examvault/internal/cache"
	"github.com/org/examvault/internal/gate"
	"github.com/org/examvault/internal/objectstore"
	"github.com/org/examvault/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfgFile := "config.yaml"
	if v := os.Getenv("EXAMVAULT_CONFIG"); v != "" {
		cfgFile = v
	}
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfgFile).Msg("failed to load config")
	}

	if cfg.LogFormat == "pretty" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config) error {
	// Audit sinks: append-only file, plus Postgres when configured.
	auditFile, err := audit.OpenFile(cfg.AuditLogFile)
	if err != nil {
		return err
	}
	defer auditFile.Close()

	var auditStore storage.AuditStore
	if cfg.DBUrl != "" {
		pg, err := storage.NewPostgresBackend(ctx, cfg.DBUrl)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := storage.RunMigrations(cfg.DBUrl, cfg.MigrationsDir); err != nil {
			return err
		}
		log.Info().Msg("migrations applied")
		auditStore = pg
	} else {
		log.Warn().Msg("db_url not set, audit log is file-only and not queryable")
	}
	auditor := audit.NewLogger(auditFile, auditStore)

	authn, err := auth.NewAuthenticator(cfg.AuthSecret, cfg.AuthIssuer)
	if err != nil {
		return err
	}

	bucket, err := objectstore.NewGCSBucket(ctx, objectstore.GCSConfig{
		Bucket:          cfg.Bucket,
		CredentialsFile: cfg.GCSCredentialsFile,
		SignerEmail:     cfg.SignerEmail,
	})
	if err != nil {
		return err
	}
	defer bucket.Close()

	opts := []objectstore.Option{
		objectstore.WithHost(cfg.BucketHost),
		objectstore.WithMaxUploadBytes(cfg.MaxUploadMB << 20),
	}
	if cfg.RedisAddr != "" {
		rdb, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, objectstore.WithURLCache(objectstore.NewRedisURLCache(rdb)))
		log.Info().Str("addr", cfg.RedisAddr).Msg("signed url cache enabled")
	}
	files := objectstore.New(bucket, auditor, opts...)

	srv := api.NewServer(api.Config{
		ListenAddr:   cfg.ListenAddr,
		TLSCertFile:  cfg.TLSCertFile,
		TLSKeyFile:   cfg.TLSKeyFile,
		RateLimitRPS: cfg.RateLimitRPS,
		Production:   cfg.Production,
		TrustProxy:   cfg.TrustProxy,
	}, authn, gate.New(auditor), files, auditor)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
