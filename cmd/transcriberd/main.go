package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/scribeworks/meeting-transcriber/internal/api"
	"github.com/scribeworks/meeting-transcriber/internal/config"
	"github.com/scribeworks/meeting-transcriber/internal/media"
	"github.com/scribeworks/meeting-transcriber/internal/pipeline"
	"github.com/scribeworks/meeting-transcriber/internal/storage"
	"github.com/scribeworks/meeting-transcriber/internal/transcribe"
	"github.com/scribeworks/meeting-transcriber/internal/watch"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var (
		addr        = flag.String("addr", "", "HTTP listen address (or HTTP_ADDR)")
		watchDir    = flag.String("watch-dir", "", "directory to watch for new recordings (or WATCH_DIR)")
		envFile     = flag.String("env-file", "", "path to .env file")
		logLevel    = flag.String("log-level", "", "log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	// Config
	cfg, err := config.Load(config.Overrides{
		EnvFile:  *envFile,
		HTTPAddr: *addr,
		LogLevel: *logLevel,
		WatchDir: *watchDir,
	})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("transcriberd starting")

	if cfg.Bucket == "" {
		log.Fatal().Msg("no S3 bucket configured (set S3_BUCKET)")
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Object store
	storeLog := log.With().Str("component", "storage").Logger()
	store, err := storage.NewS3Store(ctx, storage.S3Options{
		Region:    cfg.AWSRegion,
		AccessKey: cfg.AWSAccessKey,
		SecretKey: cfg.AWSSecretKey,
		Endpoint:  cfg.AWSEndpoint,
		Bucket:    cfg.Bucket,
	}, storeLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create object store")
	}
	if err := store.HeadBucket(ctx); err != nil {
		log.Fatal().Err(err).Str("bucket", cfg.Bucket).Msg("bucket not reachable")
	}

	// Transcribe client
	awsAPI, err := transcribe.NewAPI(ctx, cfg.AWSRegion, cfg.AWSAccessKey, cfg.AWSSecretKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create transcribe client")
	}
	client := transcribe.NewClient(awsAPI, store, cfg.PollInterval, log)

	// Pipeline
	p := pipeline.New(pipeline.ExtractorFunc(media.ExtractAudio), client, nil, log)

	defaults := api.ToolDefaults{
		MaxSpeakers: cfg.MaxSpeakers,
		AudioName:   cfg.AudioName,
		KeepAudio:   !cfg.CleanupAudio,
		KeepJSON:    !cfg.CleanupJSON,
	}
	registry := api.NewToolRegistry(pipeline.ExtractorFunc(media.ExtractAudio), client, p, defaults, log)

	checks := map[string]api.HealthCheck{
		"ffmpeg": func() string {
			if !media.CheckFFmpeg() {
				return "ffmpeg not found in PATH"
			}
			return ""
		},
		"s3": func() string {
			checkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.HeadBucket(checkCtx); err != nil {
				return err.Error()
			}
			return ""
		},
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, registry, p.Bus(), version, startTime, checks, httpLog)

	// Watch mode: worker pool + filesystem watcher
	var pool *pipeline.WorkerPool
	var watcher *watch.Watcher
	if cfg.WatchDir != "" {
		runOpts := pipeline.RunOptions{
			MaxSpeakers: cfg.MaxSpeakers,
			AudioName:   cfg.AudioName,
			KeepAudio:   !cfg.CleanupAudio,
			KeepJSON:    !cfg.CleanupJSON,
		}
		pool = pipeline.NewWorkerPool(p, cfg.Workers, cfg.QueueSize, runOpts, log)
		pool.Start()

		watcher = watch.New(pool, cfg.WatchDir, log)
		if err := watcher.Start(); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.WatchDir).Msg("failed to start watcher")
		}
	}

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	if watcher != nil {
		watcher.Stop()
	}
	if pool != nil {
		pool.Stop()
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("transcriberd stopped")
}
