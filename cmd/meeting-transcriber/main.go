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

	"github.com/scribeworks/meeting-transcriber/internal/config"
	"github.com/scribeworks/meeting-transcriber/internal/media"
	"github.com/scribeworks/meeting-transcriber/internal/pipeline"
	"github.com/scribeworks/meeting-transcriber/internal/storage"
	"github.com/scribeworks/meeting-transcriber/internal/transcribe"
)

var version = "dev"

// cliRunOptions maps CLI flags onto pipeline options. Unlike the daemon,
// the one-shot CLI keeps the extracted audio and raw JSON unless cleanup
// is asked for explicitly.
func cliRunOptions(cfg *config.Config, jobName, audioName string, maxSpeakers int, cleanupAudio, cleanupJSON bool) pipeline.RunOptions {
	opts := pipeline.RunOptions{
		JobName:     jobName,
		MaxSpeakers: cfg.MaxSpeakers,
		AudioName:   audioName,
		KeepAudio:   !cleanupAudio,
		KeepJSON:    !cleanupJSON,
	}
	if maxSpeakers > 0 {
		opts.MaxSpeakers = maxSpeakers
	}
	return opts
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <video-file>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Transcribe a meeting recording to markdown with speaker identification.\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

func main() {
	var (
		bucket       = flag.String("bucket", "", "S3 bucket for transcription job artifacts (or S3_BUCKET)")
		region       = flag.String("region", "", "AWS region (or AWS_REGION)")
		jobName      = flag.String("job-name", "", "transcription job name (generated when empty)")
		maxSpeakers  = flag.Int("max-speakers", 0, "maximum speakers to identify")
		audioName    = flag.String("audio-name", "", "extracted audio filename")
		cleanupAudio = flag.Bool("cleanup-audio", false, "remove the extracted audio after transcription (default: keep)")
		cleanupJSON  = flag.Bool("cleanup-json", false, "remove the raw transcript JSON after rendering (default: keep)")
		envFile      = flag.String("env-file", "", "path to .env file")
		logLevel     = flag.String("log-level", "", "log level (debug, info, warn, error)")
		showVersion  = flag.Bool("version", false, "print version and exit")
	)
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	videoPath := flag.Arg(0)

	cfg, err := config.Load(config.Overrides{
		EnvFile:   *envFile,
		LogLevel:  *logLevel,
		AWSRegion: *region,
		Bucket:    *bucket,
	})
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)

	if cfg.Bucket == "" {
		log.Fatal().Msg("no S3 bucket configured (set S3_BUCKET or pass -bucket)")
	}
	if !media.CheckFFmpeg() {
		log.Fatal().Msg("ffmpeg not found in PATH")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewS3Store(ctx, storage.S3Options{
		Region:    cfg.AWSRegion,
		AccessKey: cfg.AWSAccessKey,
		SecretKey: cfg.AWSSecretKey,
		Endpoint:  cfg.AWSEndpoint,
		Bucket:    cfg.Bucket,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create object store")
	}

	awsAPI, err := transcribe.NewAPI(ctx, cfg.AWSRegion, cfg.AWSAccessKey, cfg.AWSSecretKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create transcribe client")
	}
	client := transcribe.NewClient(awsAPI, store, cfg.PollInterval, log)

	p := pipeline.New(pipeline.ExtractorFunc(media.ExtractAudio), client, nil, log)

	opts := cliRunOptions(cfg, *jobName, *audioName, *maxSpeakers, *cleanupAudio, *cleanupJSON)

	summary, err := p.Run(ctx, videoPath, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("transcription failed")
	}

	fmt.Printf("Transcript written to %s\n", summary.MarkdownPath)
	if summary.JSONPath != "" {
		fmt.Printf("Raw result written to %s\n", summary.JSONPath)
	}
	fmt.Printf("Speakers: %d, transcript length: %d chars, took %s\n",
		summary.Speakers, summary.TranscriptLength, summary.Duration.Round(time.Second))
}
