// Package transcribe runs managed speech-to-text jobs against AWS
// Transcribe: upload audio, start the job with speaker diarization, poll
// until a terminal status, fetch and parse the result.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/rs/zerolog"

	"github.com/scribeworks/meeting-transcriber/internal/transcript"
)

// API is the subset of the AWS Transcribe client the job flow needs.
type API interface {
	StartTranscriptionJob(ctx context.Context, params *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// ObjectStore is the object storage surface the job flow needs: audio in,
// result JSON out, cleanup of both.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	URI(key string) string
	Bucket() string
}

// Options configures a single transcription job.
type Options struct {
	JobName     string
	MaxSpeakers int
	Language    string             // default "en-US"
	Progress    func(stage string) // optional stage callback
}

// Client sequences transcription jobs through an object store and the
// Transcribe API.
type Client struct {
	api          API
	store        ObjectStore
	pollInterval time.Duration
	log          zerolog.Logger
}

// NewClient creates a job client. pollInterval governs how often the job
// status is checked while waiting for completion.
func NewClient(api API, store ObjectStore, pollInterval time.Duration, log zerolog.Logger) *Client {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &Client{
		api:          api,
		store:        store,
		pollInterval: pollInterval,
		log:          log.With().Str("component", "transcribe").Logger(),
	}
}

// NewAPI builds a real AWS Transcribe client. Static credentials are used
// when provided; otherwise the SDK's default chain applies.
func NewAPI(ctx context.Context, region, accessKey, secretKey string) (API, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" && secretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return transcribe.NewFromConfig(awsCfg), nil
}

// Transcribe uploads the audio file, runs a diarized transcription job,
// and returns the parsed result along with the raw result document.
// The uploaded audio and the result object are deleted from the store
// before returning. A job that ends in FAILED status yields a *JobError
// carrying the service's failure reason.
func (c *Client) Transcribe(ctx context.Context, audioPath string, opts Options) (*transcript.Result, []byte, error) {
	audioKey := fmt.Sprintf("audio/%s/%s", opts.JobName, filepath.Base(audioPath))
	outputKey := fmt.Sprintf("transcripts/%s.json", opts.JobName)

	language := opts.Language
	if language == "" {
		language = "en-US"
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read audio: %w", err)
	}

	c.progress(opts, "uploading audio")
	if err := c.store.Put(ctx, audioKey, data, "audio/mpeg"); err != nil {
		return nil, nil, fmt.Errorf("upload audio: %w", err)
	}

	c.progress(opts, "starting transcription job")
	_, err = c.api.StartTranscriptionJob(ctx, &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(opts.JobName),
		LanguageCode:         types.LanguageCode(language),
		Media: &types.Media{
			MediaFileUri: aws.String(c.store.URI(audioKey)),
		},
		Settings: &types.Settings{
			ShowSpeakerLabels: aws.Bool(true),
			MaxSpeakerLabels:  aws.Int32(int32(opts.MaxSpeakers)),
		},
		OutputBucketName: aws.String(c.store.Bucket()),
		OutputKey:        aws.String(outputKey),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start job %s: %w", opts.JobName, err)
	}

	c.progress(opts, "waiting for transcription")
	if err := c.waitForJob(ctx, opts.JobName); err != nil {
		return nil, nil, err
	}

	c.progress(opts, "downloading result")
	raw, err := c.store.Get(ctx, outputKey)
	if err != nil {
		return nil, nil, fmt.Errorf("download result: %w", err)
	}

	// Best-effort cleanup of transient job objects.
	for _, key := range []string{audioKey, outputKey} {
		if err := c.store.Delete(ctx, key); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cleanup failed")
		}
	}

	res, err := transcript.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("job %s: %w", opts.JobName, err)
	}

	c.log.Info().
		Str("job", opts.JobName).
		Int("items", len(res.Items)).
		Int("speakers", res.Speakers()).
		Msg("transcription complete")

	return res, raw, nil
}

// waitForJob polls until the job reaches COMPLETED or FAILED.
func (c *Client) waitForJob(ctx context.Context, jobName string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		out, err := c.api.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
			TranscriptionJobName: aws.String(jobName),
		})
		if err != nil {
			return fmt.Errorf("poll job %s: %w", jobName, err)
		}

		switch out.TranscriptionJob.TranscriptionJobStatus {
		case types.TranscriptionJobStatusCompleted:
			return nil
		case types.TranscriptionJobStatusFailed:
			reason := "unknown error"
			if out.TranscriptionJob.FailureReason != nil {
				reason = *out.TranscriptionJob.FailureReason
			}
			return &JobError{JobName: jobName, Reason: reason}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) progress(opts Options, stage string) {
	c.log.Debug().Str("job", opts.JobName).Str("stage", stage).Msg("job progress")
	if opts.Progress != nil {
		opts.Progress(stage)
	}
}
