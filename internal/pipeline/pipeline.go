// Package pipeline sequences the three transcription stages: extract audio
// from a video, transcribe it with speaker diarization, render the result
// into a speaker-attributed markdown document.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scribeworks/meeting-transcriber/internal/metrics"
	"github.com/scribeworks/meeting-transcriber/internal/storage"
	"github.com/scribeworks/meeting-transcriber/internal/transcribe"
	"github.com/scribeworks/meeting-transcriber/internal/transcript"
)

// Extractor converts a video file into an audio file written next to it.
type Extractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioName string) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, videoPath, audioName string) (string, error)

func (f ExtractorFunc) ExtractAudio(ctx context.Context, videoPath, audioName string) (string, error) {
	return f(ctx, videoPath, audioName)
}

// Transcriber runs one managed transcription job for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts transcribe.Options) (*transcript.Result, []byte, error)
}

// RunOptions configures one pipeline run.
type RunOptions struct {
	JobName     string // generated from the video name when empty
	MaxSpeakers int
	AudioName   string // output audio basename, "audio.mp3" when empty
	KeepAudio   bool   // keep the extracted audio after transcription
	KeepJSON    bool   // keep the raw result JSON next to the markdown
}

// Summary describes a completed pipeline run.
type Summary struct {
	VideoPath        string        `json:"video_path"`
	MarkdownPath     string        `json:"markdown_path"`
	JSONPath         string        `json:"json_path,omitempty"`
	JobName          string        `json:"job_name"`
	Speakers         int           `json:"speakers_count"`
	TranscriptLength int           `json:"transcript_length"`
	Duration         time.Duration `json:"-"`
}

// Pipeline wires the extractor and transcriber together and reports
// progress on its bus.
type Pipeline struct {
	extractor   Extractor
	transcriber Transcriber
	bus         *ProgressBus
	log         zerolog.Logger
}

// New creates a pipeline.
func New(extractor Extractor, transcriber Transcriber, bus *ProgressBus, log zerolog.Logger) *Pipeline {
	if bus == nil {
		bus = NewProgressBus()
	}
	return &Pipeline{
		extractor:   extractor,
		transcriber: transcriber,
		bus:         bus,
		log:         log.With().Str("component", "pipeline").Logger(),
	}
}

// Bus returns the pipeline's progress bus.
func (p *Pipeline) Bus() *ProgressBus { return p.bus }

// Run executes extract → transcribe → render → write for one video.
// The markdown document lands next to the video as transcript.md.
func (p *Pipeline) Run(ctx context.Context, videoPath string, opts RunOptions) (*Summary, error) {
	start := time.Now()

	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("video file: %w", err)
	}

	jobName := opts.JobName
	if jobName == "" {
		jobName = JobName(videoPath)
	}
	audioName := opts.AudioName
	if audioName == "" {
		audioName = "audio.mp3"
	}

	log := p.log.With().Str("job", jobName).Str("video", filepath.Base(videoPath)).Logger()

	summary, err := p.run(ctx, log, videoPath, jobName, audioName, opts)
	if err != nil {
		metrics.JobsFailedTotal.Inc()
		p.publish(jobName, "failed", 100, err.Error())
		return nil, err
	}

	summary.Duration = time.Since(start)
	metrics.JobsCompletedTotal.Inc()
	p.publish(jobName, "done", 100, "")
	log.Info().
		Dur("duration", summary.Duration).
		Int("speakers", summary.Speakers).
		Str("markdown", summary.MarkdownPath).
		Msg("pipeline complete")

	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, log zerolog.Logger, videoPath, jobName, audioName string, opts RunOptions) (*Summary, error) {
	// 1. Extract audio
	p.publish(jobName, "extract", 5, "extracting audio from video")
	stageStart := time.Now()
	audioPath, err := p.extractor.ExtractAudio(ctx, videoPath, audioName)
	if err != nil {
		return nil, fmt.Errorf("extract audio: %w", err)
	}
	metrics.ObserveStage("extract", time.Since(stageStart))
	log.Debug().Str("audio", audioPath).Msg("audio extracted")

	// 2. Transcribe
	p.publish(jobName, "transcribe", 20, "transcribing audio")
	stageStart = time.Now()
	res, raw, err := p.transcriber.Transcribe(ctx, audioPath, transcribe.Options{
		JobName:     jobName,
		MaxSpeakers: opts.MaxSpeakers,
		Progress: func(stage string) {
			p.publish(jobName, "transcribe", 40, stage)
		},
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("transcribe", time.Since(stageStart))

	// 3. Render and write artifacts
	p.publish(jobName, "render", 90, "rendering transcript")
	stageStart = time.Now()
	doc := transcript.Render(res)
	markdownPath := filepath.Join(filepath.Dir(videoPath), "transcript.md")
	if err := storage.WriteFile(markdownPath, []byte(doc)); err != nil {
		return nil, fmt.Errorf("write markdown: %w", err)
	}
	metrics.ObserveStage("render", time.Since(stageStart))

	summary := &Summary{
		VideoPath:        videoPath,
		MarkdownPath:     markdownPath,
		JobName:          jobName,
		Speakers:         res.Speakers(),
		TranscriptLength: len(res.Transcript),
	}

	if opts.KeepJSON {
		jsonPath := filepath.Join(filepath.Dir(videoPath), "transcript.json")
		if err := storage.WriteFile(jsonPath, raw); err != nil {
			return nil, fmt.Errorf("write json: %w", err)
		}
		summary.JSONPath = jsonPath
	}

	if !opts.KeepAudio {
		if err := os.Remove(audioPath); err != nil {
			log.Warn().Err(err).Str("audio", audioPath).Msg("audio cleanup failed")
		}
	}

	return summary, nil
}

func (p *Pipeline) publish(jobName, stage string, percent int, message string) {
	p.bus.Publish(ProgressEvent{
		JobName: jobName,
		Stage:   stage,
		Percent: percent,
		Message: message,
	})
}

// JobName derives a transcription job name from the video path:
// transcribe-<stem>-<unix>, restricted to the service's allowed charset.
func JobName(videoPath string) string {
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return fmt.Sprintf("transcribe-%s-%d", sanitizeJobName(stem), time.Now().Unix())
}

// sanitizeJobName maps characters outside [0-9a-zA-Z._-] to '-'.
func sanitizeJobName(s string) string {
	out := []byte(s)
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '.' || c == '_' || c == '-':
		default:
			out[i] = '-'
		}
	}
	return string(out)
}
