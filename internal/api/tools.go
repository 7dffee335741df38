package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/scribeworks/meeting-transcriber/internal/pipeline"
	"github.com/scribeworks/meeting-transcriber/internal/transcribe"
)

// ErrUnknownTool is returned when a call names a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Runner is the pipeline surface the transcribe_video tool calls.
type Runner interface {
	Run(ctx context.Context, videoPath string, opts pipeline.RunOptions) (*pipeline.Summary, error)
}

// ToolDefaults are server-side defaults applied when a call omits a field.
type ToolDefaults struct {
	MaxSpeakers int
	AudioName   string
	KeepAudio   bool
	KeepJSON    bool
}

// Param documents one tool parameter for the tool listing.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// ToolInfo describes one callable tool.
type ToolInfo struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
}

type toolHandler func(ctx context.Context, args json.RawMessage) (any, error)

type tool struct {
	info    ToolInfo
	handler toolHandler
}

// ToolRegistry dispatches tool calls to their handlers.
type ToolRegistry struct {
	tools  []tool
	byName map[string]toolHandler
	log    zerolog.Logger
}

// NewToolRegistry builds the registry over the three pipeline tools.
func NewToolRegistry(extractor pipeline.Extractor, transcriber pipeline.Transcriber, runner Runner, defaults ToolDefaults, log zerolog.Logger) *ToolRegistry {
	reg := &ToolRegistry{
		byName: make(map[string]toolHandler),
		log:    log.With().Str("component", "tools").Logger(),
	}

	reg.register(ToolInfo{
		Name:        "extract_audio",
		Description: "Extract audio from a video file using FFmpeg",
		Params: []Param{
			{Name: "video_path", Type: "string", Required: true, Description: "Path to the video file"},
			{Name: "audio_name", Type: "string", Description: "Output audio filename (default audio.mp3)"},
		},
	}, func(ctx context.Context, args json.RawMessage) (any, error) {
		var req struct {
			VideoPath string `json:"video_path"`
			AudioName string `json:"audio_name"`
		}
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		if req.VideoPath == "" {
			return nil, newParamError("video_path is required")
		}
		if _, err := os.Stat(req.VideoPath); err != nil {
			return nil, newParamError(fmt.Sprintf("video file not found: %s", req.VideoPath))
		}
		audioName := req.AudioName
		if audioName == "" {
			audioName = defaults.AudioName
		}

		audioPath, err := extractor.ExtractAudio(ctx, req.VideoPath, audioName)
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"audio_path": audioPath,
			"video_path": req.VideoPath,
			"status":     "success",
		}, nil
	})

	reg.register(ToolInfo{
		Name:        "transcribe_audio",
		Description: "Transcribe an audio file with speaker identification",
		Params: []Param{
			{Name: "audio_path", Type: "string", Required: true, Description: "Path to the audio file"},
			{Name: "job_name", Type: "string", Description: "Transcription job name (generated when omitted)"},
			{Name: "max_speakers", Type: "int", Description: "Maximum speakers to identify"},
		},
	}, func(ctx context.Context, args json.RawMessage) (any, error) {
		var req struct {
			AudioPath   string `json:"audio_path"`
			JobName     string `json:"job_name"`
			MaxSpeakers int    `json:"max_speakers"`
		}
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		if req.AudioPath == "" {
			return nil, newParamError("audio_path is required")
		}
		if _, err := os.Stat(req.AudioPath); err != nil {
			return nil, newParamError(fmt.Sprintf("audio file not found: %s", req.AudioPath))
		}
		jobName := req.JobName
		if jobName == "" {
			jobName = pipeline.JobName(req.AudioPath)
		}
		maxSpeakers := req.MaxSpeakers
		if maxSpeakers == 0 {
			maxSpeakers = defaults.MaxSpeakers
		}

		res, raw, err := transcriber.Transcribe(ctx, req.AudioPath, transcribe.Options{
			JobName:     jobName,
			MaxSpeakers: maxSpeakers,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"transcript_data":   json.RawMessage(raw),
			"speakers_count":    res.Speakers(),
			"transcript_length": len(res.Transcript),
			"job_name":          jobName,
			"status":            "success",
		}, nil
	})

	reg.register(ToolInfo{
		Name:        "transcribe_video",
		Description: "Complete pipeline: extract audio, transcribe, render markdown",
		Params: []Param{
			{Name: "video_path", Type: "string", Required: true, Description: "Path to the video file"},
			{Name: "job_name", Type: "string", Description: "Transcription job name (generated when omitted)"},
			{Name: "max_speakers", Type: "int", Description: "Maximum speakers to identify"},
			{Name: "audio_name", Type: "string", Description: "Extracted audio filename"},
			{Name: "keep_audio", Type: "bool", Description: "Keep the extracted audio file"},
			{Name: "keep_json", Type: "bool", Description: "Keep the raw transcript JSON"},
		},
	}, func(ctx context.Context, args json.RawMessage) (any, error) {
		var req struct {
			VideoPath   string `json:"video_path"`
			JobName     string `json:"job_name"`
			MaxSpeakers int    `json:"max_speakers"`
			AudioName   string `json:"audio_name"`
			KeepAudio   *bool  `json:"keep_audio"`
			KeepJSON    *bool  `json:"keep_json"`
		}
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		if req.VideoPath == "" {
			return nil, newParamError("video_path is required")
		}

		opts := pipeline.RunOptions{
			JobName:     req.JobName,
			MaxSpeakers: req.MaxSpeakers,
			AudioName:   req.AudioName,
			KeepAudio:   defaults.KeepAudio,
			KeepJSON:    defaults.KeepJSON,
		}
		if opts.MaxSpeakers == 0 {
			opts.MaxSpeakers = defaults.MaxSpeakers
		}
		if req.KeepAudio != nil {
			opts.KeepAudio = *req.KeepAudio
		}
		if req.KeepJSON != nil {
			opts.KeepJSON = *req.KeepJSON
		}

		summary, err := runner.Run(ctx, req.VideoPath, opts)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"markdown_path":     summary.MarkdownPath,
			"video_path":        summary.VideoPath,
			"speakers_count":    summary.Speakers,
			"transcript_length": summary.TranscriptLength,
			"job_name":          summary.JobName,
			"status":            "success",
		}, nil
	})

	return reg
}

func (r *ToolRegistry) register(info ToolInfo, h toolHandler) {
	r.tools = append(r.tools, tool{info: info, handler: h})
	r.byName[info.Name] = h
}

// List returns descriptors for all registered tools.
func (r *ToolRegistry) List() []ToolInfo {
	infos := make([]ToolInfo, len(r.tools))
	for i, t := range r.tools {
		infos[i] = t.info
	}
	return infos
}

// Call dispatches one tool invocation.
func (r *ToolRegistry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	h, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	r.log.Info().Str("tool", name).Msg("tool call")
	return h(ctx, args)
}

// paramError marks a client-side argument problem (HTTP 400).
type paramError struct{ msg string }

func (e *paramError) Error() string { return e.msg }

func newParamError(msg string) error { return &paramError{msg: msg} }

// IsParamError reports whether err is a tool argument error.
func IsParamError(err error) bool {
	var pe *paramError
	return errors.As(err, &pe)
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return newParamError("missing arguments")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return newParamError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}
