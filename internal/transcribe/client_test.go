package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/rs/zerolog"
)

const resultDoc = `{
  "jobName": "job-1",
  "status": "COMPLETED",
  "results": {
    "transcripts": [{"transcript": "Hello world."}],
    "items": [
      {"type": "pronunciation", "start_time": "0.0", "end_time": "0.9", "alternatives": [{"content": "Hello"}]},
      {"type": "pronunciation", "start_time": "1.0", "end_time": "1.8", "alternatives": [{"content": "world"}]},
      {"type": "punctuation", "alternatives": [{"content": "."}]}
    ],
    "speaker_labels": {
      "speakers": 1,
      "segments": [{"start_time": "0.0", "end_time": "2.0", "speaker_label": "spk_0"}]
    }
  }
}`

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: not found", key)
	}
	return data, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) URI(key string) string { return "s3://meetings/" + key }
func (f *fakeStore) Bucket() string        { return "meetings" }

// fakeAPI returns the configured status sequence from GetTranscriptionJob,
// repeating the last entry.
type fakeAPI struct {
	mu       sync.Mutex
	started  []*awstranscribe.StartTranscriptionJobInput
	statuses []types.TranscriptionJobStatus
	polls    int
	reason   string
}

func (f *fakeAPI) StartTranscriptionJob(ctx context.Context, params *awstranscribe.StartTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.StartTranscriptionJobOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, params)
	return &awstranscribe.StartTranscriptionJobOutput{}, nil
}

func (f *fakeAPI) GetTranscriptionJob(ctx context.Context, params *awstranscribe.GetTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.GetTranscriptionJobOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.polls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.polls++
	job := &types.TranscriptionJob{TranscriptionJobStatus: f.statuses[idx]}
	if f.reason != "" {
		job.FailureReason = aws.String(f.reason)
	}
	return &awstranscribe.GetTranscriptionJobOutput{TranscriptionJob: job}, nil
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte("mp3-bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribe_HappyPath(t *testing.T) {
	store := newFakeStore()
	store.objects["transcripts/job-1.json"] = []byte(resultDoc)
	api := &fakeAPI{statuses: []types.TranscriptionJobStatus{
		types.TranscriptionJobStatusInProgress,
		types.TranscriptionJobStatusCompleted,
	}}
	client := NewClient(api, store, time.Millisecond, zerolog.Nop())

	var stages []string
	res, raw, err := client.Transcribe(context.Background(), writeAudio(t), Options{
		JobName:     "job-1",
		MaxSpeakers: 4,
		Progress:    func(stage string) { stages = append(stages, stage) },
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if res.Transcript != "Hello world." {
		t.Errorf("Transcript = %q", res.Transcript)
	}
	if len(raw) == 0 {
		t.Error("expected raw document bytes")
	}
	if api.polls < 2 {
		t.Errorf("polls = %d, want >= 2", api.polls)
	}

	// Job request carries diarization settings and the uploaded audio URI.
	if len(api.started) != 1 {
		t.Fatalf("started %d jobs, want 1", len(api.started))
	}
	in := api.started[0]
	if *in.TranscriptionJobName != "job-1" {
		t.Errorf("job name = %q", *in.TranscriptionJobName)
	}
	if in.LanguageCode != types.LanguageCode("en-US") {
		t.Errorf("language = %q", in.LanguageCode)
	}
	if !*in.Settings.ShowSpeakerLabels || *in.Settings.MaxSpeakerLabels != 4 {
		t.Errorf("settings = %+v", in.Settings)
	}
	if *in.Media.MediaFileUri != "s3://meetings/audio/job-1/audio.mp3" {
		t.Errorf("media uri = %q", *in.Media.MediaFileUri)
	}
	if *in.OutputBucketName != "meetings" || *in.OutputKey != "transcripts/job-1.json" {
		t.Errorf("output = %q/%q", *in.OutputBucketName, *in.OutputKey)
	}

	// Both transient objects cleaned up.
	if len(store.deleted) != 2 {
		t.Errorf("deleted = %v, want audio and result keys", store.deleted)
	}

	wantStages := []string{"uploading audio", "starting transcription job", "waiting for transcription", "downloading result"}
	if len(stages) != len(wantStages) {
		t.Fatalf("stages = %v", stages)
	}
	for i, s := range wantStages {
		if stages[i] != s {
			t.Errorf("stage %d = %q, want %q", i, stages[i], s)
		}
	}
}

func TestTranscribe_JobFailure(t *testing.T) {
	store := newFakeStore()
	api := &fakeAPI{
		statuses: []types.TranscriptionJobStatus{types.TranscriptionJobStatusFailed},
		reason:   "unsupported media format",
	}
	client := NewClient(api, store, time.Millisecond, zerolog.Nop())

	_, _, err := client.Transcribe(context.Background(), writeAudio(t), Options{JobName: "job-bad"})
	if err == nil {
		t.Fatal("expected error")
	}
	var jobErr *JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("error = %T (%v), want *JobError", err, err)
	}
	if jobErr.Reason != "unsupported media format" {
		t.Errorf("Reason = %q", jobErr.Reason)
	}
	if jobErr.JobName != "job-bad" {
		t.Errorf("JobName = %q", jobErr.JobName)
	}
}

func TestTranscribe_ContextCancelledWhileWaiting(t *testing.T) {
	store := newFakeStore()
	api := &fakeAPI{statuses: []types.TranscriptionJobStatus{types.TranscriptionJobStatusInProgress}}
	client := NewClient(api, store, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, _, err := client.Transcribe(ctx, writeAudio(t), Options{JobName: "job-slow"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestTranscribe_MissingAudioFile(t *testing.T) {
	client := NewClient(&fakeAPI{}, newFakeStore(), time.Millisecond, zerolog.Nop())
	_, _, err := client.Transcribe(context.Background(), "/does/not/exist.mp3", Options{JobName: "j"})
	if err == nil {
		t.Fatal("expected error for missing audio file")
	}
}

func TestTranscribe_MalformedResult(t *testing.T) {
	store := newFakeStore()
	store.objects["transcripts/j.json"] = []byte(`{"results":{"items":[{"type":"pronunciation","start_time":"x","end_time":"1","alternatives":[{"content":"hi"}]}]}}`)
	api := &fakeAPI{statuses: []types.TranscriptionJobStatus{types.TranscriptionJobStatusCompleted}}
	client := NewClient(api, store, time.Millisecond, zerolog.Nop())

	_, _, err := client.Transcribe(context.Background(), writeAudio(t), Options{JobName: "j"})
	if err == nil {
		t.Fatal("expected data-format error")
	}
}
