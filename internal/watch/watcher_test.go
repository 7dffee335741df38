package watch

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/scribeworks/meeting-transcriber/internal/pipeline"
)

func TestIsVideoFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"meeting.mp4", true},
		{"meeting.MP4", true},
		{"standup.mov", true},
		{"allhands.mkv", true},
		{"retro.webm", true},
		{"notes.txt", false},
		{"audio.mp3", false},
		{"transcript.md", false},
		{"mp4", false},
		{"clip.mp4.part", false},
	}
	for _, c := range cases {
		if got := isVideoFile(c.path); got != c.want {
			t.Errorf("isVideoFile(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestStop_CancelsPendingDebounce(t *testing.T) {
	p := pipeline.New(nil, nil, nil, zerolog.Nop())
	pool := pipeline.NewWorkerPool(p, 1, 1, pipeline.RunOptions{}, zerolog.Nop())

	w := New(pool, t.TempDir(), zerolog.Nop())
	w.debounce = 10 * time.Millisecond

	w.scheduleEnqueue("/drop/standup.mp4")
	w.Stop()
	pool.Stop() // closes the jobs channel

	w.debounceMu.Lock()
	remaining := len(w.debounceTimers)
	w.debounceMu.Unlock()
	if remaining != 0 {
		t.Errorf("expected no pending debounce timers after stop, got %d", remaining)
	}

	// A timer surviving Stop would fire here and panic sending on the
	// closed jobs channel.
	time.Sleep(50 * time.Millisecond)

	if n := pool.Stats().Pending; n != 0 {
		t.Errorf("expected empty queue after stop, got %d pending", n)
	}
	if n := w.filesEnqueued.Load(); n != 0 {
		t.Errorf("expected no files enqueued after stop, got %d", n)
	}
}

func TestScheduleEnqueue_Debounces(t *testing.T) {
	p := pipeline.New(nil, nil, nil, zerolog.Nop())
	pool := pipeline.NewWorkerPool(p, 1, 4, pipeline.RunOptions{}, zerolog.Nop())

	w := New(pool, t.TempDir(), zerolog.Nop())
	w.debounce = 10 * time.Millisecond

	// Rapid Create+Write events on the same file coalesce to one enqueue.
	w.scheduleEnqueue("/drop/standup.mp4")
	w.scheduleEnqueue("/drop/standup.mp4")
	w.scheduleEnqueue("/drop/standup.mp4")

	deadline := time.Now().Add(time.Second)
	for w.filesEnqueued.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if n := w.filesEnqueued.Load(); n != 1 {
		t.Errorf("expected exactly 1 enqueue, got %d", n)
	}
	if n := pool.Stats().Pending; n != 1 {
		t.Errorf("expected 1 pending job, got %d", n)
	}

	w.Stop()
}
