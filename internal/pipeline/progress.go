package pipeline

import (
	"sync"
	"time"
)

// ProgressEvent reports a pipeline stage transition for one job.
type ProgressEvent struct {
	JobName string    `json:"job_name"`
	Stage   string    `json:"stage"`
	Percent int       `json:"percent"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// ProgressBus fans progress events out to subscribers (SSE handlers, logs).
// Events are delivered best-effort: a subscriber with a full channel misses
// the event rather than blocking the pipeline.
type ProgressBus struct {
	mu          sync.RWMutex
	subscribers map[uint64]subscriber
	nextID      uint64
}

type subscriber struct {
	ch  chan ProgressEvent
	job string // "" matches all jobs
}

// NewProgressBus creates an empty bus.
func NewProgressBus() *ProgressBus {
	return &ProgressBus{subscribers: make(map[uint64]subscriber)}
}

// Subscribe registers a subscriber for one job's events (or all jobs when
// jobName is empty) and returns the channel and a cancel function.
func (b *ProgressBus) Subscribe(jobName string) (<-chan ProgressEvent, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan ProgressEvent, 16)
	b.subscribers[id] = subscriber{ch: ch, job: jobName}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to matching subscribers without blocking.
func (b *ProgressBus) Publish(ev ProgressEvent) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if sub.job != "" && sub.job != ev.JobName {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *ProgressBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
