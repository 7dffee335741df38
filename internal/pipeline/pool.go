package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/scribeworks/meeting-transcriber/internal/metrics"
)

// PoolStats reports the current state of the transcription queue.
type PoolStats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// WorkerPool runs pipeline jobs for videos arriving from watch mode.
type WorkerPool struct {
	jobs     chan string
	pipeline *Pipeline
	runOpts  RunOptions
	workers  int
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	completed atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool creates a pool of workers feeding videos through the
// pipeline with the given run options (job names are generated per video).
func NewWorkerPool(p *Pipeline, workers, queueSize int, runOpts RunOptions, log zerolog.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobs:     make(chan string, queueSize),
		pipeline: p,
		runOpts:  runOpts,
		workers:  workers,
		log:      log.With().Str("component", "worker-pool").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.log.Info().Int("workers", wp.workers).Int("queue_size", cap(wp.jobs)).Msg("worker pool started")
}

// Stop signals workers to drain and waits for completion.
func (wp *WorkerPool) Stop() {
	close(wp.jobs)
	wp.wg.Wait()
	wp.cancel()
	wp.log.Info().
		Int64("completed", wp.completed.Load()).
		Int64("failed", wp.failed.Load()).
		Msg("worker pool stopped")
}

// Enqueue adds a video to the queue. Returns false if the queue is full.
func (wp *WorkerPool) Enqueue(videoPath string) bool {
	select {
	case wp.jobs <- videoPath:
		metrics.QueueDepth.Set(float64(len(wp.jobs)))
		return true
	default:
		return false
	}
}

// Stats returns current queue statistics.
func (wp *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Pending:   len(wp.jobs),
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker", id).Logger()

	for videoPath := range wp.jobs {
		metrics.QueueDepth.Set(float64(len(wp.jobs)))

		opts := wp.runOpts
		opts.JobName = JobName(videoPath)
		if _, err := wp.pipeline.Run(wp.ctx, videoPath, opts); err != nil {
			wp.failed.Add(1)
			log.Warn().Err(err).Str("video", videoPath).Msg("transcription failed")
		} else {
			wp.completed.Add(1)
		}
	}
}
