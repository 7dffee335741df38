// Package watch monitors a drop directory for new meeting recordings and
// feeds them into the transcription worker pool.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/scribeworks/meeting-transcriber/internal/pipeline"
)

// debounceDelay coalesces rapid Create+Write events and gives the recorder
// time to finish writing the file.
const debounceDelay = 2 * time.Second

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".webm": true,
}

// Watcher monitors a directory tree for new video files and enqueues them
// for transcription. New subdirectories are added to the watch set.
type Watcher struct {
	pool     *pipeline.WorkerPool
	watchDir string
	debounce time.Duration
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}

	// Debounce: coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	filesEnqueued atomic.Int64
	filesSkipped  atomic.Int64
}

// New creates a watcher over watchDir feeding pool.
func New(pool *pipeline.WorkerPool, watchDir string, log zerolog.Logger) *Watcher {
	return &Watcher{
		pool:           pool,
		watchDir:       watchDir,
		debounce:       debounceDelay,
		log:            log.With().Str("component", "watcher").Logger(),
		done:           make(chan struct{}),
		debounceTimers: make(map[string]*time.Timer),
	}
}

// Start initializes the fsnotify watcher, adds all existing directories,
// and begins watching for new files.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fw

	dirCount := 0
	err = filepath.WalkDir(w.watchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("error walking directory")
			return nil // continue walking
		}
		if d.IsDir() {
			if addErr := fw.Add(path); addErr != nil {
				w.log.Warn().Err(addErr).Str("path", path).Msg("failed to watch directory")
			} else {
				dirCount++
			}
		}
		return nil
	})
	if err != nil {
		fw.Close()
		return err
	}

	w.log.Info().
		Int("directories", dirCount).
		Str("watch_dir", w.watchDir).
		Msg("file watcher started")

	go w.watchLoop()
	return nil
}

// Stop closes the fsnotify watcher and cancels pending debounce timers so
// nothing is enqueued after the worker pool shuts down.
func (w *Watcher) Stop() {
	close(w.done)

	w.debounceMu.Lock()
	for path, t := range w.debounceTimers {
		t.Stop()
		delete(w.debounceTimers, path)
	}
	w.debounceMu.Unlock()

	if w.watcher != nil {
		w.watcher.Close()
	}
	w.log.Info().
		Int64("files_enqueued", w.filesEnqueued.Load()).
		Int64("files_skipped", w.filesSkipped.Load()).
		Msg("file watcher stopped")
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			// New directory: add it so files landing inside are seen.
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.watcher.Add(event.Name); err != nil {
					w.log.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
				}
				continue
			}

			if !isVideoFile(event.Name) {
				continue
			}

			w.scheduleEnqueue(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleEnqueue debounces a file so it is enqueued once, after writes
// have settled.
func (w *Watcher) scheduleEnqueue(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(w.debounce)
		return
	}

	w.debounceTimers[path] = time.AfterFunc(w.debounce, func() {
		// Holding debounceMu orders the done check against Stop: either the
		// enqueue completes before Stop returns, or the close is observed.
		w.debounceMu.Lock()
		defer w.debounceMu.Unlock()
		delete(w.debounceTimers, path)

		select {
		case <-w.done:
			return
		default:
		}
		w.enqueue(path)
	})
}

func (w *Watcher) enqueue(path string) {
	if w.pool.Enqueue(path) {
		w.filesEnqueued.Add(1)
		w.log.Info().Str("video", path).Msg("video enqueued")
	} else {
		w.filesSkipped.Add(1)
		w.log.Warn().Str("video", path).Msg("queue full, video skipped")
	}
}

// isVideoFile reports whether path has a recognized video extension.
func isVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}
