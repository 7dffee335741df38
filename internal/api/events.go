package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/scribeworks/meeting-transcriber/internal/pipeline"
)

// EventsHandler streams pipeline progress events over SSE.
type EventsHandler struct {
	bus *pipeline.ProgressBus
}

func NewEventsHandler(bus *pipeline.ProgressBus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

// StreamEvents opens an SSE connection and pushes progress events for one
// job ({job} path param) or all jobs (job name "all").
func (h *EventsHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	job := chi.URLParam(r, "job")
	if job == "all" {
		job = ""
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// ResponseController so flushing works through middleware wrappers.
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("streaming not supported")
		return
	}

	ch, cancel := h.bus.Subscribe(job)
	defer cancel()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	log := hlog.FromRequest(r)
	log.Info().Str("job", job).Msg("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			log.Info().Msg("SSE client disconnected")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
			rc.Flush()
			// Terminal stages end the stream for single-job subscriptions.
			if job != "" && (ev.Stage == "done" || ev.Stage == "failed") {
				return
			}
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			rc.Flush()
		}
	}
}

// Routes registers event routes on the given router.
func (h *EventsHandler) Routes(r chi.Router) {
	r.Get("/jobs/{job}/events", h.StreamEvents)
}
