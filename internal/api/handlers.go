package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scribeworks/meeting-transcriber/internal/transcribe"
)

// ToolsHandler serves the tool listing and dispatches tool calls.
type ToolsHandler struct {
	registry *ToolRegistry
}

func NewToolsHandler(registry *ToolRegistry) *ToolsHandler {
	return &ToolsHandler{registry: registry}
}

// ListTools returns the registered tool descriptors.
func (h *ToolsHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"tools": h.registry.List()})
}

// CallTool dispatches one tool invocation. The request body is the tool's
// argument object.
func (h *ToolsHandler) CallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "read request body")
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	result, err := h.registry.Call(r.Context(), name, json.RawMessage(body))
	if err != nil {
		writeToolError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"tool":   name,
		"result": result,
	})
}

// writeToolError maps tool failures onto HTTP statuses: unknown tool 404,
// bad arguments 400, failed transcription job 502, everything else 500.
func writeToolError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownTool):
		WriteError(w, http.StatusNotFound, err.Error())
	case IsParamError(err):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		var jobErr *transcribe.JobError
		if errors.As(err, &jobErr) {
			WriteErrorDetail(w, http.StatusBadGateway, "transcription job failed", jobErr.Reason)
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// Routes registers tool routes on the given router.
func (h *ToolsHandler) Routes(r chi.Router) {
	r.Get("/tools", h.ListTools)
	r.Post("/tools/{name}", h.CallTool)
}
