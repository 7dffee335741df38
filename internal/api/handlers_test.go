package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/scribeworks/meeting-transcriber/internal/transcribe"
)

func newTestRouter(reg *ToolRegistry) http.Handler {
	r := chi.NewRouter()
	NewToolsHandler(reg).Routes(r)
	return r
}

func TestListTools_Endpoint(t *testing.T) {
	router := newTestRouter(newTestRegistry(&fakeExtractor{}, &fakeTranscriber{}, &fakeRunner{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/tools", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Tools) != 3 {
		t.Errorf("expected 3 tools, got %d", len(resp.Tools))
	}
}

func TestCallTool_Endpoint(t *testing.T) {
	router := newTestRouter(newTestRegistry(&fakeExtractor{}, &fakeTranscriber{}, &fakeRunner{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/tools/transcribe_video",
		strings.NewReader(`{"video_path":"/meetings/standup.mp4"}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Tool   string         `json:"tool"`
		Result map[string]any `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Tool != "transcribe_video" {
		t.Errorf("expected tool name in response, got %q", resp.Tool)
	}
	if resp.Result["status"] != "success" {
		t.Errorf("expected success result, got %v", resp.Result)
	}
}

func TestCallTool_UnknownTool(t *testing.T) {
	router := newTestRouter(newTestRegistry(&fakeExtractor{}, &fakeTranscriber{}, &fakeRunner{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/tools/no_such_tool", strings.NewReader(`{}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCallTool_BadArguments(t *testing.T) {
	router := newTestRouter(newTestRegistry(&fakeExtractor{}, &fakeTranscriber{}, &fakeRunner{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/tools/transcribe_video", strings.NewReader(`{}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCallTool_EmptyBodyTreatedAsNoArgs(t *testing.T) {
	router := newTestRouter(newTestRegistry(&fakeExtractor{}, &fakeTranscriber{}, &fakeRunner{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/tools/transcribe_video", nil)
	router.ServeHTTP(rec, req)

	// empty body decodes as {} so the required param check fires
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCallTool_JobFailure(t *testing.T) {
	run := &fakeRunner{err: &transcribe.JobError{JobName: "job-1", Reason: "unsupported media format"}}
	router := newTestRouter(newTestRegistry(&fakeExtractor{}, &fakeTranscriber{}, run))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/tools/transcribe_video",
		strings.NewReader(`{"video_path":"/meetings/standup.mp4"}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Detail != "unsupported media format" {
		t.Errorf("expected failure reason in detail, got %q", resp.Detail)
	}
}
