package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/formrepl/internal/engine"
	"github.com/leapstack-labs/formrepl/internal/repl"
	"github.com/leapstack-labs/formrepl/internal/session"
)

const defaultHistoryCount = 50

// ExecuteRequest is the body of POST /api/execute.
type ExecuteRequest struct {
	Input string `json:"input"`
}

// ExecuteResponse reports one cycle.
type ExecuteResponse struct {
	Success       bool   `json:"success"`
	Output        string `json:"output"`
	Error         string `json:"error,omitempty"`
	DurationMS    int64  `json:"duration_ms"`
	SessionNumber int    `json:"session_number"`
}

// HistoryEntry is one element of GET /api/history.
type HistoryEntry struct {
	SessionNumber int       `json:"session_number"`
	Input         string    `json:"input"`
	Output        string    `json:"output,omitempty"`
	Error         string    `json:"error,omitempty"`
	Success       bool      `json:"success"`
	DurationMS    int64     `json:"duration_ms"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Info is the body of GET /api/info.
type Info struct {
	Version    string `json:"version"`
	FormPath   string `json:"form_path"`
	Sentinel   string `json:"sentinel"`
	TimeoutMS  int64  `json:"timeout_ms"`
	NextNumber int    `json:"next_session_number"`
	Entries    int    `json:"entries"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "input is empty"})
		return
	}

	s.mu.Lock()
	c := s.session.SubmitText(r.Context(), req.Input)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, executeResponse(c))
}

func executeResponse(c repl.Cycle) ExecuteResponse {
	resp := ExecuteResponse{
		Success:       !c.Failed(),
		Output:        c.Display,
		DurationMS:    c.Duration.Milliseconds(),
		SessionNumber: c.Seq,
	}
	if c.Err != nil {
		resp.Error = errorMessage(c.Err)
	}
	return resp
}

// errorMessage prefers what the engine printed over the error summary.
func errorMessage(err error) string {
	var execErr *engine.ExecutionError
	if errors.As(err, &execErr) {
		return strings.TrimRight(execErr.Message(), "\n")
	}
	return err.Error()
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	count := defaultHistoryCount
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "count must be a non-negative integer"})
			return
		}
		count = n
	}
	if count == 0 {
		writeJSON(w, http.StatusOK, []HistoryEntry{})
		return
	}

	s.mu.Lock()
	entries := s.session.Store().Recent(count)
	s.mu.Unlock()

	out := make([]HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, historyEntry(entries[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func historyEntry(e session.Entry) HistoryEntry {
	return HistoryEntry{
		SessionNumber: e.Seq,
		Input:         e.Input,
		Output:        e.Output,
		Error:         e.Failure,
		Success:       e.Completed,
		DurationMS:    e.Duration.Milliseconds(),
		SubmittedAt:   e.SubmittedAt,
	}
}

func (s *Server) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.session.Reset()
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	store := s.session.Store()
	info := Info{
		Version:    s.cfg.Version,
		FormPath:   s.cfg.EnginePath,
		Sentinel:   s.cfg.Sentinel,
		TimeoutMS:  s.cfg.Timeout.Milliseconds(),
		NextNumber: store.NextSeq(),
		Entries:    store.Len(),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
