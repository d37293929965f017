package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/asynkron/justpaste/pkg/linepatch"
)

// sseWrite sends a single SSE event with the given name and data, followed by a flush.
func sseWrite(w http.ResponseWriter, flusher http.Flusher, event string, data string) error {
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	// data lines must not contain raw newlines; split and prefix each line.
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func sseWriteJSON(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return sseWrite(w, flusher, event, string(data))
}

// handleApplyStream applies like /v1/apply but reports every operation as a
// "step" event, then the full response as a "result" event and "end".
func (s *Server) handleApplyStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	var req applyRequest
	if !s.decode(w, r, applySchema, &req) {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	report := linepatch.ApplyWithReport(req.Original, req.Diff)
	s.opts.Metrics.RecordApply(time.Since(start), report)

	for _, step := range report.Steps {
		if r.Context().Err() != nil {
			return
		}
		if err := sseWriteJSON(w, flusher, "step", step); err != nil {
			return
		}
	}
	if err := sseWriteJSON(w, flusher, "result", newApplyResponse(report)); err != nil {
		return
	}
	_ = sseWrite(w, flusher, "end", "done")
}
