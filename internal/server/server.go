// Package server exposes the patch engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/asynkron/justpaste/internal/logging"
	"github.com/asynkron/justpaste/internal/metrics"
	"github.com/asynkron/justpaste/internal/preview"
	"github.com/asynkron/justpaste/pkg/linepatch"
)

// Options configure a Server.
type Options struct {
	Addr              string
	MaxBodyBytes      int64
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	// Concurrency bounds the documents patched at once by the batch endpoint.
	Concurrency int
	Logger      logging.Logger
	Metrics     metrics.Recorder
}

func (o *Options) setDefaults() {
	if o.Addr == "" {
		o.Addr = ":8080"
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 8 << 20
	}
	if o.ReadHeaderTimeout <= 0 {
		o.ReadHeaderTimeout = 10 * time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logging.Nop{}
	}
	if o.Metrics == nil {
		o.Metrics = metrics.Nop{}
	}
}

// Server serves the apply, preview and parse endpoints.
type Server struct {
	opts Options
	mux  *http.ServeMux
}

// New creates a Server with its routes registered.
func New(opts Options) *Server {
	opts.setDefaults()
	s := &Server{opts: opts, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /v1/apply", s.handleApply)
	s.mux.HandleFunc("POST /v1/apply-batch", s.handleApplyBatch)
	s.mux.HandleFunc("POST /v1/apply-stream", s.handleApplyStream)
	s.mux.HandleFunc("POST /v1/preview", s.handlePreview)
	s.mux.HandleFunc("POST /v1/parse", s.handleParse)
	s.mux.HandleFunc("GET /v1/metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return s
}

// Handler returns the routed handler wrapped with request tracing.
func (s *Server) Handler() http.Handler {
	return s.trace(s.mux)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.opts.Logger.Info(ctx, "server listening", logging.F("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.opts.Logger.Info(ctx, "server stopped")
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logging.NewTraceID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := logging.WithTraceID(r.Context(), id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		s.opts.Logger.Debug(ctx, "request handled",
			logging.F("method", r.Method),
			logging.F("path", r.URL.Path),
			logging.F("status", rec.status),
			logging.F("duration", time.Since(start)),
		)
	})
}

type applyRequest struct {
	Original string `json:"original"`
	Diff     string `json:"diff"`
}

type applyResponse struct {
	Patched string                 `json:"patched"`
	EOL     string                 `json:"eol"`
	Changed bool                   `json:"changed"`
	Steps   []linepatch.StepStatus `json:"steps"`
	Summary string                 `json:"summary"`
}

func newApplyResponse(report linepatch.Report) applyResponse {
	return applyResponse{
		Patched: report.Text,
		EOL:     report.EOL,
		Changed: report.Changed(),
		Steps:   report.Steps,
		Summary: linepatch.FormatReport(report),
	}
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !s.decode(w, r, applySchema, &req) {
		return
	}
	start := time.Now()
	report := linepatch.ApplyWithReport(req.Original, req.Diff)
	s.opts.Metrics.RecordApply(time.Since(start), report)
	writeJSON(w, http.StatusOK, newApplyResponse(report))
}

type batchRequest struct {
	Documents map[string]string `json:"documents"`
	Diff      string            `json:"diff"`
}

type batchResponse struct {
	Documents map[string]applyResponse `json:"documents"`
}

func (s *Server) handleApplyBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, batchSchema, &req) {
		return
	}
	start := time.Now()
	reports, err := linepatch.ApplyDocuments(r.Context(), req.Documents, req.Diff, s.opts.Concurrency)
	if err != nil {
		s.opts.Logger.Warn(r.Context(), "batch apply aborted", logging.F("error", err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	elapsed := time.Since(start)
	resp := batchResponse{Documents: make(map[string]applyResponse, len(reports))}
	for name, report := range reports {
		s.opts.Metrics.RecordApply(elapsed, report)
		resp.Documents[name] = newApplyResponse(report)
	}
	writeJSON(w, http.StatusOK, resp)
}

type previewRequest struct {
	Original   string `json:"original"`
	Diff       string `json:"diff"`
	SideBySide bool   `json:"side_by_side"`
	Width      int    `json:"width"`
}

type previewResponse struct {
	Patched    string        `json:"patched"`
	Unified    string        `json:"unified"`
	SideBySide string        `json:"side_by_side,omitempty"`
	Rows       []preview.Row `json:"rows"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !s.decode(w, r, previewSchema, &req) {
		return
	}
	start := time.Now()
	report := linepatch.ApplyWithReport(req.Original, req.Diff)
	s.opts.Metrics.RecordApply(time.Since(start), report)

	comparison := preview.Compare(req.Original, report.Text)
	resp := previewResponse{
		Patched: report.Text,
		Unified: preview.Unified(comparison),
		Rows:    comparison.Rows,
	}
	if req.SideBySide {
		width := req.Width
		if width == 0 {
			width = 120
		}
		resp.SideBySide = preview.SideBySide(comparison, width)
	}
	writeJSON(w, http.StatusOK, resp)
}

type parseRequest struct {
	Diff string `json:"diff"`
}

type parseResponse struct {
	Operations []linepatch.Operation `json:"operations"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !s.decode(w, r, parseSchema, &req) {
		return
	}
	ops := linepatch.Parse(req.Diff)
	if ops == nil {
		ops = []linepatch.Operation{}
	}
	writeJSON(w, http.StatusOK, parseResponse{Operations: ops})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Metrics.Snapshot())
}

// decode reads, validates and unmarshals a request body. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema *compiledSchema, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.opts.Metrics.RecordRejected("too_large")
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		s.opts.Metrics.RecordRejected("read")
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := validate(schema, body); err != nil {
		var verr validationError
		if !errors.As(err, &verr) {
			s.opts.Logger.Error(r.Context(), "schema unavailable", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return false
		}
		s.opts.Metrics.RecordRejected("schema")
		writeError(w, http.StatusBadRequest, verr.Error())
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		s.opts.Metrics.RecordRejected("decode")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
