// Package server exposes the converter over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/htmlblocks/internal/logger"
	"github.com/jmylchreest/htmlblocks/pkg/converter"
)

// ConvertPath is the route of the convert endpoint.
const ConvertPath = "/v1/html/convert"

// Error codes returned in the error body.
const (
	CodeEmpty          = "html_empty"
	CodeParse          = "html_parse_error"
	CodeForbidden      = "html_forbidden"
	CodePostRequired   = "html_post_required"
	CodeCannotEdit     = "html_cannot_edit"
	CodeInvalidRequest = "html_invalid_request"
	CodeTooLarge       = "html_too_large"
	CodeInternal       = "html_internal_error"
)

// PostMarker records that a post received imported media.
type PostMarker interface {
	MarkDraft(ctx context.Context, postID int) error
}

// Config configures the server.
type Config struct {
	Addr            string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:8080",
		MaxBodyBytes:    2 << 20,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the convert endpoint.
type Server struct {
	conv   *converter.Converter
	auth   Authorizer
	posts  PostMarker
	config Config
	log    *slog.Logger
}

// New creates a Server. posts may be nil when no media store is configured.
func New(conv *converter.Converter, auth Authorizer, posts PostMarker, cfg Config) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	return &Server{
		conv:   conv,
		auth:   auth,
		posts:  posts,
		config: cfg,
		log:    logger.Component("server"),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+ConvertPath, s.handleConvert)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening",
			"addr", s.config.Addr,
			"max_body", humanize.IBytes(uint64(s.config.MaxBodyBytes)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !s.auth.CanManage(r) {
		writeError(w, http.StatusForbidden, CodeForbidden, "not allowed to import HTML")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	req, err := decodeConvertRequest(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeTooLarge,
				"request body exceeds "+humanize.IBytes(uint64(tooLarge.Limit)))
			return
		}
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	if req.PersistMedia && req.PostID <= 0 {
		writeError(w, http.StatusBadRequest, CodePostRequired, "a post id is required to persist media")
		return
	}
	if req.PostID > 0 && !s.auth.CanEdit(r, req.PostID) {
		writeError(w, http.StatusForbidden, CodeCannotEdit, "cannot edit the target post")
		return
	}

	opts := []converter.Option{
		converter.WithPostID(req.PostID),
		converter.WithPersistMedia(req.PersistMedia),
	}
	if req.ColumnDetection != nil {
		opts = append(opts, converter.WithColumnDetection(*req.ColumnDetection))
	}
	if req.ScoreThreshold != nil {
		opts = append(opts, converter.WithScoreThreshold(*req.ScoreThreshold))
	}

	result, err := s.conv.Convert(r.Context(), req.HTML, opts...)
	switch {
	case errors.Is(err, converter.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, CodeEmpty, "HTML input is empty")
		return
	case errors.Is(err, converter.ErrParse):
		writeError(w, http.StatusUnprocessableEntity, CodeParse, "HTML could not be parsed")
		return
	case err != nil:
		s.log.Error("conversion failed", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "conversion failed")
		return
	}

	if req.PersistMedia && req.PostID > 0 && s.posts != nil {
		if err := s.posts.MarkDraft(r.Context(), req.PostID); err != nil {
			s.log.Warn("failed to mark post as draft", "post_id", req.PostID, "error", err)
			result.AddWarning("store", "post status not updated", err.Error())
		}
	}

	s.log.Info("html converted",
		"post_id", req.PostID,
		"persist", req.PersistMedia,
		"blocks", len(result.Blocks),
		"warnings", len(result.Warnings),
		"duration", time.Since(start))

	writeJSON(w, http.StatusOK, result)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message, Status: status})
}

// writeJSON encodes v before any header is sent, so an encoding failure
// still reaches the client as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Error("failed to encode response", "status", status, "error", err)
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorBody{
			Code:    CodeInternal,
			Message: "response could not be encoded",
			Status:  status,
		})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
