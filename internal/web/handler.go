// Package web serves the orthographic views pipeline over HTTP. The same
// Handler backs the local server and the Lambda function.
//
// Routes:
//   - POST /api/views        multipart "image" → JSON result set
//   - POST /api/views/stream multipart "image" → Server-Sent Events (unless
//     WithoutStreaming)
//   - POST /api/views/zip    multipart "image" → ZIP bundle
//   - GET  /healthz
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/orthoview/internal/bundle"
	"github.com/fpang/orthoview/internal/chat"
	"github.com/fpang/orthoview/internal/filehandler"
)

// Pipeline runs one image through background removal and view generation.
type Pipeline interface {
	GenerateAllViews(ctx context.Context, blob *filehandler.ImageBlob, progress chat.ProgressSink) (chat.ViewResultSet, error)
}

// Handler serves the HTTP API.
type Handler struct {
	pipeline  Pipeline
	model     string
	streaming bool
	root      http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithoutStreaming leaves out /api/views/stream. Use it behind hosts that
// buffer the whole response, such as API Gateway via httpadapter, where
// Server-Sent Events would arrive all at once.
func WithoutStreaming() Option {
	return func(h *Handler) { h.streaming = false }
}

// NewHandler creates a Handler. model is reported by /healthz and written
// into ZIP manifests.
func NewHandler(pipeline Pipeline, model string, opts ...Option) *Handler {
	h := &Handler{pipeline: pipeline, model: model, streaming: true}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("POST /api/views", h.handleViews)
	if h.streaming {
		mux.HandleFunc("POST /api/views/stream", h.handleStream)
	}
	mux.HandleFunc("POST /api/views/zip", h.handleZip)

	h.root = withLogging(withCORS(mux))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// viewJSON is one entry of the JSON result set.
type viewJSON struct {
	Kind         chat.ViewKind `json:"kind"`
	Label        string        `json:"label"`
	ImageDataURI string        `json:"imageDataUri"`
}

type viewsResponse struct {
	Views []viewJSON `json:"views"`
}

func newViewsResponse(set chat.ViewResultSet) viewsResponse {
	resp := viewsResponse{Views: make([]viewJSON, 0, len(set))}
	for _, v := range set {
		resp.Views = append(resp.Views, viewJSON{
			Kind:         v.Kind,
			Label:        v.Kind.Label(),
			ImageDataURI: v.ImageDataURI,
		})
	}
	return resp
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "model": h.model, "streaming": h.streaming})
}

func (h *Handler) handleViews(w http.ResponseWriter, r *http.Request) {
	upload, ok := readUpload(w, r)
	if !ok {
		return
	}

	results, err := h.pipeline.GenerateAllViews(r.Context(), upload.Blob, nil)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newViewsResponse(results))
}

func (h *Handler) handleZip(w http.ResponseWriter, r *http.Request) {
	upload, ok := readUpload(w, r)
	if !ok {
		return
	}

	results, err := h.pipeline.GenerateAllViews(r.Context(), upload.Blob, nil)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	b, err := bundle.Build(results, upload.Filename, h.model)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build bundle")
		httpError(w, http.StatusInternalServerError, "failed to build ZIP bundle")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", zipName(upload.Filename)))
	w.WriteHeader(http.StatusOK)
	if err := b.WriteZip(w); err != nil {
		// Headers are already sent; the client sees a truncated archive.
		log.Error().Err(err).Msg("Failed to stream ZIP bundle")
	}
}

// zipName derives the download name from the uploaded file name.
func zipName(upload string) string {
	base := strings.TrimSuffix(filepath.Base(upload), filepath.Ext(upload))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "orthoview"
	}
	return base + "-views.zip"
}

// respondPipelineError maps an aborting pipeline error to a status code:
// an unreadable image is the client's fault (400), a failed background
// removal is not processable (422).
func respondPipelineError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	var readErr *filehandler.ReadError
	if errors.As(err, &readErr) {
		status = http.StatusBadRequest
	}
	log.Warn().Err(err).Int("status", status).Msg("Pipeline aborted")
	httpError(w, status, chat.UserMessage(err))
}
