package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/async"
	"github.com/joseph-ayodele/docparser/internal/common"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/pipeline"
)

const (
	defaultMaxUploadMB = constants.MaxFileSizeMBDefault
	defaultTimeout     = 5 * time.Minute
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type HTTPOptions struct {
	MaxUploadMB int
	Timeout     time.Duration
}

type httpHandlers struct {
	docs      *Documents
	maxUpload int64
	logger    *slog.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(docs *Documents, opts HTTPOptions, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = defaultMaxUploadMB
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	h := &httpHandlers{docs: docs, maxUpload: int64(opts.MaxUploadMB) << 20, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, propagateRequestID, middleware.RealIP, requestLogger(logger), middleware.Recoverer, middleware.Timeout(opts.Timeout))
	r.Get("/healthz", h.health)
	r.Route("/documents", func(r chi.Router) {
		r.Post("/parse", h.parse)
		r.Route("/{documentID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.delete)
			r.Get("/canonical", h.canonical)
			r.Put("/annotations", h.annotate)
			r.Post("/confirm", h.confirm)
			r.Get("/export.xlsx", h.exportXLSX)
		})
	})
	return r
}

// propagateRequestID copies chi's request id into the context key the pipeline logs with.
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := common.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http.request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func (h *httpHandlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.docs.Ping(r.Context()); err != nil {
		h.logger.Warn("http.health.store_down", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *httpHandlers) parse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, maxErr)
			return
		}
		writeError(w, r, invalid("expected multipart form with a file field: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, invalid("file field is required"))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(content) == 0 {
		writeError(w, r, invalid("file %q is empty", header.Filename))
		return
	}

	if background, _ := strconv.ParseBool(r.URL.Query().Get("async")); background {
		h.submit(w, r, header.Filename, content)
		return
	}
	res, err := h.docs.Parse(r.Context(), pipeline.Request{Content: content, Filename: header.Filename})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *httpHandlers) submit(w http.ResponseWriter, r *http.Request, filename string, content []byte) {
	id, err := h.docs.Submit(r.Context(), async.Job{
		Filename:    filename,
		Content:     content,
		SubmittedAt: time.Now(),
		RequestID:   middleware.GetReqID(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/documents/"+id.String())
	writeJSON(w, http.StatusAccepted, map[string]string{"document_id": id.String(), "status": "processing"})
}

func (h *httpHandlers) load(w http.ResponseWriter, r *http.Request) (*document.ProcessingResult, bool) {
	id, err := parseID(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	res, err := h.docs.Get(r.Context(), id)
	if err != nil {
		if h.docs.Pending(id) {
			writeJSON(w, http.StatusAccepted, map[string]string{"document_id": id.String(), "status": "processing"})
			return nil, false
		}
		writeError(w, r, err)
		return nil, false
	}
	return res, true
}

func (h *httpHandlers) get(w http.ResponseWriter, r *http.Request) {
	res, ok := h.load(w, r)
	if !ok {
		return
	}
	etag, err := ETag(res)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *httpHandlers) canonical(w http.ResponseWriter, r *http.Request) {
	res, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.Data)
}

func (h *httpHandlers) update(w http.ResponseWriter, r *http.Request) {
	prev, ok := h.load(w, r)
	if !ok {
		return
	}
	if match := r.Header.Get("If-Match"); match != "" {
		if etag, err := ETag(prev); err == nil && etag != match {
			writeError(w, r, fmt.Errorf("%w: document changed since it was read", common.ErrPrecondition))
			return
		}
	}
	var doc document.CanonicalDocument
	if err := decodeBody(r, &doc, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.docs.Update(r.Context(), prev.DocumentID, &doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type annotationsRequest struct {
	BoundingBoxes []document.BoundingBox `json:"bounding_boxes"`
}

func (h *httpHandlers) annotate(w http.ResponseWriter, r *http.Request) {
	prev, ok := h.load(w, r)
	if !ok {
		return
	}
	var req annotationsRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.docs.Annotate(r.Context(), prev.DocumentID, req.BoundingBoxes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type confirmRequest struct {
	Corrections map[string]string `json:"corrections"`
}

func (h *httpHandlers) confirm(w http.ResponseWriter, r *http.Request) {
	prev, ok := h.load(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.docs.Confirm(r.Context(), prev.DocumentID, req.Corrections)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *httpHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.docs.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *httpHandlers) exportXLSX(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.docs.Export(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		if allowEmpty {
			return nil
		}
		return invalid("request body is required")
	}
	return invalid("malformed JSON body: %v", err)
}
