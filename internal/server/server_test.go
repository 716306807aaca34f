package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docparser/constants"
	"github.com/joseph-ayodele/docparser/internal/async"
	"github.com/joseph-ayodele/docparser/internal/document"
	"github.com/joseph-ayodele/docparser/internal/document/doctest"
	"github.com/joseph-ayodele/docparser/internal/extract"
	"github.com/joseph-ayodele/docparser/internal/llm"
	"github.com/joseph-ayodele/docparser/internal/pipeline"
	"github.com/joseph-ayodele/docparser/internal/repository"
)

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, []byte, string) (extract.Result, error) {
	return extract.Result{Text: "INVOICE INV-2024-001\nTOTAL 1512.50", SourceKind: "pdf_native"}, nil
}

type stubNormalizer struct{}

func (stubNormalizer) ExtractToCanonical(context.Context, llm.Evidence) ([]byte, error) {
	return doctest.SampleInvoice().CandidateJSON()
}

func (stubNormalizer) Revalidate(_ context.Context, candidate []byte, _ []string, _ llm.Evidence) ([]byte, error) {
	return candidate, nil
}

func newDocuments(t *testing.T, queue bool) (*Documents, repository.Store, *async.ProcessorQueue) {
	t.Helper()
	store := repository.NewMemoryStore()
	orch := pipeline.New(stubExtractor{}, stubNormalizer{}, pipeline.Options{MaxRetries: 1}, nil)
	var q *async.ProcessorQueue
	if queue {
		q = async.NewProcessorQueue(orch, store, nil, async.WithWorkers(1))
		return NewDocuments(orch, store, q, nil), store, q
	}
	return NewDocuments(orch, store, nil, nil), store, nil
}

func upload(t *testing.T, url, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, url string, v any) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(method, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) document.ProcessingResult {
	t.Helper()
	var res document.ProcessingResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func TestHTTP_DocumentLifecycle(t *testing.T) {
	docs, _, _ := newDocuments(t, false)
	h := NewRouter(docs, HTTPOptions{}, nil)

	w := do(h, upload(t, "/documents/parse", "invoice.pdf", []byte("%PDF-1.7")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	parsed := decodeResult(t, w)
	assert.Equal(t, constants.StatusValid, parsed.Status)
	assert.Equal(t, constants.ConfidenceHigh, parsed.Confidence)
	base := "/documents/" + parsed.DocumentID.String()

	w = do(h, httptest.NewRequest(http.MethodGet, base, nil))
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, parsed.DocumentID, decodeResult(t, w).DocumentID)

	req := httptest.NewRequest(http.MethodGet, base, nil)
	req.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, do(h, req).Code)

	w = do(h, httptest.NewRequest(http.MethodGet, base+"/canonical", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var canonical document.CanonicalDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &canonical))
	assert.Equal(t, "INV-2024-001", canonical.Document.Number)

	// a reviewer breaks the subtotal
	edited := doctest.SampleInvoice()
	edited.Totals.Subtotal = doctest.D("999.00")
	req = jsonRequest(t, http.MethodPut, base, edited)
	req.Header.Set("If-Match", etag)
	w = do(h, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeResult(t, w)
	assert.Equal(t, constants.StatusUncertain, updated.Status)
	assert.Equal(t, parsed.DocumentID, updated.Data.Metadata.DocumentID)
	assert.NotEmpty(t, updated.Suggestions)

	// stale etag
	req = jsonRequest(t, http.MethodPut, base, edited)
	req.Header.Set("If-Match", etag)
	w = do(h, req)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	var stale map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stale))
	assert.Equal(t, "precondition_failed", stale["error"])
	assert.Equal(t, "precondition failed: document changed since it was read", stale["message"])
	assert.Contains(t, stale, "request_id")

	w = do(h, jsonRequest(t, http.MethodPut, base+"/annotations", map[string]any{
		"bounding_boxes": []document.BoundingBox{{Text: "1 250,00", FieldPath: "totals.subtotal", Confidence: 1}},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	annotated := decodeResult(t, w)
	assert.Equal(t, constants.StatusValid, annotated.Status)
	assert.Equal(t, "1250", annotated.Data.Totals.Subtotal.String())
	require.Len(t, annotated.BoundingBoxes, 1)

	w = do(h, httptest.NewRequest(http.MethodPost, base+"/confirm", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, pipeline.MessageConfirmed, decodeResult(t, w).Message)

	w = do(h, httptest.NewRequest(http.MethodGet, base+"/export.xlsx", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())

	assert.Equal(t, http.StatusNoContent, do(h, httptest.NewRequest(http.MethodDelete, base, nil)).Code)
	w = do(h, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	var envelope map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "not_found", envelope["error"])
}

func TestHTTP_RejectsBadInput(t *testing.T) {
	docs, store, _ := newDocuments(t, false)
	h := NewRouter(docs, HTTPOptions{}, nil)

	res := &document.ProcessingResult{DocumentID: uuid.New(), Status: constants.StatusValid, Data: doctest.SampleInvoice()}
	require.NoError(t, store.Put(context.Background(), res))
	base := "/documents/" + res.DocumentID.String()

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"bad id", httptest.NewRequest(http.MethodGet, "/documents/not-a-uuid", nil), http.StatusBadRequest},
		{"no file", httptest.NewRequest(http.MethodPost, "/documents/parse", nil), http.StatusBadRequest},
		{"empty file", upload(t, "/documents/parse", "a.png", nil), http.StatusBadRequest},
		{"async disabled", upload(t, "/documents/parse?async=true", "a.png", []byte{1}), http.StatusBadRequest},
		{"empty body", httptest.NewRequest(http.MethodPut, base, nil), http.StatusBadRequest},
		{"malformed body", httptest.NewRequest(http.MethodPut, base, bytes.NewBufferString("{")), http.StatusBadRequest},
		{"bad schema version", jsonRequest(t, http.MethodPut, base, map[string]any{"schema_version": "one"}), http.StatusBadRequest},
		{"incompatible schema", jsonRequest(t, http.MethodPut, base, map[string]any{"schema_version": "2.0.0"}), http.StatusUnprocessableEntity},
		{"unknown document", httptest.NewRequest(http.MethodPost, "/documents/"+uuid.NewString()+"/confirm", nil), http.StatusNotFound},
		{"delete unknown", httptest.NewRequest(http.MethodDelete, "/documents/"+uuid.NewString(), nil), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, tt.req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestHTTP_AsyncParse(t *testing.T) {
	docs, _, q := newDocuments(t, true)
	h := NewRouter(docs, HTTPOptions{}, nil)

	w := do(h, upload(t, "/documents/parse?async=true", "invoice.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var accepted map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.Equal(t, "processing", accepted["status"])
	assert.Equal(t, "/documents/"+accepted["document_id"], w.Header().Get("Location"))

	q.Shutdown(context.Background())

	w = do(h, httptest.NewRequest(http.MethodGet, "/documents/"+accepted["document_id"], nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, constants.StatusValid, decodeResult(t, w).Status)

	w = do(h, upload(t, "/documents/parse?async=1", "invoice.pdf", []byte("%PDF")))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHTTP_Health(t *testing.T) {
	docs, _, _ := newDocuments(t, false)
	w := do(NewRouter(docs, HTTPOptions{}, nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCheckSchemaVersion(t *testing.T) {
	assert.NoError(t, checkSchemaVersion(""))
	assert.NoError(t, checkSchemaVersion("1.0.0"))
	assert.NoError(t, checkSchemaVersion("1.3"))
	assert.Error(t, checkSchemaVersion("2.0.0"))
	assert.Error(t, checkSchemaVersion("v-next"))
}

func TestETag_StableAcrossKeyOrder(t *testing.T) {
	res := &document.ProcessingResult{DocumentID: uuid.New(), Status: constants.StatusValid, Data: doctest.SampleInvoice()}
	a, err := ETag(res)
	require.NoError(t, err)
	b, err := ETag(res)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	res.Status = constants.StatusUncertain
	c, err := ETag(res)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
