package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/CogStack/tika-service/internal/config"
	"github.com/CogStack/tika-service/internal/core/batch"
	"github.com/CogStack/tika-service/internal/core/metadata"
	"github.com/CogStack/tika-service/internal/models"
)

// echoProcessor returns a canned result per document, correlated by resource id.
type echoProcessor struct {
	contentType string
	fail        bool
}

func (p *echoProcessor) Name() string { return "stub" }

func (p *echoProcessor) Process(_ context.Context, req *models.ExtractionRequest) *models.ExtractionResult {
	if p.fail {
		return models.FailedResult(req.ResourceID, "Exception caught while processing the document: broken", time.Now())
	}
	ct := p.contentType
	if ct == "" {
		ct = "text/plain"
	}
	return &models.ExtractionResult{
		ResourceID: req.ResourceID,
		Text:       "extracted " + string(req.Content),
		Metadata:   map[string]any{metadata.ContentType: ct},
		Success:    true,
		Timestamp:  time.Now(),
	}
}

func newHandler(t *testing.T, proc *echoProcessor, cfg *config.ServiceConfig) *ProcessHandler {
	t.Helper()
	if cfg == nil {
		cfg = &config.ServiceConfig{
			BatchConsumerCount:    2,
			BatchTimeout:          5 * time.Second,
			BatchReporterInterval: 50 * time.Millisecond,
			BatchStaleThreshold:   2 * time.Second,
		}
	}
	log := zaptest.NewLogger(t)
	engine := batch.NewEngine(cfg, log)
	return NewProcessHandler(proc, engine, cfg, log)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.ServiceResponse {
	t.Helper()
	var resp models.ServiceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Result)
	return resp
}

func TestProcessReturnsExtractedText(t *testing.T) {
	h := newHandler(t, &echoProcessor{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader("hello"))
	rec := httptest.NewRecorder()
	h.Process(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Result.Success)
	assert.Equal(t, "extracted hello", resp.Result.Text)
	assert.Empty(t, resp.Result.Error)
}

func TestProcessEmptyBodyLenientPolicy(t *testing.T) {
	h := newHandler(t, &echoProcessor{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/process", http.NoBody)
	rec := httptest.NewRecorder()
	h.Process(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Result.Success)
	assert.Equal(t, "Empty content", resp.Result.Error)
}

func TestProcessEmptyBodyStrictPolicy(t *testing.T) {
	cfg := &config.ServiceConfig{
		FailOnEmptyFiles:      true,
		BatchConsumerCount:    2,
		BatchTimeout:          5 * time.Second,
		BatchReporterInterval: 50 * time.Millisecond,
		BatchStaleThreshold:   2 * time.Second,
	}
	h := newHandler(t, &echoProcessor{}, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/process", http.NoBody)
	rec := httptest.NewRecorder()
	h.Process(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Result.Success)
	assert.Equal(t, "Empty content", resp.Result.Error)
}

// zeroReader yields an endless stream of zero bytes.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestProcessOversizeBodyRejected(t *testing.T) {
	h := newHandler(t, &echoProcessor{}, nil)

	oversize := io.LimitReader(zeroReader{}, maxUploadSize+1)
	req := httptest.NewRequest(http.MethodPost, "/api/process", oversize)
	rec := httptest.NewRecorder()
	h.Process(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestProcessFailureIsClientError(t *testing.T) {
	h := newHandler(t, &echoProcessor{fail: true}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader("broken doc"))
	rec := httptest.NewRecorder()
	h.Process(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Result.Success)
	assert.Contains(t, resp.Result.Error, "Exception caught while processing the document")
}

func TestProcessNonDocumentTypeStrictMode(t *testing.T) {
	cfg := &config.ServiceConfig{
		FailOnNonDocumentTypes: true,
		BatchConsumerCount:     2,
		BatchTimeout:           5 * time.Second,
		BatchReporterInterval:  50 * time.Millisecond,
		BatchStaleThreshold:    2 * time.Second,
	}
	h := newHandler(t, &echoProcessor{contentType: "application/octet-stream"}, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader("junk"))
	rec := httptest.NewRecorder()
	h.Process(rec, req)

	// The result body still comes back; only the status flags the type.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Result.Success)
}

func TestProcessNonDocumentTypeLenientMode(t *testing.T) {
	h := newHandler(t, &echoProcessor{contentType: "application/octet-stream"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader("junk"))
	rec := httptest.NewRecorder()
	h.Process(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestProcessFile(t *testing.T) {
	h := newHandler(t, &echoProcessor{}, nil)

	body, contentType := multipartBody(t, map[string]string{"report.pdf": "pdf bytes"})
	req := httptest.NewRequest(http.MethodPost, "/api/process_file", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ProcessFile(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Result.Success)
	assert.Equal(t, "report.pdf", resp.Result.ResourceID)
}

func TestProcessFileMissingField(t *testing.T) {
	h := newHandler(t, &echoProcessor{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/process_file", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ProcessFile(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessBulkCorrelatesByFilename(t *testing.T) {
	h := newHandler(t, &echoProcessor{}, nil)

	body, contentType := multipartBody(t, map[string]string{
		"a.pdf": "content a",
		"b.pdf": "content b",
		"c.pdf": "content c",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/process_bulk", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ProcessBulk(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp models.BulkServiceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 3, resp.Consumed)
	assert.False(t, resp.TimedOut)

	seen := make(map[string]bool)
	for _, res := range resp.Results {
		assert.True(t, res.Success)
		seen[res.ResourceID] = true
	}
	assert.True(t, seen["a.pdf"])
	assert.True(t, seen["b.pdf"])
	assert.True(t, seen["c.pdf"])
}

func TestProcessBulkEmptyFileGetsFailedResult(t *testing.T) {
	h := newHandler(t, &echoProcessor{}, nil)

	body, contentType := multipartBody(t, map[string]string{
		"ok.pdf":    "content",
		"empty.pdf": "",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/process_bulk", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ProcessBulk(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp models.BulkServiceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 2)

	byID := make(map[string]*models.ExtractionResult)
	for _, res := range resp.Results {
		byID[res.ResourceID] = res
	}
	require.Contains(t, byID, "empty.pdf")
	assert.False(t, byID["empty.pdf"].Success)
	assert.Equal(t, "Empty content", byID["empty.pdf"].Error)
	assert.True(t, byID["ok.pdf"].Success)
}

func TestProcessBulkNoFiles(t *testing.T) {
	h := newHandler(t, &echoProcessor{}, nil)

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/process_bulk", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ProcessBulk(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Result.Success)
	assert.Equal(t, "Empty content", resp.Result.Error)
}

func TestInfoEchoesConfiguration(t *testing.T) {
	info := models.ServiceInformation{
		AppName:   "tika-service",
		Version:   "1.1.0",
		Processor: "composite",
	}
	h := NewInfoHandler(info)

	req := httptest.NewRequest(http.MethodGet, "/api/info", nil)
	rec := httptest.NewRecorder()
	h.Info(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got models.ServiceInformation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "tika-service", got.AppName)
	assert.Equal(t, "composite", got.Processor)
}

func TestHomePointsAtInfo(t *testing.T) {
	h := NewInfoHandler(models.ServiceInformation{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Home(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/info")
}
