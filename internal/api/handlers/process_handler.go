package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/CogStack/tika-service/internal/config"
	"github.com/CogStack/tika-service/internal/core"
	"github.com/CogStack/tika-service/internal/core/batch"
	"github.com/CogStack/tika-service/internal/core/metadata"
	"github.com/CogStack/tika-service/internal/models"
)

const (
	maxUploadSize   = 100 << 20 // 100 MB
	emptyContentMsg = "Empty content"
)

var errContentTooLarge = errors.New("content exceeds the maximum upload size")

// readLimited reads at most maxUploadSize bytes. Oversize content is rejected
// rather than truncated; a silently truncated document would parse as a
// corrupted success.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxUploadSize {
		return nil, errContentTooLarge
	}
	return data, nil
}

// ProcessHandler serves the document processing endpoints.
type ProcessHandler struct {
	processor core.DocumentProcessor
	engine    *batch.Engine
	cfg       *config.ServiceConfig
	log       *zap.Logger
}

func NewProcessHandler(processor core.DocumentProcessor, engine *batch.Engine,
	cfg *config.ServiceConfig, log *zap.Logger) *ProcessHandler {
	return &ProcessHandler{processor: processor, engine: engine, cfg: cfg, log: log}
}

// Process handles raw document bytes sent as the request body.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	body, err := readLimited(r.Body)
	if errors.Is(err, errContentTooLarge) {
		http.Error(w, errContentTooLarge.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		h.log.Error("reading request body failed", zap.Error(err))
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return
	}

	if len(body) == 0 {
		h.writeEmptyContent(w)
		return
	}

	result := h.processor.Process(r.Context(), &models.ExtractionRequest{Content: body})
	h.writeProcessed(w, result)
}

// ProcessFile handles a single document sent as multipart field "file".
func (h *ProcessHandler) ProcessFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := readLimited(file)
	if errors.Is(err, errContentTooLarge) {
		http.Error(w, errContentTooLarge.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		h.log.Error("reading multipart file failed", zap.Error(err))
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	if len(content) == 0 {
		h.writeEmptyContent(w)
		return
	}

	result := h.processor.Process(r.Context(), &models.ExtractionRequest{
		ResourceID: filepath.Base(header.Filename),
		Content:    content,
	})
	h.writeProcessed(w, result)
}

// ProcessBulk handles repeated multipart "file" fields through the batch
// engine. Results are correlated by original filename.
func (h *ProcessHandler) ProcessBulk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		h.writeEmptyContent(w)
		return
	}

	h.log.Info("bulk processing request", zap.Int("files", len(files)))

	started := time.Now()
	requests := make([]*models.ExtractionRequest, 0, len(files))
	prefailed := make([]*models.ExtractionResult, 0)
	for _, header := range files {
		name := filepath.Base(header.Filename)
		content, err := readMultipartFile(header)
		if err != nil {
			h.log.Error("reading bulk file failed", zap.String("file", name), zap.Error(err))
			prefailed = append(prefailed, models.FailedResult(name, "failed to read file: "+err.Error(), started))
			continue
		}
		if len(content) == 0 {
			prefailed = append(prefailed, models.FailedResult(name, emptyContentMsg, started))
			continue
		}
		requests = append(requests, &models.ExtractionRequest{ResourceID: name, Content: content})
	}

	outcome := h.engine.Run(r.Context(), requests, h.processor)

	writeJSON(w, http.StatusOK, models.BulkServiceResponse{
		Results:  append(outcome.Results, prefailed...),
		Consumed: outcome.Consumed,
		TimedOut: outcome.TimedOut,
		Cause:    outcome.Cause,
	})
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

// writeEmptyContent applies the empty-input policy: a client error when the
// service is configured to fail on empty files, otherwise a successful
// response carrying a failed result.
func (h *ProcessHandler) writeEmptyContent(w http.ResponseWriter) {
	status := http.StatusOK
	if h.cfg.FailOnEmptyFiles {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, models.ServiceResponse{
		Result: models.FailedResult("", emptyContentMsg, time.Now()),
	})
}

// writeProcessed picks the response status from the result: processing
// failures and, under strict mode, non-document content types are client
// errors; everything else is OK. The result body is always returned.
func (h *ProcessHandler) writeProcessed(w http.ResponseWriter, result *models.ExtractionResult) {
	status := http.StatusOK
	if result.Success {
		if h.cfg.FailOnNonDocumentTypes && !metadata.IsValidDocumentType(result.Metadata) {
			status = http.StatusBadRequest
		}
	} else {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, models.ServiceResponse{Result: result})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
