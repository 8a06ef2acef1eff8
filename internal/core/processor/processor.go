// Package processor contains the single-document extraction pipelines.
// Two variants implement the same contract: the composite pipeline with the
// adaptive two-pass OCR decision, and the legacy pipeline that mirrors the
// older whole-document rasterization behavior.
package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/CogStack/tika-service/internal/config"
	"github.com/CogStack/tika-service/internal/core"
	"github.com/CogStack/tika-service/internal/core/metadata"
	"github.com/CogStack/tika-service/internal/core/textenc"
	"github.com/CogStack/tika-service/internal/models"
)

// errPrefix is part of the observable error contract: callers match on the
// message content (e.g. the "encrypted" indicator) rather than on types.
const errPrefix = "Exception caught while processing the document: "

// finisher turns a parse outcome into the terminal ExtractionResult: metadata
// normalization, optional output re-encoding and timing. Shared by both
// pipeline variants.
type finisher struct {
	normalizer *metadata.Normalizer
	cfg        *config.PipelineConfig
	log        *zap.Logger
}

func (f *finisher) succeed(req *models.ExtractionRequest, out *core.ParseOutput, started time.Time) *models.ExtractionResult {
	text := out.Text
	if f.cfg.EnforceEncoding && f.cfg.OutputEncoding != "" {
		encoded, err := textenc.Encode(text, f.cfg.OutputEncoding)
		if err != nil {
			// Recovered locally: fall back to the untranslated text.
			f.log.Warn("output re-encoding failed, keeping raw text",
				zap.String("encoding", f.cfg.OutputEncoding), zap.Error(err))
		} else {
			text = encoded
		}
	}

	return &models.ExtractionResult{
		ResourceID:    req.ResourceID,
		Text:          text,
		Metadata:      f.normalizer.Normalize(out.Metadata),
		Success:       true,
		Timestamp:     time.Now(),
		ElapsedMillis: time.Since(started).Milliseconds(),
	}
}

func (f *finisher) fail(req *models.ExtractionRequest, err error, started time.Time) *models.ExtractionResult {
	f.log.Error("document processing failed",
		zap.String("resource_id", req.ResourceID), zap.Error(err))
	return models.FailedResult(req.ResourceID, errPrefix+err.Error(), started)
}

// guard converts a panic inside a pipeline into a failed result; failures
// never escape a document's own ExtractionResult.
func guard(result **models.ExtractionResult, req *models.ExtractionRequest, started time.Time) {
	if r := recover(); r != nil {
		*result = models.FailedResult(req.ResourceID, fmt.Sprintf("%spanic: %v", errPrefix, r), started)
	}
}

// parsedPageCount reads the page count a previous pass recorded, or 0.
func parsedPageCount(out *core.ParseOutput) int {
	vals := out.Metadata[metadata.PageCount]
	if len(vals) == 0 {
		return 0
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil {
		return 0
	}
	return n
}

// wholeDocumentOcr is the legacy rasterization path: the document is
// converted into one raster image by the external utility and recognized
// with a single OCR call.
func wholeDocumentOcr(ctx context.Context, content []byte, converter core.ImageConverter,
	engine core.OcrEngine, pageCount int) (*core.ParseOutput, error) {

	workDir, err := os.MkdirTemp("", "tika-legacy-*")
	if err != nil {
		return nil, fmt.Errorf("creating legacy ocr work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	docPath := filepath.Join(workDir, "doc.pdf")
	if err := os.WriteFile(docPath, content, 0o600); err != nil {
		return nil, fmt.Errorf("staging document for legacy ocr: %w", err)
	}

	imgPath := filepath.Join(workDir, "doc.tiff")
	if err := converter.ToImage(ctx, docPath, imgPath, 0, 0); err != nil {
		return nil, err
	}

	text, err := engine.Recognize(ctx, imgPath)
	if err != nil {
		return nil, err
	}

	out := &core.ParseOutput{Text: text}
	out.SetMeta(metadata.ContentType, "application/pdf")
	out.SetMeta(metadata.ImageProcessingEnabled, "true")
	out.AddMeta(metadata.ParsedBy, "docconv/pdf")
	out.AddMeta(metadata.ParsedBy, "tesseract")
	if pageCount > 0 {
		out.SetMeta(metadata.PageCount, strconv.Itoa(pageCount))
	}
	return out, nil
}
