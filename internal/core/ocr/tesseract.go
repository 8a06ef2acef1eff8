// Package ocr binds the optical-recognition capability to tesseract.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"github.com/CogStack/tika-service/internal/config"
)

// ErrOcrTimeout marks a recognition call that exceeded the configured limit.
var ErrOcrTimeout = errors.New("ocr timed out")

// TesseractEngine recognizes text from raster images. A fresh gosseract
// client is built per call: client lifecycle is distinct from per-document
// processing and the handle must never be shared between workers.
type TesseractEngine struct {
	language      string
	applyRotation bool
	timeout       time.Duration
	log           *zap.Logger
}

func NewTesseractEngine(cfg *config.PipelineConfig, log *zap.Logger) *TesseractEngine {
	return &TesseractEngine{
		language:      cfg.OcrLanguage,
		applyRotation: cfg.OcrApplyRotation,
		timeout:       cfg.OcrTimeout,
		log:           log,
	}
}

// Recognize runs OCR over one image file, bounded by the OCR timeout.
func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	ch := make(chan outcome, 1)

	started := time.Now()
	go func() {
		client := gosseract.NewClient()
		defer client.Close()

		if err := client.SetLanguage(e.language); err != nil {
			ch <- outcome{err: fmt.Errorf("ocr: setting language %q: %w", e.language, err)}
			return
		}
		if e.applyRotation {
			// Orientation detection compensates for scanned pages stored sideways.
			if err := client.SetPageSegMode(gosseract.PSM_AUTO_OSD); err != nil {
				ch <- outcome{err: fmt.Errorf("ocr: enabling orientation detection: %w", err)}
				return
			}
		}
		if err := client.SetImage(imagePath); err != nil {
			ch <- outcome{err: fmt.Errorf("ocr: loading image: %w", err)}
			return
		}
		text, err := client.Text()
		if err != nil {
			err = fmt.Errorf("ocr: recognition failed: %w", err)
		}
		ch <- outcome{text: text, err: err}
	}()

	deadline := time.NewTimer(e.timeout)
	defer deadline.Stop()

	select {
	case out := <-ch:
		if out.err == nil {
			e.log.Debug("ocr finished",
				zap.String("image", imagePath),
				zap.Duration("elapsed", time.Since(started)))
		}
		return out.text, out.err
	case <-deadline.C:
		return "", fmt.Errorf("%w after %s", ErrOcrTimeout, e.timeout)
	case <-ctx.Done():
		return "", fmt.Errorf("ocr interrupted: %w", ctx.Err())
	}
}
