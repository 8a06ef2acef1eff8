package core

import (
	"context"

	"github.com/CogStack/tika-service/internal/models"
)

// ParseMode selects how the document-parsing capability treats the input.
type ParseMode int

const (
	// ParseAutoDetect parses by sniffed media type with OCR disabled.
	ParseAutoDetect ParseMode = iota
	// ParsePdfTextOnly extracts embedded PDF text only (first pass).
	ParsePdfTextOnly
	// ParsePdfOcrOnly rasterizes PDF pages and keeps recognized text only.
	ParsePdfOcrOnly
	// ParsePdfOcrAndText combines recognized text with the embedded text.
	ParsePdfOcrAndText
	// ParseHTML uses the HTML-specialized sub-parser.
	ParseHTML
)

// ParseOptions configures one Parse call.
type ParseOptions struct {
	Mode ParseMode
	// MediaTypeHint is the sniffed or declared media type, when known.
	MediaTypeHint string
}

// ParseOutput is what the parsing capability returns: extracted text plus a
// flat multimap of format-specific metadata.
type ParseOutput struct {
	Text     string
	Metadata map[string][]string
}

// AddMeta appends a metadata value, keeping insertion order per key.
func (o *ParseOutput) AddMeta(key, value string) {
	if o.Metadata == nil {
		o.Metadata = make(map[string][]string)
	}
	o.Metadata[key] = append(o.Metadata[key], value)
}

// SetMeta replaces a metadata key with a single value.
func (o *ParseOutput) SetMeta(key, value string) {
	if o.Metadata == nil {
		o.Metadata = make(map[string][]string)
	}
	o.Metadata[key] = []string{value}
}

// DocumentParser is the document-parsing capability: bytes plus a mode in,
// text plus raw metadata out. Implementations must be safe for concurrent use.
type DocumentParser interface {
	Parse(ctx context.Context, content []byte, opts ParseOptions) (*ParseOutput, error)
}

// OcrEngine is the optical-recognition capability: one raster image in,
// recognized text out.
type OcrEngine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// ImageConverter rasterizes a document into a single image file, bounded by
// the configured conversion timeout. Pages are 1-indexed and inclusive;
// firstPage=0 means the whole document. The output file must not exist after
// a failed conversion.
type ImageConverter interface {
	ToImage(ctx context.Context, inputPath, outputPath string, firstPage, lastPage int) error
}

// DocumentProcessor runs the full single-document pipeline. It never returns
// an error: all failures are captured into the result.
type DocumentProcessor interface {
	Process(ctx context.Context, req *models.ExtractionRequest) *models.ExtractionResult
	// Name identifies the pipeline variant ("composite" or "legacy").
	Name() string
}
