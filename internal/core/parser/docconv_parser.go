// Package parser adapts the document-parsing capability (docconv plus pdfcpu
// introspection) to the pipeline's DocumentParser contract.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/CogStack/tika-service/internal/core"
	"github.com/CogStack/tika-service/internal/core/metadata"
)

// Parser names recorded in the X-TIKA:Parsed-By chain.
const (
	parserNameDefault = "docconv"
	parserNamePdf     = "docconv/pdf"
	parserNameHTML    = "docconv/html"
	parserNameOcr     = "tesseract"
)

// pageBreak separates per-page OCR output, form feed as in pdftotext.
const pageBreak = "\n\f\n"

// DocconvParser implements core.DocumentParser. It is stateless per call and
// safe to share across workers; OCR and conversion are delegated to the
// injected capabilities.
type DocconvParser struct {
	converter core.ImageConverter
	engine    core.OcrEngine
	log       *zap.Logger
}

func NewDocconvParser(converter core.ImageConverter, engine core.OcrEngine, log *zap.Logger) *DocconvParser {
	return &DocconvParser{converter: converter, engine: engine, log: log}
}

// Parse dispatches on the requested mode. Content must be non-empty.
func (p *DocconvParser) Parse(ctx context.Context, content []byte, opts core.ParseOptions) (*core.ParseOutput, error) {
	switch opts.Mode {
	case core.ParsePdfTextOnly:
		return p.parsePdfText(content)
	case core.ParsePdfOcrOnly, core.ParsePdfOcrAndText:
		return p.parsePdfOcr(ctx, content, opts.Mode == core.ParsePdfOcrAndText)
	case core.ParseHTML:
		return p.parseHTML(content)
	default:
		return p.parseAuto(content, opts.MediaTypeHint)
	}
}

// parsePdfText is the first pass: embedded text only, OCR disabled.
func (p *DocconvParser) parsePdfText(content []byte) (*core.ParseOutput, error) {
	pageCount, err := p.pdfPageCount(content)
	if err != nil {
		return nil, err
	}

	res, err := docconv.Convert(bytes.NewReader(content), "application/pdf", false)
	if err != nil {
		return nil, fmt.Errorf("parsing pdf text: %w", err)
	}

	out := &core.ParseOutput{Text: res.Body}
	out.SetMeta(metadata.ContentType, "application/pdf")
	out.AddMeta(metadata.ParsedBy, parserNamePdf)
	if pageCount > 0 {
		out.SetMeta(metadata.PageCount, strconv.Itoa(pageCount))
	}
	mergeDocconvMeta(out, res.Meta)
	return out, nil
}

// parsePdfOcr is the standard OCR pass: every page is rasterized through the
// external converter and recognized individually. With keepText the embedded
// text is appended after the recognized text.
func (p *DocconvParser) parsePdfOcr(ctx context.Context, content []byte, keepText bool) (*core.ParseOutput, error) {
	pageCount, err := p.pdfPageCount(content)
	if err != nil {
		return nil, err
	}
	if pageCount < 1 {
		pageCount = 1
	}

	workDir, err := os.MkdirTemp("", "tika-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("creating ocr work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	pdfPath := filepath.Join(workDir, "doc.pdf")
	if err := os.WriteFile(pdfPath, content, 0o600); err != nil {
		return nil, fmt.Errorf("staging pdf for ocr: %w", err)
	}

	var sb strings.Builder
	for page := 1; page <= pageCount; page++ {
		imgPath := filepath.Join(workDir, fmt.Sprintf("page-%d.png", page))
		if err := p.converter.ToImage(ctx, pdfPath, imgPath, page, page); err != nil {
			return nil, fmt.Errorf("rasterizing page %d: %w", page, err)
		}
		text, err := p.engine.Recognize(ctx, imgPath)
		if err != nil {
			return nil, fmt.Errorf("recognizing page %d: %w", page, err)
		}
		if sb.Len() > 0 {
			sb.WriteString(pageBreak)
		}
		sb.WriteString(text)
	}

	out := &core.ParseOutput{}
	out.SetMeta(metadata.ContentType, "application/pdf")
	out.SetMeta(metadata.PageCount, strconv.Itoa(pageCount))
	out.SetMeta(metadata.ImageProcessingEnabled, "true")
	out.AddMeta(metadata.ParsedBy, parserNamePdf)
	out.AddMeta(metadata.ParsedBy, parserNameOcr)

	if keepText {
		if res, err := docconv.Convert(bytes.NewReader(content), "application/pdf", false); err == nil {
			if embedded := strings.TrimSpace(res.Body); embedded != "" {
				sb.WriteString(pageBreak)
				sb.WriteString(embedded)
			}
			mergeDocconvMeta(out, res.Meta)
		} else {
			p.log.Warn("embedded text pass failed during ocr-and-text", zap.Error(err))
		}
	}

	out.Text = sb.String()
	return out, nil
}

func (p *DocconvParser) parseHTML(content []byte) (*core.ParseOutput, error) {
	res, err := docconv.Convert(bytes.NewReader(content), "text/html", true)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	out := &core.ParseOutput{Text: res.Body}
	out.SetMeta(metadata.ContentType, "text/html")
	out.AddMeta(metadata.ParsedBy, parserNameHTML)
	mergeDocconvMeta(out, res.Meta)
	return out, nil
}

func (p *DocconvParser) parseAuto(content []byte, hint string) (*core.ParseOutput, error) {
	mediaType := hint
	if mediaType == "" {
		mt := mimetype.Detect(content).String()
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
		mediaType = mt
	}

	res, err := docconv.Convert(bytes.NewReader(content), mediaType, false)
	if err != nil {
		return nil, fmt.Errorf("parsing %s content: %w", mediaType, err)
	}
	out := &core.ParseOutput{Text: res.Body}
	out.SetMeta(metadata.ContentType, mediaType)
	out.AddMeta(metadata.ParsedBy, parserNameDefault)
	mergeDocconvMeta(out, res.Meta)
	return out, nil
}

// pdfPageCount introspects the document with pdfcpu. Encrypted documents are
// rejected with an error whose message contains "encrypted"; downstream
// consumers match on that substring, so the wording is part of the contract.
func (p *DocconvParser) pdfPageCount(content []byte) (int, error) {
	pdfCtx, err := api.ReadContext(bytes.NewReader(content), model.NewDefaultConfiguration())
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "encrypt") || strings.Contains(msg, "password") {
			return 0, fmt.Errorf("document is encrypted: %v", err)
		}
		p.log.Warn("pdf introspection failed, page count unknown", zap.Error(err))
		return 0, nil
	}
	return pdfCtx.PageCount, nil
}

// docconvKeyMap translates docconv/pdfinfo meta names onto the canonical keys.
var docconvKeyMap = map[string]string{
	"Author":       metadata.Creator,
	"Creator":      metadata.Creator,
	"CreationDate": metadata.CreationDate,
	"CreatedDate":  metadata.CreationDate,
	"ModDate":      metadata.ModifiedDate,
	"ModifiedDate": metadata.ModifiedDate,
	"Subject":      metadata.Subject,
	"Keywords":     metadata.Keywords,
	"Description":  metadata.Description,
	"Pages":        metadata.PageCount,
}

// mergeDocconvMeta copies raw docconv metadata, adding canonical spellings
// for the keys the normalizer understands. Existing values win.
func mergeDocconvMeta(out *core.ParseOutput, meta map[string]string) {
	for key, value := range meta {
		if value == "" {
			continue
		}
		if _, exists := out.Metadata[key]; !exists {
			out.SetMeta(key, value)
		}
		if canonical, ok := docconvKeyMap[key]; ok {
			if _, exists := out.Metadata[canonical]; !exists {
				out.SetMeta(canonical, value)
			}
		}
	}
}
