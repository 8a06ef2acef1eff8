package processor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CogStack/tika-service/internal/config"
	"github.com/CogStack/tika-service/internal/core"
	"github.com/CogStack/tika-service/internal/core/classifier"
	"github.com/CogStack/tika-service/internal/core/metadata"
	"github.com/CogStack/tika-service/internal/models"
)

// CompositeProcessor is the default single-document pipeline: classify the
// input, run the cheapest extraction path that yields acceptable text, and
// fall back to OCR only when the first PDF pass suggests the document is
// image-only.
type CompositeProcessor struct {
	parser     core.DocumentParser
	converter  core.ImageConverter
	engine     core.OcrEngine
	classifier *classifier.Classifier
	cfg        *config.PipelineConfig
	finish     finisher
	log        *zap.Logger
}

var _ core.DocumentProcessor = (*CompositeProcessor)(nil)

func NewCompositeProcessor(parser core.DocumentParser, converter core.ImageConverter,
	engine core.OcrEngine, cfg *config.PipelineConfig, log *zap.Logger) *CompositeProcessor {

	return &CompositeProcessor{
		parser:     parser,
		converter:  converter,
		engine:     engine,
		classifier: classifier.New(cfg.HtmlTagHeuristic),
		cfg:        cfg,
		finish:     finisher{normalizer: metadata.NewNormalizer(log), cfg: cfg, log: log},
		log:        log,
	}
}

func (p *CompositeProcessor) Name() string { return "composite" }

// Process runs the full pipeline. It never propagates failures: any error or
// panic is captured into a failed result.
func (p *CompositeProcessor) Process(ctx context.Context, req *models.ExtractionRequest) (result *models.ExtractionResult) {
	started := time.Now()
	defer guard(&result, req, started)

	out, err := p.dispatch(ctx, req.Content)
	if err != nil {
		return p.finish.fail(req, err, started)
	}
	return p.finish.succeed(req, out, started)
}

func (p *CompositeProcessor) dispatch(ctx context.Context, content []byte) (*core.ParseOutput, error) {
	switch p.classifier.Classify(content) {
	case classifier.DocPDF:
		return p.processPdf(ctx, content)
	case classifier.DocHTML:
		// The HTML-specialized sub-parser keeps embedded resources consistent.
		return p.parser.Parse(ctx, content, core.ParseOptions{Mode: core.ParseHTML})
	default:
		return p.parser.Parse(ctx, content, core.ParseOptions{
			Mode:          core.ParseAutoDetect,
			MediaTypeHint: p.classifier.MediaType(content),
		})
	}
}

// processPdf runs the text-only first pass and, when warranted, the OCR
// second pass.
func (p *CompositeProcessor) processPdf(ctx context.Context, content []byte) (*core.ParseOutput, error) {
	first, err := p.parser.Parse(ctx, content, core.ParseOptions{Mode: core.ParsePdfTextOnly})
	if err != nil {
		return nil, err
	}

	if !p.needsOcrPass(len(first.Text), int64(len(content))) {
		return first, nil
	}

	p.log.Debug("first pass yielded too little text, applying ocr",
		zap.Int("text_len", len(first.Text)), zap.Int("source_bytes", len(content)))

	// The legacy path rasterizes the whole document in one go; it is only
	// sound for single-page documents.
	if p.cfg.UseLegacySinglePageOcr && parsedPageCount(first) == 1 {
		return wholeDocumentOcr(ctx, content, p.converter, p.engine, 1)
	}

	return p.parser.Parse(ctx, content, core.ParseOptions{Mode: p.ocrMode()})
}

// needsOcrPass decides the second pass. In auto mode the pass triggers when
// the first pass yielded fewer characters than the text threshold while the
// source is large enough to plausibly hold page images; this approximates
// "the document is likely image-only".
func (p *CompositeProcessor) needsOcrPass(textLen int, sourceBytes int64) bool {
	switch p.cfg.OcrStrategy {
	case config.OcrStrategyNoOcr:
		return false
	case config.OcrStrategyOcrOnly, config.OcrStrategyOcrAndText:
		return true
	default:
		return textLen < p.cfg.MinTextLength && sourceBytes >= p.cfg.MinByteSize
	}
}

func (p *CompositeProcessor) ocrMode() core.ParseMode {
	switch p.cfg.OcrStrategy {
	case config.OcrStrategyOcrOnly:
		return core.ParsePdfOcrOnly
	case config.OcrStrategyOcrAndText:
		return core.ParsePdfOcrAndText
	default:
		if p.cfg.PdfOcrOnlyStrategy {
			return core.ParsePdfOcrOnly
		}
		return core.ParsePdfOcrAndText
	}
}
