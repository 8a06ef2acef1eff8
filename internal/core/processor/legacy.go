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

// LegacyProcessor reproduces the older pipeline behavior: auto-detected
// parsing for everything, and for PDFs under the text threshold a single
// whole-document rasterization followed by one OCR call.
type LegacyProcessor struct {
	parser     core.DocumentParser
	converter  core.ImageConverter
	engine     core.OcrEngine
	classifier *classifier.Classifier
	cfg        *config.PipelineConfig
	finish     finisher
	log        *zap.Logger
}

var _ core.DocumentProcessor = (*LegacyProcessor)(nil)

func NewLegacyProcessor(parser core.DocumentParser, converter core.ImageConverter,
	engine core.OcrEngine, cfg *config.PipelineConfig, log *zap.Logger) *LegacyProcessor {

	return &LegacyProcessor{
		parser:     parser,
		converter:  converter,
		engine:     engine,
		classifier: classifier.New(cfg.HtmlTagHeuristic),
		cfg:        cfg,
		finish:     finisher{normalizer: metadata.NewNormalizer(log), cfg: cfg, log: log},
		log:        log,
	}
}

func (p *LegacyProcessor) Name() string { return "legacy" }

func (p *LegacyProcessor) Process(ctx context.Context, req *models.ExtractionRequest) (result *models.ExtractionResult) {
	started := time.Now()
	defer guard(&result, req, started)

	out, err := p.dispatch(ctx, req.Content)
	if err != nil {
		return p.finish.fail(req, err, started)
	}
	return p.finish.succeed(req, out, started)
}

func (p *LegacyProcessor) dispatch(ctx context.Context, content []byte) (*core.ParseOutput, error) {
	if p.classifier.Classify(content) != classifier.DocPDF {
		return p.parser.Parse(ctx, content, core.ParseOptions{
			Mode:          core.ParseAutoDetect,
			MediaTypeHint: p.classifier.MediaType(content),
		})
	}

	first, err := p.parser.Parse(ctx, content, core.ParseOptions{Mode: core.ParsePdfTextOnly})
	if err != nil {
		return nil, err
	}
	if p.cfg.OcrStrategy == config.OcrStrategyNoOcr || len(first.Text) >= p.cfg.MinTextLength {
		return first, nil
	}

	p.log.Debug("legacy pipeline applying whole-document ocr",
		zap.Int("text_len", len(first.Text)))

	pages := parsedPageCount(first)
	if pages < 1 {
		// Introspection may have failed; a rasterizable document has at
		// least one page.
		pages = 1
	}
	return wholeDocumentOcr(ctx, content, p.converter, p.engine, pages)
}
