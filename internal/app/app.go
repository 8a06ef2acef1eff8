package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/CogStack/tika-service/internal/config"
	"github.com/CogStack/tika-service/internal/core"
	"github.com/CogStack/tika-service/internal/core/batch"
	"github.com/CogStack/tika-service/internal/core/imaging"
	"github.com/CogStack/tika-service/internal/core/ocr"
	"github.com/CogStack/tika-service/internal/core/parser"
	"github.com/CogStack/tika-service/internal/core/processor"
	"github.com/CogStack/tika-service/internal/models"
)

const (
	appName    = "tika-service"
	appVersion = "1.1.0"
)

// App holds the wired components for one process lifetime.
type App struct {
	Processor core.DocumentProcessor
	Engine    *batch.Engine
	Server    *Server
	Log       *zap.Logger
}

// NewApp builds every capability and pipeline from the immutable config.
// All components are shared read-only across workers; nothing is mutated
// after this returns.
func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	converter := imaging.NewMagickConverter(&cfg.Pipeline, log)
	engine := ocr.NewTesseractEngine(&cfg.Pipeline, log)
	docParser := parser.NewDocconvParser(converter, engine, log)

	composite := processor.NewCompositeProcessor(docParser, converter, engine, &cfg.Pipeline, log)
	legacy := processor.NewLegacyProcessor(docParser, converter, engine, &cfg.Pipeline, log)

	var defaultProc core.DocumentProcessor = composite
	if cfg.Service.UseLegacyProcessor {
		defaultProc = legacy
	}
	dispatcher := processor.NewDispatcher(defaultProc, composite, legacy)
	log.Info("document processor selected", zap.String("processor", defaultProc.Name()))

	batchEngine := batch.NewEngine(&cfg.Service, log)

	info := models.ServiceInformation{
		AppName:        appName,
		Version:        appVersion,
		Processor:      defaultProc.Name(),
		PipelineConfig: cfg.Pipeline,
		ServiceConfig:  cfg.Service,
	}

	server, err := NewServer(cfg, dispatcher, batchEngine, info, log)
	if err != nil {
		return nil, fmt.Errorf("building http server: %w", err)
	}

	return &App{
		Processor: dispatcher,
		Engine:    batchEngine,
		Server:    server,
		Log:       log,
	}, nil
}
