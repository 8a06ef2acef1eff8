package processor

import (
	"context"

	"github.com/CogStack/tika-service/internal/core"
	"github.com/CogStack/tika-service/internal/models"
)

// Dispatcher routes each request to a pipeline variant: the request's
// declared variant when present, the boot-time default otherwise.
type Dispatcher struct {
	fallback core.DocumentProcessor
	variants map[string]core.DocumentProcessor
}

var _ core.DocumentProcessor = (*Dispatcher)(nil)

func NewDispatcher(fallback core.DocumentProcessor, variants ...core.DocumentProcessor) *Dispatcher {
	d := &Dispatcher{
		fallback: fallback,
		variants: make(map[string]core.DocumentProcessor, len(variants)+1),
	}
	d.variants[fallback.Name()] = fallback
	for _, v := range variants {
		d.variants[v.Name()] = v
	}
	return d
}

func (d *Dispatcher) Name() string { return d.fallback.Name() }

func (d *Dispatcher) Process(ctx context.Context, req *models.ExtractionRequest) *models.ExtractionResult {
	if p, ok := d.variants[req.Processor]; ok {
		return p.Process(ctx, req)
	}
	return d.fallback.Process(ctx, req)
}
