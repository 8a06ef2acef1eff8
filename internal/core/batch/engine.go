// Package batch applies the single-document pipeline to many documents under
// a bounded worker pool with an overall time budget. The roles mirror a
// crawler producing work, a fixed consumer pool, and a status reporter that
// detects stalled consumers.
package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CogStack/tika-service/internal/config"
	"github.com/CogStack/tika-service/internal/core"
	"github.com/CogStack/tika-service/internal/models"
)

const (
	causeDeadline = "batch deadline exceeded"
	causeStalled  = "consumer pool stalled"
)

// Engine coordinates one bulk run. It is stateless across runs and safe for
// concurrent use.
type Engine struct {
	consumers        int
	deadline         time.Duration
	reporterInterval time.Duration
	staleThreshold   time.Duration
	log              *zap.Logger
}

func NewEngine(cfg *config.ServiceConfig, log *zap.Logger) *Engine {
	return &Engine{
		consumers:        cfg.BatchConsumerCount,
		deadline:         cfg.BatchTimeout,
		reporterInterval: cfg.BatchReporterInterval,
		staleThreshold:   cfg.BatchStaleThreshold,
		log:              log,
	}
}

// consumerState carries the liveness signals the status reporter polls.
type consumerState struct {
	processed  atomic.Int64
	lastActive atomic.Int64 // unix nanos
	finished   atomic.Bool
}

func (s *consumerState) touch() { s.lastActive.Store(time.Now().UnixNano()) }

// Run processes every request through proc. Results arrive in completion
// order; callers correlate by ResourceID. Per-document failures never abort
// the batch; only the deadline or the stalled-consumer heuristic terminate
// it early, reported through the outcome.
func (e *Engine) Run(ctx context.Context, requests []*models.ExtractionRequest, proc core.DocumentProcessor) *models.BatchOutcome {
	outcome := &models.BatchOutcome{}
	if len(requests) == 0 {
		return outcome
	}

	// Correlates every log line of one run across the concurrent roles.
	runLog := e.log.With(zap.String("batch_id", uuid.NewString()))

	workers := e.consumers
	if len(requests) < workers {
		workers = len(requests)
	}
	runLog.Info("batch started",
		zap.Int("requests", len(requests)), zap.Int("consumers", workers))

	runCtx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	// The queue holds pending requests plus one termination sentinel per
	// consumer; bounded so the crawler applies backpressure, not buffering.
	queue := make(chan *models.ExtractionRequest, 2*workers)
	results := make(chan *models.ExtractionResult, len(requests))

	states := make([]*consumerState, workers)
	for i := range states {
		states[i] = &consumerState{}
		states[i].touch()
	}

	var stallCause atomic.Value

	g, gctx := errgroup.WithContext(runCtx)

	// Crawler: enqueue every request once, then poison each consumer.
	// Producing is fire-and-forget; shutdown aborts it without draining.
	g.Go(func() error {
		defer close(queue)
		for _, req := range requests {
			select {
			case queue <- req:
			case <-gctx.Done():
				return nil
			}
		}
		for i := 0; i < workers; i++ {
			select {
			case queue <- nil:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	// Status reporter: when stale consumers outnumber active ones, shut the
	// whole engine down. Majority-based heuristic, not a strict quorum.
	reporterStop := make(chan struct{})
	g.Go(func() error {
		ticker := time.NewTicker(e.reporterInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stale, finished := e.poll(states)
				active := workers - finished - stale
				if stale > active {
					runLog.Warn("stale consumers outnumber active ones, terminating batch",
						zap.Int("stale", stale), zap.Int("active", active))
					stallCause.Store(causeStalled)
					cancel()
					return nil
				}
			case <-reporterStop:
				return nil
			case <-gctx.Done():
				return nil
			}
		}
	})

	// Consumer pool.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		state := states[i]
		go func(id int) {
			defer wg.Done()
			defer state.finished.Store(true)
			for {
				select {
				case <-gctx.Done():
					return
				case req := <-queue:
					if req == nil {
						return
					}
					res := proc.Process(gctx, req)
					state.processed.Add(1)
					state.touch()
					results <- res
				}
			}
		}(i)
	}

	// Consumers that honor cancellation exit promptly, but a consumer stuck
	// inside a parser that takes no context cannot be interrupted. Waiting on
	// the pool unconditionally would let one hung document override the batch
	// deadline, so on shutdown the hung consumers are abandoned instead.
	// Their late sends never block: results is buffered to len(requests).
	poolDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(poolDone)
	}()

	select {
	case <-poolDone:
	case <-runCtx.Done():
		// Grace window for consumers that are mid-exit.
		grace := time.NewTimer(e.reporterInterval)
		select {
		case <-poolDone:
		case <-grace.C:
			runLog.Warn("abandoning consumers that did not stop after cancellation")
		}
		grace.Stop()
	}

	close(reporterStop)
	_ = g.Wait()

	// Abandoned consumers may still send later, so results stays open and is
	// drained non-blocking.
collect:
	for {
		select {
		case res := <-results:
			outcome.Results = append(outcome.Results, res)
		default:
			break collect
		}
	}
	for _, s := range states {
		outcome.Consumed += int(s.processed.Load())
	}

	if cause, ok := stallCause.Load().(string); ok {
		outcome.TimedOut = true
		outcome.Cause = cause
	} else if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		outcome.TimedOut = true
		outcome.Cause = causeDeadline
	}

	runLog.Info("batch finished",
		zap.Int("consumed", outcome.Consumed),
		zap.Bool("timed_out", outcome.TimedOut))
	return outcome
}

// poll counts stale and finished consumers. A consumer is stale when it
// reported no progress across the threshold window and has not finished.
func (e *Engine) poll(states []*consumerState) (stale, finished int) {
	now := time.Now().UnixNano()
	for _, s := range states {
		if s.finished.Load() {
			finished++
			continue
		}
		if now-s.lastActive.Load() > int64(e.staleThreshold) {
			stale++
		}
	}
	return stale, finished
}
