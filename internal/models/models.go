package models

import (
	"time"
)

// ExtractionRequest carries one document through the pipeline.
// Content must be non-empty; callers reject empty payloads before building a request.
type ExtractionRequest struct {
	// ResourceID correlates the result in bulk mode (original filename).
	ResourceID string `json:"resource_id,omitempty"`
	Content    []byte `json:"-"`
	// Processor optionally overrides the boot-time pipeline variant
	// ("composite" or "legacy"); empty means use the configured default.
	Processor string `json:"processor,omitempty"`
}

// ExtractionResult is produced exactly once per request and is immutable
// after construction. Success=false implies Error is set and Text is empty;
// Success=true implies Error is empty.
type ExtractionResult struct {
	ResourceID    string         `json:"resource_id,omitempty"`
	Text          string         `json:"text,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	ElapsedMillis int64          `json:"elapsed_ms"`
}

// FailedResult builds a terminal failure result with the invariant fields set.
func FailedResult(resourceID, errMsg string, started time.Time) *ExtractionResult {
	return &ExtractionResult{
		ResourceID:    resourceID,
		Success:       false,
		Error:         errMsg,
		Timestamp:     time.Now(),
		ElapsedMillis: time.Since(started).Milliseconds(),
	}
}

// BatchOutcome aggregates one bulk run. Results may arrive in any order;
// callers correlate by ResourceID. TimedOut marks early termination, with
// Cause naming the trigger (deadline or stalled consumers).
type BatchOutcome struct {
	Results  []*ExtractionResult `json:"results"`
	Consumed int                 `json:"consumed"`
	TimedOut bool                `json:"timed_out"`
	Cause    string              `json:"cause,omitempty"`
}

// ServiceResponse is the envelope returned by the single-document endpoints.
type ServiceResponse struct {
	Result *ExtractionResult `json:"result"`
}

// BulkServiceResponse is the envelope returned by /api/process_bulk.
type BulkServiceResponse struct {
	Results  []*ExtractionResult `json:"results"`
	Consumed int                 `json:"consumed"`
	TimedOut bool                `json:"timed_out"`
	Cause    string              `json:"cause,omitempty"`
}

// ServiceInformation echoes the effective configuration plus build metadata,
// served by /api/info.
type ServiceInformation struct {
	AppName        string `json:"app_name"`
	Version        string `json:"version"`
	Processor      string `json:"processor"`
	PipelineConfig any    `json:"pipeline_config"`
	ServiceConfig  any    `json:"service_config"`
}
