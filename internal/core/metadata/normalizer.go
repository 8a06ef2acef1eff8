package metadata

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// singleValueKeys are copied verbatim into the result when present.
var singleValueKeys = []string{
	ContentType, CreationDate, LastModified, LastSavedDate, Author, Category,
	Keywords, ApplicationName, ContentEncoding, WordCount, CharacterCount,
	MimeTypeTag, ModifiedDate, Company, Comments, Creator, Identifier,
	Subject, Description,
}

// multiValueKeys are copied as ordered sequences.
var multiValueKeys = []string{ParsedBy}

// pageCountKeys are the known alternate spellings, probed in priority order.
var pageCountKeys = []string{"xmpTPg:NPages", "meta:page-count", "exif:PageCount", PageCount}

// Normalizer canonicalizes the heterogeneous metadata emitted by the parsing
// capability into the stable result schema.
type Normalizer struct {
	log *zap.Logger
}

func NewNormalizer(log *zap.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Normalize harmonizes a raw metadata multimap. Absent keys are omitted,
// never set to null. Page count and the OCR-applied flag are derived fields.
func (n *Normalizer) Normalize(raw map[string][]string) map[string]any {
	out := make(map[string]any)

	for _, key := range singleValueKeys {
		if vals, ok := raw[key]; ok && len(vals) > 0 {
			out[key] = vals[0]
		}
	}

	for _, key := range multiValueKeys {
		if vals, ok := raw[key]; ok && len(vals) > 0 {
			out[key] = append([]string(nil), vals...)
		}
	}

	n.extractPageCount(raw, out)
	extractOcrApplied(raw, out)

	return out
}

// extractPageCount probes the alternate key spellings in priority order and
// parses the first hit. A malformed value is logged and omitted; it never
// fails the extraction.
func (n *Normalizer) extractPageCount(raw map[string][]string, out map[string]any) {
	for _, key := range pageCountKeys {
		vals, ok := raw[key]
		if !ok || len(vals) == 0 {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(vals[0]))
		if err != nil {
			n.log.Warn("cannot parse page count from metadata",
				zap.String("key", key), zap.String("value", vals[0]))
			return
		}
		out[PageCount] = count
		return
	}
}

// extractOcrApplied reports whether OCR was applied. This is a policy signal:
// the parse path sets Image-Processing-Enabled when it ran with OCR, but raw
// text content never needs OCR regardless of that flag.
func extractOcrApplied(raw map[string][]string, out map[string]any) {
	enabled := len(raw[ImageProcessingEnabled]) > 0 && raw[ImageProcessingEnabled][0] == "true"
	if enabled {
		for _, ct := range raw[ContentType] {
			if strings.HasPrefix(ct, "text/") {
				enabled = false
				break
			}
		}
	}
	out[OcrApplied] = enabled
}

// IsValidDocumentType reports whether the normalized metadata describes an
// actual document: a content type must be present and must not be the
// octet-stream or empty placeholder. Used by the HTTP boundary to pick the
// response status under strict mode, not by the pipeline itself.
func IsValidDocumentType(meta map[string]any) bool {
	ct, ok := meta[ContentType].(string)
	if !ok || ct == "" {
		return false
	}
	return ct != "application/octet-stream" && ct != "application/x-empty"
}
