package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// OCR strategy modes for the PDF second pass.
const (
	OcrStrategyAuto       = "auto"
	OcrStrategyOcrOnly    = "ocr-only"
	OcrStrategyOcrAndText = "ocr-and-text"
	OcrStrategyNoOcr      = "no-ocr"
)

// PipelineConfig holds all knobs of the single-document extraction pipeline.
// It is loaded once at startup and shared read-only by every worker.
type PipelineConfig struct {
	OcrTimeout        time.Duration `json:"ocr_timeout"`
	OcrLanguage       string        `json:"ocr_language" validate:"required"`
	OcrApplyRotation  bool          `json:"ocr_apply_rotation"`
	ConversionTimeout time.Duration `json:"conversion_timeout"`

	// ImageMagick conversion parameters for the rasterization paths.
	ImageMagickBinary string `json:"image_magick_binary" validate:"required"`
	ImageDensity      int    `json:"image_density" validate:"gt=0"`
	ImageDepth        int    `json:"image_depth" validate:"gt=0"`
	ImageQuality      int    `json:"image_quality" validate:"gt=0"`
	ImageResize       int    `json:"image_resize" validate:"gt=0"`
	ImageFilter       string `json:"image_filter"`

	// OcrStrategy selects when the PDF second pass runs; "auto" decides by the
	// thresholds below, "no-ocr" disables it, the remaining modes force it.
	OcrStrategy string `json:"ocr_strategy" validate:"oneof=auto ocr-only ocr-and-text no-ocr"`
	// PdfOcrOnlyStrategy selects the sub-mode used by "auto": discard embedded
	// text (true) or keep it alongside the recognized text (false).
	PdfOcrOnlyStrategy bool `json:"pdf_ocr_only_strategy"`

	MinTextLength int   `json:"pdf_min_doc_text_length" validate:"gte=0"`
	MinByteSize   int64 `json:"pdf_min_doc_byte_size" validate:"gte=0"`

	UseLegacySinglePageOcr bool `json:"use_legacy_ocr_parser_for_single_page_doc"`

	OutputEncoding  string `json:"output_encoding"`
	EnforceEncoding bool   `json:"enforce_encoding"`

	// HtmlTagHeuristic enables the secondary <html> tag sniff when the media
	// subtype is ambiguous.
	HtmlTagHeuristic bool `json:"classifier_html_tag_heuristic"`
}

// ServiceConfig holds the HTTP and batch-engine settings.
type ServiceConfig struct {
	Port string `json:"port" validate:"required"`

	UseLegacyProcessor bool `json:"use_legacy_processor"`

	BatchConsumerCount     int           `json:"batch_consumer_count" validate:"gt=0"`
	BatchTimeout           time.Duration `json:"batch_timeout"`
	BatchReporterInterval  time.Duration `json:"batch_reporter_interval"`
	BatchStaleThreshold    time.Duration `json:"batch_stale_threshold"`
	FailOnEmptyFiles       bool          `json:"fail_on_empty_files"`
	FailOnNonDocumentTypes bool          `json:"fail_on_non_document_types"`
}

type Config struct {
	Pipeline PipelineConfig `json:"pipeline"`
	Service  ServiceConfig  `json:"service"`
}

// LoadConfig loads the environment variables and returns the validated config.
func LoadConfig() (*Config, error) {

	_ = godotenv.Load()

	cfg := &Config{
		Pipeline: PipelineConfig{
			OcrTimeout:        time.Duration(getEnvInt("OCR_TIMEOUT_SECONDS", 120)) * time.Second,
			OcrLanguage:       getEnv("OCR_LANGUAGE", "eng"),
			OcrApplyRotation:  getEnvBool("OCR_APPLY_ROTATION", false),
			ConversionTimeout: time.Duration(getEnvInt("CONVERSION_TIMEOUT_SECONDS", 300)) * time.Second,

			ImageMagickBinary: getEnv("IMAGE_MAGICK_BINARY", "convert"),
			ImageDensity:      getEnvInt("IMAGE_DENSITY", 300),
			ImageDepth:        getEnvInt("IMAGE_DEPTH", 4),
			ImageQuality:      getEnvInt("IMAGE_QUALITY", 90),
			ImageResize:       getEnvInt("IMAGE_RESIZE", 900),
			ImageFilter:       getEnv("IMAGE_FILTER", "triangle"),

			OcrStrategy:        getEnv("OCR_STRATEGY", OcrStrategyAuto),
			PdfOcrOnlyStrategy: getEnvBool("PDF_OCR_ONLY_STRATEGY", true),

			MinTextLength: getEnvInt("PDF_MIN_DOC_TEXT_LENGTH", 100),
			MinByteSize:   int64(getEnvInt("PDF_MIN_DOC_BYTE_SIZE", 10000)),

			UseLegacySinglePageOcr: getEnvBool("USE_LEGACY_SINGLE_PAGE_OCR", false),

			OutputEncoding:  getEnv("OUTPUT_ENCODING", "UTF-8"),
			EnforceEncoding: getEnvBool("ENFORCE_ENCODING", false),

			HtmlTagHeuristic: getEnvBool("CLASSIFIER_HTML_TAG_HEURISTIC", true),
		},
		Service: ServiceConfig{
			Port: getEnv("PORT", "8090"),

			UseLegacyProcessor: getEnvBool("USE_LEGACY_PROCESSOR", false),

			BatchConsumerCount:     getEnvInt("BATCH_CONSUMER_COUNT", 8),
			BatchTimeout:           time.Duration(getEnvInt("BATCH_TIMEOUT_SECONDS", 600)) * time.Second,
			BatchReporterInterval:  time.Duration(getEnvInt("BATCH_REPORTER_INTERVAL_MS", 500)) * time.Millisecond,
			BatchStaleThreshold:    time.Duration(getEnvInt("BATCH_STALE_THRESHOLD_SECONDS", 120)) * time.Second,
			FailOnEmptyFiles:       getEnvBool("FAIL_ON_EMPTY_FILES", false),
			FailOnNonDocumentTypes: getEnvBool("FAIL_ON_NON_DOCUMENT_TYPES", false),
		},
	}

	validate := validator.New()
	if err := validate.Struct(cfg.Pipeline); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if err := validate.Struct(cfg.Service); err != nil {
		return nil, fmt.Errorf("invalid service config: %w", err)
	}

	return cfg, nil
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}
