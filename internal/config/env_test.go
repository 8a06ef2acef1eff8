package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Service.Port)
	assert.Equal(t, 8, cfg.Service.BatchConsumerCount)
	assert.Equal(t, 10*time.Minute, cfg.Service.BatchTimeout)
	assert.False(t, cfg.Service.UseLegacyProcessor)

	assert.Equal(t, OcrStrategyAuto, cfg.Pipeline.OcrStrategy)
	assert.Equal(t, "eng", cfg.Pipeline.OcrLanguage)
	assert.Equal(t, 100, cfg.Pipeline.MinTextLength)
	assert.Equal(t, int64(10000), cfg.Pipeline.MinByteSize)
	assert.Equal(t, 300, cfg.Pipeline.ImageDensity)
	assert.True(t, cfg.Pipeline.PdfOcrOnlyStrategy)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("OCR_STRATEGY", OcrStrategyNoOcr)
	t.Setenv("PDF_MIN_DOC_TEXT_LENGTH", "250")
	t.Setenv("USE_LEGACY_PROCESSOR", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Service.Port)
	assert.Equal(t, OcrStrategyNoOcr, cfg.Pipeline.OcrStrategy)
	assert.Equal(t, 250, cfg.Pipeline.MinTextLength)
	assert.True(t, cfg.Service.UseLegacyProcessor)
}

func TestLoadConfigRejectsUnknownStrategy(t *testing.T) {
	t.Setenv("OCR_STRATEGY", "sometimes")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigMalformedValuesFallBack(t *testing.T) {
	t.Setenv("BATCH_CONSUMER_COUNT", "many")
	t.Setenv("FAIL_ON_EMPTY_FILES", "yep")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Service.BatchConsumerCount)
	assert.False(t, cfg.Service.FailOnEmptyFiles)
}
