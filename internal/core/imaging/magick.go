// Package imaging drives the external ImageMagick utility that rasterizes
// documents into images for the OCR paths.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CogStack/tika-service/internal/config"
)

// ErrConversionTimeout marks a conversion that exceeded its deadline and was
// forcibly terminated.
var ErrConversionTimeout = errors.New("image conversion timed out")

const drainLimit = 8 << 10 // bytes of subprocess output kept for logging

// MagickConverter shells out to ImageMagick's convert. The invocation follows
// a fixed protocol: spawn, drain stdout/stderr on dedicated goroutines, await
// exit under a hard deadline, and on deadline kill the process and delete the
// partial output file.
type MagickConverter struct {
	bin     string
	timeout time.Duration
	density int
	depth   int
	quality int
	resize  int
	filter  string
	log     *zap.Logger
}

func NewMagickConverter(cfg *config.PipelineConfig, log *zap.Logger) *MagickConverter {
	return &MagickConverter{
		bin:     cfg.ImageMagickBinary,
		timeout: cfg.ConversionTimeout,
		density: cfg.ImageDensity,
		depth:   cfg.ImageDepth,
		quality: cfg.ImageQuality,
		resize:  cfg.ImageResize,
		filter:  cfg.ImageFilter,
		log:     log,
	}
}

// ToImage converts inputPath into a single raster image at outputPath.
// Pages are 1-indexed and inclusive; firstPage=0 selects the whole document.
// On failure the output file is guaranteed to not exist.
func (m *MagickConverter) ToImage(ctx context.Context, inputPath, outputPath string, firstPage, lastPage int) error {
	input := inputPath
	if firstPage > 0 {
		// ImageMagick page selectors are zero-based.
		input = fmt.Sprintf("%s[%d-%d]", inputPath, firstPage-1, lastPage-1)
	}
	args := []string{
		"-density", strconv.Itoa(m.density),
		input,
		"-depth", strconv.Itoa(m.depth),
		"-quality", strconv.Itoa(m.quality),
		"-filter", m.filter,
		"-resize", strconv.Itoa(m.resize) + "%",
		"-background", "white",
		"+matte",
		outputPath,
	}

	cmd := exec.Command(m.bin, args...)
	cmd.Stdin = nil

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("image conversion: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("image conversion: stderr pipe: %w", err)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("image conversion: starting %s: %w", m.bin, err)
	}

	// Drain both pipes so the subprocess cannot block on a full pipe buffer.
	var wg sync.WaitGroup
	var outBuf, errBuf bytes.Buffer
	wg.Add(2)
	go drain(&wg, stdout, &outBuf)
	go drain(&wg, stderr, &errBuf)

	waitCh := make(chan error, 1)
	go func() {
		wg.Wait()
		waitCh <- cmd.Wait()
	}()

	deadline := time.NewTimer(m.timeout)
	defer deadline.Stop()

	select {
	case err := <-waitCh:
		if err != nil {
			m.removeOutput(outputPath)
			return fmt.Errorf("image conversion: %s exited abnormally: %w (stderr: %s)",
				m.bin, err, errBuf.String())
		}
		m.log.Debug("image conversion finished",
			zap.String("input", inputPath),
			zap.Duration("elapsed", time.Since(started)))
		return nil

	case <-deadline.C:
		m.kill(cmd)
		m.awaitExit(waitCh)
		m.removeOutput(outputPath)
		return fmt.Errorf("%w after %s", ErrConversionTimeout, m.timeout)

	case <-ctx.Done():
		m.kill(cmd)
		m.awaitExit(waitCh)
		m.removeOutput(outputPath)
		return fmt.Errorf("image conversion interrupted: %w", ctx.Err())
	}
}

// awaitExit gives a killed process a moment to actually exit, so a dying
// writer cannot recreate the output file after it was removed. Bounded in
// case an orphaned child keeps the pipes open.
func (m *MagickConverter) awaitExit(waitCh <-chan error) {
	grace := time.NewTimer(500 * time.Millisecond)
	defer grace.Stop()
	select {
	case <-waitCh:
	case <-grace.C:
		m.log.Warn("conversion process did not exit promptly after kill")
	}
}

func (m *MagickConverter) kill(cmd *exec.Cmd) {
	if cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil {
			m.log.Warn("failed to kill conversion process", zap.Error(err))
		}
	}
}

func (m *MagickConverter) removeOutput(path string) {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			m.log.Warn("failed to remove partial conversion output",
				zap.String("path", path), zap.Error(err))
		}
	}
}

// drain copies a pipe to completion, keeping a bounded head for diagnostics.
func drain(wg *sync.WaitGroup, r io.Reader, buf *bytes.Buffer) {
	defer wg.Done()
	_, _ = io.Copy(buf, io.LimitReader(r, drainLimit))
	_, _ = io.Copy(io.Discard, r)
}
