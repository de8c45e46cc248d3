package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumikids/radiogen-backend/internal/platform/logger"
	"github.com/lumikids/radiogen-backend/internal/program"
)

// Output encoding of the published track.
const (
	outputSampleRate = 44100
	outputChannels   = 2
	outputBitrate    = "128k"
)

// MixingService wraps the external audio tool (ffmpeg). It is synchronous
// and should be called from the generation job, not request handlers.
type MixingService interface {
	AssertReady(ctx context.Context) error

	// SynthesizeSilence writes a silent clip of the given duration, used when
	// an optional system asset cannot be fetched.
	SynthesizeSilence(ctx context.Context, seconds float64, outPath string) (string, error)

	// ConcatWithBackground concatenates the answer clips in order, loops the
	// background under them and mixes the two. The answers govern the
	// combined duration; the background is looped/truncated to match.
	ConcatWithBackground(ctx context.Context, answerPaths []string, backgroundPath string, outPath string) (string, error)

	// AssembleFinal concatenates the rendered top-level segments, in plan
	// order, into the publishable track.
	AssembleFinal(ctx context.Context, segmentPaths []string, outPath string) (string, error)
}

type mixingService struct {
	log            *logger.Logger
	ffmpegPath     string
	defaultTimeout time.Duration
}

func NewMixingService(log *logger.Logger, ffmpegPath string) MixingService {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	return &mixingService{
		log:            log.With("service", "MixingService"),
		ffmpegPath:     ffmpegPath,
		defaultTimeout: 10 * time.Minute,
	}
}

func (m *mixingService) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(m.ffmpegPath); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", m.ffmpegPath, err)
	}
	return nil
}

func (m *mixingService) SynthesizeSilence(ctx context.Context, seconds float64, outPath string) (string, error) {
	if seconds <= 0 {
		return "", fmt.Errorf("silence duration must be positive, got %v", seconds)
	}
	return m.run(ctx, "synthesize_silence", silenceArgs(seconds, outPath), outPath)
}

func (m *mixingService) ConcatWithBackground(ctx context.Context, answerPaths []string, backgroundPath string, outPath string) (string, error) {
	if len(answerPaths) == 0 {
		return "", fmt.Errorf("concat requires at least one answer clip")
	}
	if backgroundPath == "" {
		return "", fmt.Errorf("backgroundPath required")
	}
	return m.run(ctx, "concat_with_background", concatWithBackgroundArgs(answerPaths, backgroundPath, outPath), outPath)
}

func (m *mixingService) AssembleFinal(ctx context.Context, segmentPaths []string, outPath string) (string, error) {
	if len(segmentPaths) == 0 {
		return "", fmt.Errorf("assemble requires at least one segment")
	}
	return m.run(ctx, "assemble_final", assembleFinalArgs(segmentPaths, outPath), outPath)
}

func (m *mixingService) run(ctx context.Context, op string, args []string, outPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir for %s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", &program.MixError{Op: op, Output: string(out), Err: err}
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", &program.MixError{Op: op, Output: string(out), Err: fmt.Errorf("output missing at %s", filepath.Base(outPath))}
	}
	m.log.Debug("ffmpeg op finished", "op", op, "duration_ms", time.Since(start).Milliseconds())
	return outPath, nil
}

// ---------- argument builders ----------
//
// Kept as pure functions so the filter graphs are testable without invoking
// ffmpeg.

func silenceArgs(seconds float64, outPath string) []string {
	return []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", outputSampleRate),
		"-t", fmt.Sprintf("%.3f", seconds),
		"-codec:a", "libmp3lame",
		"-b:a", outputBitrate,
		outPath,
	}
}

func concatWithBackgroundArgs(answerPaths []string, backgroundPath string, outPath string) []string {
	args := []string{"-y"}
	for _, p := range answerPaths {
		args = append(args, "-i", p)
	}
	// Background goes last, looped indefinitely; amix duration=first lets
	// the concatenated answers set the mix boundary.
	args = append(args, "-stream_loop", "-1", "-i", backgroundPath)

	n := len(answerPaths)
	var filter strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&filter, "[%d:a]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=0:a=1[answers];", n)
	fmt.Fprintf(&filter, "[answers][%d:a]amix=inputs=2:duration=first:dropout_transition=0[mix]", n)

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[mix]",
		"-ar", fmt.Sprintf("%d", outputSampleRate),
		"-ac", fmt.Sprintf("%d", outputChannels),
		"-codec:a", "libmp3lame",
		"-b:a", outputBitrate,
		outPath,
	)
	return args
}

func assembleFinalArgs(segmentPaths []string, outPath string) []string {
	args := []string{"-y"}
	for _, p := range segmentPaths {
		args = append(args, "-i", p)
	}
	n := len(segmentPaths)
	var filter strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&filter, "[%d:a]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=0:a=1[out]", n)

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[out]",
		"-ar", fmt.Sprintf("%d", outputSampleRate),
		"-ac", fmt.Sprintf("%d", outputChannels),
		"-codec:a", "libmp3lame",
		"-b:a", outputBitrate,
		outPath,
	)
	return args
}
