// Package splice physically re-assembles a recording from the transcript
// segments that survived quality judgment.
package splice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/stillwave/recut/internal/subtitle"
	"github.com/stillwave/recut/pkg/logger"
)

// ErrNoSegmentsKept is returned when the deletion set covers every
// segment. It is fatal for the run; no output file is written.
var ErrNoSegmentsKept = errors.New("no segments kept after deletion")

// Crossfades are capped at a few milliseconds, just enough to mask clicks
// at splice boundaries without audibly blending content.
const maxCrossfadeMs = 5

// ExportResult summarizes a completed splice
type ExportResult struct {
	KeptCount          int `json:"kept_count"`
	OriginalDurationMs int `json:"original_duration_ms"`
	FinalDurationMs    int `json:"final_duration_ms"`
}

// Splicer extracts kept segments from a source recording and concatenates
// them with micro-crossfades, decoding and encoding through ffmpeg pipes.
type Splicer struct {
	ffmpegPath string
	sampleRate int
	channels   int
	logger     *logger.Logger
}

// Config contains configuration for the audio splicer
type Config struct {
	FFmpegPath string
	SampleRate int
	Channels   int
}

// NewSplicer creates a new audio splicer
func NewSplicer(config Config, log *logger.Logger) *Splicer {
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 44100
	}
	if config.Channels <= 0 {
		config.Channels = 2
	}
	return &Splicer{
		ffmpegPath: config.FFmpegPath,
		sampleRate: config.SampleRate,
		channels:   config.Channels,
		logger:     log.Named("splicer"),
	}
}

// Splice keeps the segments whose index is not in deletions, concatenates
// their audio ranges in order, and exports to outputPath in the given
// format. The source audio is never mutated. Deletion indices that do not
// reference a current segment are silently ignored.
func (s *Splicer) Splice(ctx context.Context, audioPath string, segments []subtitle.Segment, deletions map[int]struct{}, outputPath, format string) (*ExportResult, error) {
	kept := KeepList(segments, deletions)
	if len(kept) == 0 {
		return nil, ErrNoSegmentsKept
	}

	s.logger.Info("Splicing audio",
		logger.String("source", audioPath),
		logger.Int("segments", len(segments)),
		logger.Int("kept", len(kept)))

	source, err := s.decode(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode source audio: %w", err)
	}

	final := Assemble(source, kept)

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := s.encode(ctx, final, outputPath, format); err != nil {
		return nil, fmt.Errorf("failed to export audio: %w", err)
	}

	result := &ExportResult{
		KeptCount:          len(kept),
		OriginalDurationMs: source.DurationMs(),
		FinalDurationMs:    final.DurationMs(),
	}

	s.logger.Info("Splice complete",
		logger.String("output", outputPath),
		logger.Int("original_ms", result.OriginalDurationMs),
		logger.Int("final_ms", result.FinalDurationMs))

	return result, nil
}

// KeepList filters segments down to those not flagged for deletion,
// preserving order.
func KeepList(segments []subtitle.Segment, deletions map[int]struct{}) []subtitle.Segment {
	kept := make([]subtitle.Segment, 0, len(segments))
	for _, seg := range segments {
		if _, deleted := deletions[seg.Index]; !deleted {
			kept = append(kept, seg)
		}
	}
	return kept
}

// Assemble extracts each kept segment's [StartMs, EndMs) range from the
// source and concatenates them. Each joint gets a crossfade of
// min(5ms, extracted duration / 2); a zero-length crossfade is a hard cut.
func Assemble(source *Buffer, kept []subtitle.Segment) *Buffer {
	var final *Buffer
	for _, seg := range kept {
		piece := source.SliceMs(seg.StartMs, seg.EndMs)
		if final == nil {
			final = piece
			continue
		}
		crossfade := maxCrossfadeMs
		if half := piece.DurationMs() / 2; half < crossfade {
			crossfade = half
		}
		final.AppendCrossfade(piece, crossfade)
	}
	if final == nil {
		final = &Buffer{sampleRate: source.sampleRate, channels: source.channels}
	}
	return final
}

// decode reads the source file into an s16le PCM buffer via an ffmpeg pipe
func (s *Splicer) decode(ctx context.Context, audioPath string) (*Buffer, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	args := []string{
		"-loglevel", "error",
		"-i", audioPath,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", fmt.Sprintf("%d", s.channels),
		"-ar", fmt.Sprintf("%d", s.sampleRate),
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w: %s", err, stderr.String())
	}

	return NewBuffer(stdout.Bytes(), s.sampleRate, s.channels), nil
}

// encode writes the PCM buffer to outputPath via an ffmpeg pipe. The
// container is chosen by the output extension unless format forces one.
func (s *Splicer) encode(ctx context.Context, buf *Buffer, outputPath, format string) error {
	args := []string{
		"-loglevel", "error",
		"-y",
		"-f", "s16le",
		"-ac", fmt.Sprintf("%d", s.channels),
		"-ar", fmt.Sprintf("%d", s.sampleRate),
		"-i", "pipe:0",
	}
	if format != "" {
		args = append(args, "-f", format)
	}
	args = append(args, outputPath)

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(buf.Bytes())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg encode failed: %w: %s", err, stderr.String())
	}
	return nil
}
