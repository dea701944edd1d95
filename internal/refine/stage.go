package refine

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/stillwave/recut/internal/subtitle"
	"github.com/stillwave/recut/internal/whisper"
	"github.com/stillwave/recut/pkg/logger"
)

// Stage re-transcribes the cleaned audio and writes an HRT subtitle track
// next to it. The whole stage is best-effort: a transcription or parse
// failure is logged and reported as "no track produced" rather than
// failing the run that already delivered its cleaned audio.
type Stage struct {
	engine whisper.Engine
	parser *subtitle.Parser
	opts   whisper.Options
	logger *logger.Logger
}

// NewStage creates a refinement stage backed by the given engine
func NewStage(engine whisper.Engine, opts whisper.Options, log *logger.Logger) *Stage {
	return &Stage{
		engine: engine,
		parser: subtitle.NewParser(log),
		opts:   opts,
		logger: log.Named("refine"),
	}
}

// Refine transcribes cleanedAudioPath and writes the HRT track to hrtPath.
// When hrtPath is empty the path is derived from the audio path with an
// "_hrt.srt" suffix. Returns the written path, or "" when the stage could
// not produce a track. Refine never returns an error for the run that
// already delivered its cleaned audio; every failure is logged and
// reported as "no track produced".
func (s *Stage) Refine(ctx context.Context, cleanedAudioPath, hrtPath string) (string, error) {
	if hrtPath == "" {
		base := strings.TrimSuffix(cleanedAudioPath, filepath.Ext(cleanedAudioPath))
		hrtPath = base + "_hrt.srt"
	}

	srtPath, err := s.engine.Transcribe(ctx, cleanedAudioPath, s.opts)
	if err != nil {
		s.logger.Warn("Refinement transcription failed, skipping HRT track",
			logger.Error(err))
		return "", nil
	}

	segments, err := s.parser.ParseFile(srtPath)
	if err != nil {
		s.logger.Warn("Refinement transcript unusable, skipping HRT track",
			logger.String("srt", srtPath),
			logger.Error(err))
		return "", nil
	}

	hrt := OptimizeForHRT(segments)
	if len(hrt) == 0 {
		s.logger.Warn("No segments survived HRT filtering, skipping HRT track",
			logger.Int("input_segments", len(segments)))
		return "", nil
	}

	if err := subtitle.WriteFile(hrtPath, hrt); err != nil {
		s.logger.Warn("Failed to write HRT track, skipping",
			logger.String("path", hrtPath),
			logger.Error(err))
		return "", nil
	}

	s.logger.Info("HRT track written",
		logger.String("path", hrtPath),
		logger.Int("segments", len(hrt)))
	return hrtPath, nil
}
