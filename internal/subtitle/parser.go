package subtitle

import (
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/stillwave/recut/pkg/logger"
)

// ErrNoSegments is returned when non-empty subtitle data yields zero usable
// segments. It signals that the upstream transcription most likely failed.
var ErrNoSegments = errors.New("no segments recovered from subtitle data")

// Blocks are: index line, "start --> end" line, one or more text lines,
// terminated by a blank line or end of input.
var blockPattern = regexp.MustCompile(`(?m)^(\d+)\r?\n(\d{2}:\d{2}:\d{2},\d{3}) --> (\d{2}:\d{2}:\d{2},\d{3})\r?\n([\s\S]*?)(?:\r?\n\r?\n|\r?\n?\z)`)

// Parser converts raw SRT text into an ordered sequence of Segments
type Parser struct {
	logger *logger.Logger
}

// NewParser creates a new subtitle parser
func NewParser(log *logger.Logger) *Parser {
	return &Parser{logger: log.Named("srt-parser")}
}

// ParseFile reads and parses the subtitle file at the given path
func (p *Parser) ParseFile(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.Parse(string(data))
}

// Parse extracts segments from SRT-shaped text. Malformed blocks (missing
// arrow line, unparseable timecode) are skipped rather than aborting the
// whole parse. Blocks whose text trims to empty are dropped. Source indices
// are carried through but must not be trusted to be dense or correct;
// downstream stages renumber.
func (p *Parser) Parse(content string) ([]Segment, error) {
	matches := blockPattern.FindAllStringSubmatch(content, -1)

	var segments []Segment
	skipped := 0
	for _, m := range matches {
		index, err := strconv.Atoi(m[1])
		if err != nil {
			skipped++
			continue
		}

		startMs, err := ParseTimecode(m[2])
		if err != nil {
			skipped++
			continue
		}
		endMs, err := ParseTimecode(m[3])
		if err != nil {
			skipped++
			continue
		}

		text := strings.TrimSpace(m[4])
		if text == "" {
			skipped++
			continue
		}

		segments = append(segments, NewSegment(index, startMs, endMs, text))
	}

	p.logger.Info("Parsed subtitle data",
		logger.Int("segments", len(segments)),
		logger.Int("skipped_blocks", skipped))

	if len(segments) == 0 {
		if strings.TrimSpace(content) == "" {
			return nil, nil
		}
		return nil, ErrNoSegments
	}

	return segments, nil
}
