// Package refine re-transcribes cleaned audio and produces an HRT
// subtitle track: filler and sub-second segments are dropped and display
// durations are normalized into a readable range.
package refine

import (
	"regexp"
	"strings"

	"github.com/stillwave/recut/internal/subtitle"
)

const (
	minSegmentMs = 1000 // segments shorter than this are discarded
	minDisplayMs = 2000 // clamped display duration lower bound
	maxDisplayMs = 5000 // clamped display duration upper bound
)

// Single-interjection tokens that carry no content on their own
var fillerTokens = map[string]struct{}{
	"嗯":  {},
	"啊":  {},
	"哦":  {},
	"呃":  {},
	"这个": {},
	"那个": {},
}

var (
	punctuationRuns = regexp.MustCompile(`[，,、。.！!？?]{2,}`)
	ellipsisRuns    = regexp.MustCompile(`\.{2,}`)
)

// OptimizeForHRT filters and normalizes freshly transcribed segments into
// HRT form: sub-second segments and filler-only segments are dropped,
// repeated punctuation runs are collapsed, each surviving segment's
// display duration is clamped into [2000, 5000] ms anchored at its
// original start time, and the result is renumbered densely from 1.
// Pure function; the input is not mutated.
func OptimizeForHRT(segments []subtitle.Segment) []subtitle.Segment {
	hrt := make([]subtitle.Segment, 0, len(segments))

	for _, seg := range segments {
		if seg.DurationMs < minSegmentMs {
			continue
		}

		text := strings.TrimSpace(seg.Text)
		if len([]rune(text)) < 2 {
			continue
		}
		if _, filler := fillerTokens[text]; filler {
			continue
		}

		text = punctuationRuns.ReplaceAllString(text, "，")
		text = ellipsisRuns.ReplaceAllString(text, "…")
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		displayMs := seg.DurationMs
		if displayMs < minDisplayMs {
			displayMs = minDisplayMs
		}
		if displayMs > maxDisplayMs {
			displayMs = maxDisplayMs
		}

		hrt = append(hrt, subtitle.NewSegment(len(hrt)+1, seg.StartMs, seg.StartMs+displayMs, text))
	}

	return hrt
}
