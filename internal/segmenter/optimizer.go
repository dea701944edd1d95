// Package segmenter normalizes transcript segments ahead of quality
// judgment: over-long segments are split at sentence boundaries and
// unnaturally large inter-segment gaps are closed.
package segmenter

import (
	"regexp"
	"strings"

	"github.com/stillwave/recut/internal/subtitle"
)

// Sentence-terminal punctuation, CJK and Latin
var sentenceTerminals = regexp.MustCompile(`[。！？.!?]`)

// Optimize splits segments whose text exceeds maxChars at sentence
// boundaries, renumbers the result densely from 1, and closes gaps larger
// than gapThresholdSecs down to exactly the threshold. It is a pure
// function: the input slice is never mutated.
//
// Splitting allocates the original duration proportionally to each
// sentence's share of the text, chaining the sub-segments contiguously
// from the original start time; the last sub-segment absorbs rounding so
// the combined duration equals the original exactly. Segments that cannot
// be split into at least two non-empty sentences, or whose allocation
// would produce a non-positive duration, pass through unchanged.
//
// Gap closing is a single left-to-right pass, not a fixed point: each
// segment is compared against its (already renumbered) predecessor's end
// time only, and only its start time moves. End times are fixed, so
// pulling a start earlier grows that segment's recomputed duration.
func Optimize(segments []subtitle.Segment, maxChars int, gapThresholdSecs float64) []subtitle.Segment {
	optimized := make([]subtitle.Segment, 0, len(segments))

	for _, seg := range segments {
		pieces, ok := split(seg, maxChars)
		if !ok {
			optimized = append(optimized, seg)
			continue
		}
		optimized = append(optimized, pieces...)
	}

	// Dense renumbering in emission order
	for i := range optimized {
		optimized[i].Index = i + 1
	}

	gapLimitMs := int(gapThresholdSecs * 1000)
	for i := 1; i < len(optimized); i++ {
		gap := optimized[i].StartMs - optimized[i-1].EndMs
		if gap > gapLimitMs {
			optimized[i].SetStart(optimized[i-1].EndMs + gapLimitMs)
		}
	}

	return optimized
}

// split breaks an over-long segment at sentence-terminal punctuation.
// Returns false when the segment should pass through unchanged.
func split(seg subtitle.Segment, maxChars int) ([]subtitle.Segment, bool) {
	if len([]rune(seg.Text)) <= maxChars || seg.DurationMs <= 0 {
		return nil, false
	}

	var sentences []string
	for _, part := range sentenceTerminals.Split(seg.Text, -1) {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) < 2 {
		return nil, false
	}

	totalChars := 0
	for _, s := range sentences {
		totalChars += len([]rune(s))
	}

	pieces := make([]subtitle.Segment, 0, len(sentences))
	startMs := seg.StartMs
	for i, sentence := range sentences {
		var durMs int
		if i == len(sentences)-1 {
			// Last sentence absorbs rounding: chain ends exactly at the
			// original end time.
			durMs = seg.EndMs - startMs
		} else {
			durMs = seg.DurationMs * len([]rune(sentence)) / totalChars
		}
		if durMs <= 0 {
			// All-punctuation remainders or degenerate allocations must
			// never yield zero-length segments; keep the original whole.
			return nil, false
		}
		pieces = append(pieces, subtitle.NewSegment(0, startMs, startMs+durMs, sentence))
		startMs += durMs
	}

	return pieces, true
}
