package subtitle

// Segment represents a time-stamped span of transcribed text. It is the
// unit flowing through every stage of the cleanup pipeline.
type Segment struct {
	Index      int    `json:"index"`       // 1-based, dense, assigned by the stage that produced it
	StartMs    int    `json:"start_ms"`    // start offset in milliseconds
	EndMs      int    `json:"end_ms"`      // end offset in milliseconds
	DurationMs int    `json:"duration_ms"` // cached EndMs - StartMs, recomputed on every mutation
	Text       string `json:"text"`
}

// NewSegment creates a segment with its duration derived from the time range
func NewSegment(index, startMs, endMs int, text string) Segment {
	return Segment{
		Index:      index,
		StartMs:    startMs,
		EndMs:      endMs,
		DurationMs: endMs - startMs,
		Text:       text,
	}
}

// SetStart moves the segment start and recomputes the cached duration.
// The end time is left unchanged.
func (s *Segment) SetStart(startMs int) {
	s.StartMs = startMs
	s.DurationMs = s.EndMs - s.StartMs
}
