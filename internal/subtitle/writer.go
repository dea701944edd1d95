package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Render serializes segments as SRT blocks: index line, timecode line,
// text, blank line. Output is UTF-8.
func Render(segments []Segment) (string, error) {
	var b strings.Builder
	for _, seg := range segments {
		start, err := FormatTimecode(seg.StartMs)
		if err != nil {
			return "", fmt.Errorf("segment %d: %w", seg.Index, err)
		}
		end, err := FormatTimecode(seg.EndMs)
		if err != nil {
			return "", fmt.Errorf("segment %d: %w", seg.Index, err)
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", seg.Index, start, end, seg.Text)
	}
	return b.String(), nil
}

// WriteFile serializes segments to the given path, creating parent
// directories as needed.
func WriteFile(path string, segments []Segment) error {
	content, err := Render(segments)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return nil
}
