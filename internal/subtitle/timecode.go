package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
)

// SRT timecodes are HH:MM:SS,mmm with exactly three millisecond digits
var timecodePattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3})$`)

// FormatError indicates a timecode string that does not match HH:MM:SS,mmm
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed timecode: %q (expected HH:MM:SS,mmm)", e.Input)
}

// ParseTimecode converts an SRT timecode string to a millisecond offset.
// Malformed input fails with a *FormatError; nothing is silently truncated.
func ParseTimecode(s string) (int, error) {
	m := timecodePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, &FormatError{Input: s}
	}

	// The pattern guarantees digits only, so these cannot fail
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	millis, _ := strconv.Atoi(m[4])

	if minutes > 59 || seconds > 59 {
		return 0, &FormatError{Input: s}
	}

	return hours*3600000 + minutes*60000 + seconds*1000 + millis, nil
}

// FormatTimecode converts a millisecond offset to an SRT timecode string.
// All fields are zero-padded; negative input is rejected.
func FormatTimecode(ms int) (string, error) {
	if ms < 0 {
		return "", fmt.Errorf("negative timecode offset: %d ms", ms)
	}

	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis), nil
}
