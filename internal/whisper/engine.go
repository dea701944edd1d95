// Package whisper drives an external speech-recognition binary to turn
// audio files into timestamped SRT subtitle tracks.
package whisper

import (
	"context"
)

// Options holds per-invocation transcription settings
type Options struct {
	Language           string // ISO language code, empty for auto-detect
	TranslateToEnglish bool   // whisper-cli can only translate into English
}

// Engine converts an audio file into a subtitle file. Implementations
// return the path of the generated SRT on success.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (string, error)
}
