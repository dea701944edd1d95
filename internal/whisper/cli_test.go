package whisper

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stillwave/recut/pkg/logger"
)

// writeScript installs a fake whisper-cli binary backed by a shell script
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures require a POSIX shell")
	}
	path := filepath.Join(dir, "whisper-cli")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

func writeFixture(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fixture"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestTranscribeMissingInputs(t *testing.T) {
	dir := t.TempDir()
	binary := writeFixture(t, dir, "whisper-cli")
	model := writeFixture(t, dir, "model.bin")
	audio := writeFixture(t, dir, "input.wav")

	tests := []struct {
		name   string
		config CLIConfig
		audio  string
		want   string
	}{
		{name: "missing binary", config: CLIConfig{BinaryPath: filepath.Join(dir, "nope"), ModelPath: model}, audio: audio, want: "binary not found"},
		{name: "missing model", config: CLIConfig{BinaryPath: binary, ModelPath: filepath.Join(dir, "nope.bin")}, audio: audio, want: "model not found"},
		{name: "missing audio", config: CLIConfig{BinaryPath: binary, ModelPath: model}, audio: filepath.Join(dir, "nope.wav"), want: "audio file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewCLIEngine(tt.config, logger.NewNop())
			_, err := engine.Transcribe(context.Background(), tt.audio, Options{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Transcribe() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestTranscribeProducesSRT(t *testing.T) {
	dir := t.TempDir()
	// Writes the subtitle next to the -of output base, like the real CLI
	binary := writeScript(t, dir, `printf '1\n00:00:00,000 --> 00:00:01,000\nhello\n' > "$7.srt"`)
	model := writeFixture(t, dir, "model.bin")
	audio := writeFixture(t, dir, "input.wav")

	engine := NewCLIEngine(CLIConfig{BinaryPath: binary, ModelPath: model}, logger.NewNop())

	srtPath, err := engine.Transcribe(context.Background(), audio, Options{})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	want := filepath.Join(dir, "input.srt")
	if srtPath != want {
		t.Errorf("Transcribe() path = %q, want %q", srtPath, want)
	}
	if _, err := os.Stat(srtPath); err != nil {
		t.Errorf("subtitle file missing: %v", err)
	}
}

// A silent process must be detected as stalled and terminated; the whole
// shutdown path has to run clean under the race detector.
func TestTranscribeStallTerminates(t *testing.T) {
	if testing.Short() {
		t.Skip("stall detection waits out the monitor interval")
	}
	dir := t.TempDir()
	binary := writeScript(t, dir, "exec sleep 60")
	model := writeFixture(t, dir, "model.bin")
	audio := writeFixture(t, dir, "input.wav")

	engine := NewCLIEngine(CLIConfig{
		BinaryPath:       binary,
		ModelPath:        model,
		StallTimeoutSecs: 1,
		KillGraceSecs:    1,
	}, logger.NewNop())

	_, err := engine.Transcribe(context.Background(), audio, Options{})
	if err == nil || !strings.Contains(err.Error(), "stalled") {
		t.Fatalf("Transcribe() error = %v, want stall error", err)
	}
}
