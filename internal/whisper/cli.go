package whisper

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stillwave/recut/pkg/logger"
)

// CLIConfig contains configuration for the whisper-cli subprocess engine
type CLIConfig struct {
	BinaryPath       string // Path to the whisper-cli executable
	ModelPath        string // Path to the model file
	StallTimeoutSecs int    // Kill the process if it produces no output for this long (0 = default)
	KillGraceSecs    int    // Grace period between terminate and forced kill
}

// CLIEngine runs whisper-cli as a managed subprocess. Output is streamed
// line by line into the log; a monitor watches for stalls and terminates
// the process (gracefully, then forcibly) if it goes quiet for too long.
type CLIEngine struct {
	config CLIConfig
	logger *logger.Logger
}

// NewCLIEngine creates a new subprocess-backed transcription engine
func NewCLIEngine(config CLIConfig, log *logger.Logger) *CLIEngine {
	if config.StallTimeoutSecs <= 0 {
		config.StallTimeoutSecs = 300
	}
	if config.KillGraceSecs <= 0 {
		config.KillGraceSecs = 5
	}
	return &CLIEngine{
		config: config,
		logger: log.Named("whisper-cli"),
	}
}

// Transcribe implements Engine
func (e *CLIEngine) Transcribe(ctx context.Context, audioPath string, opts Options) (string, error) {
	if _, err := os.Stat(e.config.BinaryPath); err != nil {
		return "", fmt.Errorf("whisper binary not found: %s", e.config.BinaryPath)
	}
	if _, err := os.Stat(e.config.ModelPath); err != nil {
		return "", fmt.Errorf("whisper model not found: %s", e.config.ModelPath)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("audio file not found: %s", audioPath)
	}

	outputBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))

	args := []string{
		"-m", e.config.ModelPath,
		"-f", audioPath,
		"-osrt",
		"-of", outputBase,
	}
	if opts.Language != "" && opts.Language != "auto" {
		args = append(args, "-l", opts.Language)
	}
	if opts.TranslateToEnglish {
		args = append(args, "--translate")
	}

	e.logger.Info("Starting transcription",
		logger.String("audio", audioPath),
		logger.String("model", filepath.Base(e.config.ModelPath)),
		logger.String("language", opts.Language))

	procCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(procCtx, e.config.BinaryPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start whisper process: %w", err)
	}

	var lastActivity atomic.Int64
	lastActivity.Store(time.Now().UnixNano())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			lastActivity.Store(time.Now().UnixNano())
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				e.logger.Debug("whisper output", logger.String("line", line))
			}
		}
	}()

	procDone := make(chan struct{})
	stalled := e.monitorStall(procCtx, cmd, &lastActivity, procDone)

	waitErr := cmd.Wait()
	close(procDone)
	cancel()
	wg.Wait()

	if stalled.Load() {
		return "", fmt.Errorf("whisper process stalled: no output for %d seconds", e.config.StallTimeoutSecs)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if waitErr != nil {
		return "", fmt.Errorf("whisper process failed: %w", waitErr)
	}

	srtPath, err := e.findOutputFile(audioPath, outputBase)
	if err != nil {
		return "", err
	}

	e.logger.Info("Transcription complete", logger.String("srt", srtPath))
	return srtPath, nil
}

// monitorStall watches the process for liveness every few seconds. On a
// stall it terminates gracefully, waits out the grace period, then kills.
// procDone is closed once Wait has returned; the kill timer checks it
// instead of cmd.ProcessState, which only Wait may touch.
func (e *CLIEngine) monitorStall(ctx context.Context, cmd *exec.Cmd, lastActivity *atomic.Int64, procDone <-chan struct{}) *atomic.Bool {
	stalled := new(atomic.Bool)
	stallTimeout := time.Duration(e.config.StallTimeoutSecs) * time.Second
	killGrace := time.Duration(e.config.KillGraceSecs) * time.Second

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				idle := time.Since(time.Unix(0, lastActivity.Load()))
				if idle < stallTimeout {
					continue
				}
				stalled.Store(true)
				e.logger.Warn("Whisper process stalled, terminating",
					logger.Duration("idle", idle))
				if cmd.Process != nil {
					_ = cmd.Process.Signal(os.Interrupt)
					time.AfterFunc(killGrace, func() {
						select {
						case <-procDone:
							return
						default:
						}
						e.logger.Warn("Whisper process ignored terminate, killing")
						_ = cmd.Process.Kill()
					})
				}
				return
			}
		}
	}()

	return stalled
}

// findOutputFile locates the SRT the engine produced. The expected path is
// derived from the input audio path, but some builds append to the full
// input filename instead, so a couple of candidates are probed.
func (e *CLIEngine) findOutputFile(audioPath, outputBase string) (string, error) {
	candidates := []string{
		outputBase + ".srt",
		audioPath + ".srt",
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("subtitle file not generated, expected at: %s", candidates[0])
}
