// Package cleanup orchestrates the audio cleanup pipeline: transcribe,
// optimize segments, judge quality, splice kept audio, and optionally
// produce a refined HRT subtitle track.
package cleanup

import (
	"time"

	"github.com/google/uuid"

	"github.com/stillwave/recut/internal/splice"
	"github.com/stillwave/recut/internal/subtitle"
)

// JobState describes where a job is in its lifecycle
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// Pipeline stages reported over the WebSocket stream
const (
	StageTranscribe = "transcribe"
	StageParse      = "parse"
	StageOptimize   = "optimize"
	StageJudge      = "judge"
	StageSplice     = "splice"
	StageRefine     = "refine"
	StageDone       = "done"
)

// JobConfig holds per-job settings supplied at submission time
type JobConfig struct {
	InputPath        string  `json:"input_path"`
	OutputPath       string  `json:"output_path"`
	OutputFormat     string  `json:"output_format,omitempty"`
	Language         string  `json:"language,omitempty"`
	MaxSegmentChars  int     `json:"max_segment_chars,omitempty"`
	GapThresholdSecs float64 `json:"gap_threshold_secs,omitempty"`
	EnableRefinement bool    `json:"enable_refinement,omitempty"`
	HRTOutputPath    string  `json:"hrt_output_path,omitempty"`
	Model            string  `json:"model,omitempty"`
}

// Job is a single cleanup run and its accumulated results
type Job struct {
	ID        string               `json:"id"`
	Config    JobConfig            `json:"config"`
	State     JobState             `json:"state"`
	Stage     string               `json:"stage,omitempty"`
	Error     string               `json:"error,omitempty"`
	Segments  []subtitle.Segment   `json:"segments,omitempty"`
	Deleted   []int                `json:"deleted,omitempty"`
	Result    *splice.ExportResult `json:"result,omitempty"`
	HRTPath   string               `json:"hrt_path,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewJob creates a pending job with a fresh ID
func NewJob(config JobConfig) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.NewString(),
		Config:    config,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Snapshot returns the job as a generic map for WebSocket broadcast
func (j *Job) Snapshot() map[string]any {
	snapshot := map[string]any{
		"id":    j.ID,
		"state": string(j.State),
		"stage": j.Stage,
	}
	if j.Error != "" {
		snapshot["error"] = j.Error
	}
	if j.Result != nil {
		snapshot["result"] = j.Result
	}
	if j.HRTPath != "" {
		snapshot["hrt_path"] = j.HRTPath
	}
	return snapshot
}
