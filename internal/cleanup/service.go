package cleanup

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stillwave/recut/internal/segmenter"
	"github.com/stillwave/recut/internal/splice"
	"github.com/stillwave/recut/internal/subtitle"
	"github.com/stillwave/recut/internal/whisper"
	"github.com/stillwave/recut/pkg/logger"
)

// Evaluator flags segments for deletion by index
type Evaluator interface {
	Evaluate(ctx context.Context, segments []subtitle.Segment) (map[int]struct{}, error)
}

// AudioSplicer re-assembles the recording from kept segments
type AudioSplicer interface {
	Splice(ctx context.Context, audioPath string, segments []subtitle.Segment, deletions map[int]struct{}, outputPath, format string) (*splice.ExportResult, error)
}

// Refiner produces an HRT subtitle track for the cleaned audio
type Refiner interface {
	Refine(ctx context.Context, cleanedAudioPath, hrtPath string) (string, error)
}

// JobStore persists job records
type JobStore interface {
	StoreJob(job *Job) error
	UpdateJob(job *Job) error
	GetJob(id string) (*Job, error)
	GetJobs(limit, offset int) ([]*Job, error)
}

// Broadcaster pushes job progress to connected clients
type Broadcaster interface {
	BroadcastJobUpdate(data map[string]any)
}

// Defaults applied to job configs that leave optimizer settings unset
const (
	DefaultMaxSegmentChars  = 50
	DefaultGapThresholdSecs = 1.0
)

// Service runs cleanup jobs. Each submitted job gets its own worker
// goroutine; progress flows to the store and the broadcaster after every
// stage transition.
type Service struct {
	engine      whisper.Engine
	parser      *subtitle.Parser
	evaluator   Evaluator
	splicer     AudioSplicer
	refiner     Refiner
	store       JobStore
	broadcaster Broadcaster
	language    string
	logger      *logger.Logger

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu      sync.RWMutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a cleanup service. refiner may be nil when the
// refinement stage is not configured.
func NewService(engine whisper.Engine, evaluator Evaluator, splicer AudioSplicer, refiner Refiner, store JobStore, broadcaster Broadcaster, language string, log *logger.Logger) *Service {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &Service{
		rootCtx:     rootCtx,
		rootCancel:  rootCancel,
		engine:      engine,
		parser:      subtitle.NewParser(log),
		evaluator:   evaluator,
		splicer:     splicer,
		refiner:     refiner,
		store:       store,
		broadcaster: broadcaster,
		language:    language,
		logger:      log.Named("cleanup"),
		jobs:        make(map[string]*Job),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Submit registers a new job and starts its worker. The job runs under
// the service's own context, not the caller's, so it outlives the
// submitting HTTP request.
func (s *Service) Submit(config JobConfig) (*Job, error) {
	if config.InputPath == "" {
		return nil, fmt.Errorf("input_path is required")
	}
	if config.OutputPath == "" {
		return nil, fmt.Errorf("output_path is required")
	}
	if config.MaxSegmentChars <= 0 {
		config.MaxSegmentChars = DefaultMaxSegmentChars
	}
	if config.GapThresholdSecs <= 0 {
		config.GapThresholdSecs = DefaultGapThresholdSecs
	}

	job := NewJob(config)

	if err := s.store.StoreJob(job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	jobCtx, cancel := context.WithCancel(s.rootCtx)

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	s.logger.Info("Job submitted",
		logger.String("id", job.ID),
		logger.String("input", config.InputPath))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(jobCtx, job)
	}()

	return job, nil
}

// Get returns a job by ID, falling back to the store for jobs from
// earlier runs of the server
func (s *Service) Get(id string) (*Job, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()
	if ok {
		return s.snapshotJob(job), nil
	}
	return s.store.GetJob(id)
}

// List returns jobs newest first
func (s *Service) List(limit, offset int) ([]*Job, error) {
	return s.store.GetJobs(limit, offset)
}

// Stop cancels all running jobs and waits for their workers to exit
func (s *Service) Stop() {
	s.rootCancel()
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// run executes the pipeline for one job
func (s *Service) run(ctx context.Context, job *Job) {
	s.transition(job, StateRunning, StageTranscribe)

	srtPath, err := s.engine.Transcribe(ctx, job.Config.InputPath, whisper.Options{
		Language: firstNonEmpty(job.Config.Language, s.language),
	})
	if err != nil {
		s.fail(job, fmt.Errorf("transcription failed: %w", err))
		return
	}

	s.transition(job, StateRunning, StageParse)

	segments, err := s.parser.ParseFile(srtPath)
	if err != nil {
		s.fail(job, fmt.Errorf("subtitle parse failed: %w", err))
		return
	}
	if len(segments) == 0 {
		s.fail(job, fmt.Errorf("transcript contains no usable segments"))
		return
	}

	s.transition(job, StateRunning, StageOptimize)

	optimized := segmenter.Optimize(segments, job.Config.MaxSegmentChars, job.Config.GapThresholdSecs)

	s.withJob(job, func() {
		job.Segments = optimized
	})

	s.transition(job, StateRunning, StageJudge)

	deletions, err := s.evaluator.Evaluate(ctx, optimized)
	if err != nil {
		// Fail open: a judge outage means nothing is deleted, the run
		// still produces output.
		s.logger.Warn("Quality judgment unavailable, keeping all segments",
			logger.String("id", job.ID),
			logger.Error(err))
		deletions = map[int]struct{}{}
	}

	s.withJob(job, func() {
		job.Deleted = sortedIndices(deletions)
	})

	s.transition(job, StateRunning, StageSplice)

	result, err := s.splicer.Splice(ctx, job.Config.InputPath, optimized, deletions, job.Config.OutputPath, job.Config.OutputFormat)
	if err != nil {
		s.fail(job, fmt.Errorf("splice failed: %w", err))
		return
	}

	s.withJob(job, func() {
		job.Result = result
	})

	if job.Config.EnableRefinement && s.refiner != nil {
		s.transition(job, StateRunning, StageRefine)

		// The cleaned audio is already on disk; a refinement failure
		// never fails the job.
		hrtPath, err := s.refiner.Refine(ctx, job.Config.OutputPath, job.Config.HRTOutputPath)
		if err != nil {
			s.logger.Warn("Refinement failed, cleaned audio is unaffected",
				logger.String("id", job.ID),
				logger.Error(err))
			hrtPath = ""
		}
		s.withJob(job, func() {
			job.HRTPath = hrtPath
		})
	}

	s.transition(job, StateCompleted, StageDone)

	s.logger.Info("Job completed",
		logger.String("id", job.ID),
		logger.Int("kept", result.KeptCount),
		logger.Int("final_ms", result.FinalDurationMs))
}

// transition updates job state and stage, persists, and broadcasts
func (s *Service) transition(job *Job, state JobState, stage string) {
	s.withJob(job, func() {
		job.State = state
		job.Stage = stage
	})
	s.publish(job)
}

// fail marks the job failed with the given error
func (s *Service) fail(job *Job, err error) {
	s.logger.Error("Job failed",
		logger.String("id", job.ID),
		logger.Error(err))
	s.withJob(job, func() {
		job.State = StateFailed
		job.Error = err.Error()
	})
	s.publish(job)
}

// withJob mutates a job under the service lock and bumps UpdatedAt
func (s *Service) withJob(job *Job, fn func()) {
	s.mu.Lock()
	fn()
	job.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()
}

// publish persists the job and pushes a progress update
func (s *Service) publish(job *Job) {
	snapshot := s.snapshotJob(job)

	if err := s.store.UpdateJob(snapshot); err != nil {
		s.logger.Error("Failed to persist job update",
			logger.String("id", job.ID),
			logger.Error(err))
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastJobUpdate(snapshot.Snapshot())
	}
}

// snapshotJob copies a job under the service lock
func (s *Service) snapshotJob(job *Job) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := *job
	copied.Segments = append([]subtitle.Segment(nil), job.Segments...)
	copied.Deleted = append([]int(nil), job.Deleted...)
	if job.Result != nil {
		result := *job.Result
		copied.Result = &result
	}
	return &copied
}

func sortedIndices(set map[int]struct{}) []int {
	indices := make([]int, 0, len(set))
	for idx := range set {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
