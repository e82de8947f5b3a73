package job

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthlens/healthlens/internal/config"
	"github.com/healthlens/healthlens/pkg/engineerr"
)

// Runner executes one job type and returns the serialized result.
type Runner func(ctx context.Context, j *Job) (json.RawMessage, error)

// Service owns the job lifecycle. All status writes go through transition,
// which holds the mutex, so each job has a single writer and terminal states
// are never overwritten.
type Service struct {
	cfg    *config.Config
	repo   Repository
	logger zerolog.Logger

	runners map[string]Runner
	sem     chan struct{}

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

func NewService(cfg *config.Config, repo Repository, logger zerolog.Logger) *Service {
	workers := 1
	if cfg != nil && cfg.MaxConcurrentJobs > 0 {
		workers = cfg.MaxConcurrentJobs
	}
	return &Service{
		cfg:     cfg,
		repo:    repo,
		logger:  logger.With().Str("component", "jobs").Logger(),
		runners: make(map[string]Runner),
		sem:     make(chan struct{}, workers),
		cancels: make(map[uuid.UUID]context.CancelFunc),
	}
}

// RegisterRunner binds a job type to its executor. Not safe to call after
// jobs start flowing.
func (s *Service) RegisterRunner(jobType string, r Runner) {
	s.runners[jobType] = r
}

// Enqueue persists a queued job and hands it to the worker pool.
func (s *Service) Enqueue(ctx context.Context, userID, jobType string, priority Priority, params json.RawMessage) (*Job, error) {
	if s.cfg == nil {
		return nil, engineerr.New(engineerr.CodeServiceNotInitialized, "analytics service not initialized")
	}
	if _, ok := s.runners[jobType]; !ok {
		return nil, engineerr.New(engineerr.CodeInvalidRequest, "unknown job type %q", jobType)
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !validPriorities[priority] {
		return nil, engineerr.New(engineerr.CodeInvalidRequest, "unknown priority %q", priority)
	}

	j := &Job{
		ID:         uuid.New(),
		UserID:     userID,
		Type:       jobType,
		Status:     StatusQueued,
		Priority:   priority,
		Parameters: params,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, engineerr.Wrap(engineerr.CodeJobQueueFailed, err, "failed to enqueue job")
	}

	s.wg.Add(1)
	go s.run(j.ID)

	s.logger.Info().
		Str("job_id", j.ID.String()).
		Str("type", jobType).
		Str("priority", string(priority)).
		Msg("job enqueued")

	return j, nil
}

func (s *Service) run(id uuid.UUID) {
	defer s.wg.Done()

	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.mu.Lock()
	j, err := s.repo.GetByID(runCtx, id)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error().Err(err).Str("job_id", id.String()).Msg("job vanished before start")
		return
	}
	// Cancelled while waiting for a worker slot.
	if j.Status != StatusQueued {
		s.mu.Unlock()
		return
	}
	if err := s.transitionLocked(runCtx, j, StatusRunning); err != nil {
		s.mu.Unlock()
		s.logger.Error().Err(err).Str("job_id", id.String()).Msg("failed to start job")
		return
	}
	s.cancels[id] = cancel
	runner := s.runners[j.Type]
	s.mu.Unlock()

	result, runErr := runner(runCtx, j)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, id)

	// A concurrent Cancel may already have finalized the job.
	current, err := s.repo.GetByID(context.Background(), id)
	if err != nil || current.Status.IsTerminal() {
		return
	}
	if runErr != nil {
		msg := runErr.Error()
		current.Error = &msg
		if err := s.transitionLocked(context.Background(), current, StatusFailed); err != nil {
			s.logger.Error().Err(err).Str("job_id", id.String()).Msg("failed to record job failure")
		}
		return
	}
	current.Result = result
	if err := s.transitionLocked(context.Background(), current, StatusCompleted); err != nil {
		s.logger.Error().Err(err).Str("job_id", id.String()).Msg("failed to record job completion")
	}
}

// transitionLocked validates and persists a status change. Callers must hold
// s.mu.
func (s *Service) transitionLocked(ctx context.Context, j *Job, to Status) error {
	if err := ValidateTransition(j.Status, to); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.Status = to
	switch to {
	case StatusRunning:
		j.StartedAt = &now
	case StatusCompleted, StatusFailed, StatusCancelled:
		j.CompletedAt = &now
	}
	return s.repo.Update(ctx, j)
}

// Cancel moves a queued or running job to cancelled. Terminal jobs reject the
// request.
func (s *Service) Cancel(ctx context.Context, userID string, id uuid.UUID) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, engineerr.New(engineerr.CodeNotFound, "job %s not found", id)
	}
	if j.UserID != userID {
		return nil, engineerr.New(engineerr.CodeNotFound, "job %s not found", id)
	}
	if err := s.transitionLocked(ctx, j, StatusCancelled); err != nil {
		return nil, engineerr.New(engineerr.CodeInvalidRequest, "job %s cannot be cancelled from %s", id, j.Status)
	}
	if cancel, ok := s.cancels[id]; ok {
		cancel()
	}

	s.logger.Info().Str("job_id", id.String()).Msg("job cancelled")
	return j, nil
}

func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Job, error) {
	j, err := s.repo.GetByID(ctx, id)
	if err != nil || j.UserID != userID {
		return nil, engineerr.New(engineerr.CodeNotFound, "job %s not found", id)
	}
	return j, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]*Job, int, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Wait blocks until all in-flight jobs have finished. Used on shutdown.
func (s *Service) Wait() {
	s.wg.Wait()
}
