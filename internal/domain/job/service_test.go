package job

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthlens/healthlens/internal/config"
	"github.com/healthlens/healthlens/pkg/engineerr"
)

type mockRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
}

func newMockRepo() *mockRepo {
	return &mockRepo{jobs: make(map[uuid.UUID]*Job)}
}

func (m *mockRepo) Create(_ context.Context, j *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *j
	m.jobs[j.ID] = &copied
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *j
	return &copied, nil
}

func (m *mockRepo) Update(_ context.Context, j *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.ID]; !ok {
		return ErrNotFound
	}
	copied := *j
	m.jobs[j.ID] = &copied
	return nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]*Job, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Job
	for _, j := range m.jobs {
		if j.UserID == userID {
			copied := *j
			out = append(out, &copied)
		}
	}
	return out, len(out), nil
}

func testConfig(workers int) *config.Config {
	return &config.Config{MaxConcurrentJobs: workers}
}

func waitForTerminal(t *testing.T, svc *Service, userID string, id uuid.UUID) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := svc.Get(context.Background(), userID, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if j.Status.IsTerminal() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestValidateTransition(t *testing.T) {
	valid := []struct{ from, to Status }{
		{StatusQueued, StatusRunning},
		{StatusQueued, StatusCancelled},
		{StatusRunning, StatusCompleted},
		{StatusRunning, StatusFailed},
		{StatusRunning, StatusCancelled},
	}
	for _, tc := range valid {
		if err := ValidateTransition(tc.from, tc.to); err != nil {
			t.Errorf("ValidateTransition(%s, %s) = %v, want nil", tc.from, tc.to, err)
		}
	}

	invalid := []struct{ from, to Status }{
		{StatusQueued, StatusCompleted},
		{StatusCompleted, StatusQueued},
		{StatusFailed, StatusRunning},
		{StatusCancelled, StatusQueued},
		{StatusRunning, StatusQueued},
	}
	for _, tc := range invalid {
		if err := ValidateTransition(tc.from, tc.to); err == nil {
			t.Errorf("ValidateTransition(%s, %s) = nil, want error", tc.from, tc.to)
		}
	}
}

func TestEnqueue_RunsToCompletion(t *testing.T) {
	svc := NewService(testConfig(2), newMockRepo(), zerolog.Nop())
	svc.RegisterRunner("echo", func(_ context.Context, j *Job) (json.RawMessage, error) {
		return j.Parameters, nil
	})

	params := json.RawMessage(`{"metric":"steps"}`)
	j, err := svc.Enqueue(context.Background(), "u1", "echo", PriorityHigh, params)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if j.Status != StatusQueued {
		t.Errorf("initial status = %s, want queued", j.Status)
	}

	final := waitForTerminal(t, svc, "u1", j.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("final status = %s, want completed", final.Status)
	}
	if string(final.Result) != string(params) {
		t.Errorf("result = %s, want %s", final.Result, params)
	}
	if final.StartedAt == nil || final.CompletedAt == nil {
		t.Errorf("expected started and completed timestamps, got %+v", final)
	}
}

func TestEnqueue_RunnerErrorFailsJob(t *testing.T) {
	svc := NewService(testConfig(1), newMockRepo(), zerolog.Nop())
	svc.RegisterRunner("boom", func(_ context.Context, _ *Job) (json.RawMessage, error) {
		return nil, errors.New("extraction blew up")
	})

	j, err := svc.Enqueue(context.Background(), "u1", "boom", "", nil)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if j.Priority != PriorityMedium {
		t.Errorf("default priority = %s, want medium", j.Priority)
	}

	final := waitForTerminal(t, svc, "u1", j.ID)
	if final.Status != StatusFailed {
		t.Fatalf("final status = %s, want failed", final.Status)
	}
	if final.Error == nil || *final.Error != "extraction blew up" {
		t.Errorf("error = %v, want extraction blew up", final.Error)
	}
}

func TestEnqueue_UnknownTypeRejected(t *testing.T) {
	svc := NewService(testConfig(1), newMockRepo(), zerolog.Nop())

	_, err := svc.Enqueue(context.Background(), "u1", "nope", "", nil)
	if !engineerr.Is(err, engineerr.CodeInvalidRequest) {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestEnqueue_UnknownPriorityRejected(t *testing.T) {
	svc := NewService(testConfig(1), newMockRepo(), zerolog.Nop())
	svc.RegisterRunner("echo", func(_ context.Context, j *Job) (json.RawMessage, error) {
		return nil, nil
	})

	_, err := svc.Enqueue(context.Background(), "u1", "echo", Priority("asap"), nil)
	if !engineerr.Is(err, engineerr.CodeInvalidRequest) {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestCancel_RunningJob(t *testing.T) {
	svc := NewService(testConfig(1), newMockRepo(), zerolog.Nop())

	started := make(chan struct{})
	svc.RegisterRunner("block", func(ctx context.Context, _ *Job) (json.RawMessage, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	j, err := svc.Enqueue(context.Background(), "u1", "block", "", nil)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	<-started

	cancelled, err := svc.Cancel(context.Background(), "u1", j.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}

	svc.Wait()

	// The worker must not overwrite the terminal state after unblocking.
	final, err := svc.Get(context.Background(), "u1", j.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if final.Status != StatusCancelled {
		t.Errorf("final status = %s, want cancelled", final.Status)
	}
}

func TestCancel_TerminalJobRejected(t *testing.T) {
	svc := NewService(testConfig(1), newMockRepo(), zerolog.Nop())
	svc.RegisterRunner("echo", func(_ context.Context, _ *Job) (json.RawMessage, error) {
		return nil, nil
	})

	j, err := svc.Enqueue(context.Background(), "u1", "echo", "", nil)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitForTerminal(t, svc, "u1", j.ID)

	if _, err := svc.Cancel(context.Background(), "u1", j.ID); !engineerr.Is(err, engineerr.CodeInvalidRequest) {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestCancel_OtherUsersJobHidden(t *testing.T) {
	svc := NewService(testConfig(1), newMockRepo(), zerolog.Nop())
	svc.RegisterRunner("echo", func(_ context.Context, _ *Job) (json.RawMessage, error) {
		return nil, nil
	})

	j, err := svc.Enqueue(context.Background(), "u1", "echo", "", nil)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if _, err := svc.Cancel(context.Background(), "u2", j.ID); !engineerr.Is(err, engineerr.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestWorkerPoolBound(t *testing.T) {
	svc := NewService(testConfig(2), newMockRepo(), zerolog.Nop())

	var running, peak int32
	svc.RegisterRunner("slow", func(_ context.Context, _ *Job) (json.RawMessage, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil, nil
	})

	ids := make([]uuid.UUID, 0, 6)
	for i := 0; i < 6; i++ {
		j, err := svc.Enqueue(context.Background(), "u1", "slow", "", nil)
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		ids = append(ids, j.ID)
	}
	svc.Wait()

	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
	for _, id := range ids {
		j, err := svc.Get(context.Background(), "u1", id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if j.Status != StatusCompleted {
			t.Errorf("job %s status = %s, want completed", id, j.Status)
		}
	}
}
