package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var validPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// statusTransitions defines valid job status transitions. Terminal states
// have no exits.
var statusTransitions = map[Status][]Status{
	StatusQueued:    {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// ValidateTransition checks that moving a job from one status to another is
// allowed by the lifecycle.
func ValidateTransition(from, to Status) error {
	allowed, ok := statusTransitions[from]
	if !ok {
		return fmt.Errorf("unknown from-status: %s", from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("invalid job transition from %s to %s", from, to)
}

// IsTerminal reports whether a job in this status can never change again.
func (s Status) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// Job is a queued analytics run. Result and Error are populated only on
// terminal states.
type Job struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	Type        string          `db:"type" json:"type"`
	Status      Status          `db:"status" json:"status"`
	Priority    Priority        `db:"priority" json:"priority"`
	Parameters  json.RawMessage `db:"parameters" json:"parameters,omitempty"`
	Result      json.RawMessage `db:"result" json:"result,omitempty"`
	Error       *string         `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	StartedAt   *time.Time      `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}
