package secondary

import (
	"context"

	"gitlab.com/resultrelay.net/internal/domain"
)

// WriteTier reports how much of a result write actually landed. The
// completion path degrades from the full schema (primary + list) to a
// primary-only write, and callers must be able to tell the two apart.
type WriteTier int

const (
	WriteTierNone WriteTier = iota
	WriteTierPrimary
	WriteTierFull
)

type JobPort interface {
	// CreateIntent inserts a PENDING upload job record
	CreateIntent(ctx context.Context, job *domain.Job) error

	// GetOwner returns the owner identity for a job, or nil when the job
	// record does not exist or carries no owner
	GetOwner(ctx context.Context, jobID string) (*string, error)

	// GetRecord returns the full job record, or nil when unknown
	GetRecord(ctx context.Context, jobID string) (*domain.Job, error)

	// WriteResult updates status and result locations, attempting the
	// richer schema first and falling back to the primary location alone
	WriteResult(ctx context.Context, jobID string, status domain.JobStatus, primaryKey string, keys []string) (WriteTier, error)
}
