package result

import (
	"context"

	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
	"gitlab.com/resultrelay.net/internal/domain"
	"gitlab.com/resultrelay.net/internal/webhook"
)

// Pusher is the slice of the connection registry the service needs
type Pusher interface {
	Push(jobID string, payload interface{}) bool
}

// CompletionOutcome reports what the completion path achieved. Pushed only
// affects the acknowledgment text; persistence already succeeded by the
// time it is set.
type CompletionOutcome struct {
	JobID      string
	ResultURLs []string
	Pushed     bool
	WriteTier  secondary.WriteTier
}

type IResultService interface {
	// HandleCompletion ingests a verified completion callback: normalize
	// locations, persist, presign, push
	HandleCompletion(ctx context.Context, cb *webhook.VerifiedCallback) (*CompletionOutcome, error)

	// Status reconstructs the delivered result purely from persisted
	// state, independent of any live registration
	Status(ctx context.Context, jobID string) (*domain.DeliveredResult, error)
}
