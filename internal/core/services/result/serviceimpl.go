package result

import (
	"context"
	"fmt"

	"gitlab.com/resultrelay.net/internal/core/ports/primary"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
	"gitlab.com/resultrelay.net/internal/domain"
	"gitlab.com/resultrelay.net/internal/static/errs"
	"gitlab.com/resultrelay.net/internal/webhook"
)

var _ IResultService = (*ResultService)(nil)

// ResultService orchestrates the completion and polling paths
type ResultService struct {
	jobs      secondary.JobPort
	presigner secondary.Presigner
	pusher    Pusher
	logger    primary.Logger
}

// NewResultService creates a new result service
func NewResultService(
	jobs secondary.JobPort,
	presigner secondary.Presigner,
	pusher Pusher,
	logger primary.Logger,
) *ResultService {
	return &ResultService{
		jobs:      jobs,
		presigner: presigner,
		pusher:    pusher,
		logger:    logger,
	}
}

// HandleCompletion processes a verified callback. Persisting status plus at
// least the primary location is the minimum success condition; presign
// failures degrade per location; a push miss is expected steady state.
func (s *ResultService) HandleCompletion(ctx context.Context, cb *webhook.VerifiedCallback) (*CompletionOutcome, error) {
	event := cb.Event
	if event.JobID == "" {
		return nil, errs.MissingJobID
	}

	keys := normalizeKeys(event.PrimaryKey(), event.S3ResultPaths)
	if len(keys) == 0 {
		return nil, errs.MissingResultKey
	}
	primaryKey := keys[0]

	tier, err := s.jobs.WriteResult(ctx, event.JobID, domain.JobStatusCompleted, primaryKey, keys)
	if err != nil {
		s.logger.Error("Failed to persist completion", "jobId", event.JobID, "error", err)
		return nil, fmt.Errorf("%w: %v", errs.ResultNotPersist, err)
	}
	if tier == secondary.WriteTierPrimary && len(keys) > 1 {
		s.logger.Warn("Persisted primary location only", "jobId", event.JobID, "dropped", len(keys)-1)
	}

	urls := s.signAll(ctx, keys)
	if len(urls) == 0 {
		// one best-effort retry for the primary alone before giving up
		if url, err := s.presigner.Sign(ctx, primaryKey); err == nil {
			urls = append(urls, url)
		} else {
			s.logger.Error("Presign fallback failed", "jobId", event.JobID, "key", primaryKey, "error", err)
			return nil, errs.PresignFailed
		}
	}

	payload := domain.NewDeliveredResult(event.JobID, domain.JobStatusCompleted, urls)
	pushed := s.pusher.Push(event.JobID, payload)

	return &CompletionOutcome{
		JobID:      event.JobID,
		ResultURLs: urls,
		Pushed:     pushed,
		WriteTier:  tier,
	}, nil
}

// Status rebuilds the same answer the push path would have delivered, from
// persisted state alone.
func (s *ResultService) Status(ctx context.Context, jobID string) (*domain.DeliveredResult, error) {
	if jobID == "" {
		return nil, errs.MissingJobID
	}

	rec, err := s.jobs.GetRecord(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job record: %w", err)
	}
	if rec == nil {
		return nil, errs.JobNotFound
	}

	if rec.Status != domain.JobStatusCompleted {
		return domain.NewDeliveredResult(jobID, rec.Status, nil), nil
	}

	urls := s.signAll(ctx, rec.ResultKeys())
	return domain.NewDeliveredResult(jobID, rec.Status, urls), nil
}

// signAll presigns every key, skipping individual failures
func (s *ResultService) signAll(ctx context.Context, keys []string) []string {
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		url, err := s.presigner.Sign(ctx, key)
		if err != nil {
			s.logger.Warn("Skipping unpresignable result location", "key", key, "error", err)
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

// normalizeKeys returns the primary location first, followed by any listed
// locations, deduplicated with order preserved. When no explicit primary is
// reported the first listed location takes its place.
func normalizeKeys(primaryKey string, listed []string) []string {
	keys := make([]string, 0, len(listed)+1)
	seen := make(map[string]struct{}, len(listed)+1)

	appendKey := func(key string) {
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	appendKey(primaryKey)
	for _, key := range listed {
		appendKey(key)
	}

	return keys
}
