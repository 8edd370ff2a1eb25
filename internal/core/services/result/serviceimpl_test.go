package result

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/resultrelay.net/internal/adapter/logging"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
	"gitlab.com/resultrelay.net/internal/domain"
	"gitlab.com/resultrelay.net/internal/static/errs"
	"gitlab.com/resultrelay.net/internal/webhook"
)

type fakeJobPort struct {
	records map[string]*domain.Job

	writeTier    secondary.WriteTier
	writeErr     error
	writtenJobID string
	writtenKeys  []string
	writtenPrim  string
}

func (f *fakeJobPort) CreateIntent(ctx context.Context, job *domain.Job) error { return nil }

func (f *fakeJobPort) GetOwner(ctx context.Context, jobID string) (*string, error) {
	rec, ok := f.records[jobID]
	if !ok {
		return nil, nil
	}
	return rec.OwnerID, nil
}

func (f *fakeJobPort) GetRecord(ctx context.Context, jobID string) (*domain.Job, error) {
	rec, ok := f.records[jobID]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (f *fakeJobPort) WriteResult(ctx context.Context, jobID string, status domain.JobStatus, primaryKey string, keys []string) (secondary.WriteTier, error) {
	if f.writeErr != nil {
		return secondary.WriteTierNone, f.writeErr
	}
	f.writtenJobID = jobID
	f.writtenPrim = primaryKey
	f.writtenKeys = keys
	if f.records == nil {
		f.records = make(map[string]*domain.Job)
	}
	f.records[jobID] = &domain.Job{
		ID:            jobID,
		Status:        status,
		S3ResultPath:  &primaryKey,
		S3ResultPaths: keys,
	}
	if f.writeTier == secondary.WriteTierNone {
		return secondary.WriteTierFull, nil
	}
	return f.writeTier, nil
}

type fakePresigner struct {
	failKeys map[string]bool
	failAll  bool
	calls    int
}

func (f *fakePresigner) Sign(ctx context.Context, key string) (string, error) {
	f.calls++
	if f.failAll || f.failKeys[key] {
		return "", errors.New("presign failure")
	}
	return "https://signed.example/" + key, nil
}

type fakePusher struct {
	delivered bool
	jobID     string
	payload   interface{}
}

func (f *fakePusher) Push(jobID string, payload interface{}) bool {
	f.jobID = jobID
	f.payload = payload
	return f.delivered
}

func newCallback(jobID, primary string, listed ...string) *webhook.VerifiedCallback {
	return &webhook.VerifiedCallback{
		Event: webhook.CompletionEvent{
			JobID:         jobID,
			S3ResultPath:  primary,
			S3ResultPaths: listed,
		},
		Signature:  "sig",
		ReceivedAt: time.Now(),
	}
}

func newService(jobs *fakeJobPort, presigner *fakePresigner, pusher *fakePusher) *ResultService {
	return NewResultService(jobs, presigner, pusher, logging.NewZapLogger())
}

func TestHandleCompletionSingleLocation(t *testing.T) {
	jobs := &fakeJobPort{}
	pusher := &fakePusher{delivered: true}
	svc := newService(jobs, &fakePresigner{}, pusher)

	outcome, err := svc.HandleCompletion(context.Background(), newCallback("J1", "out/J1.zip"))
	require.NoError(t, err)

	assert.True(t, outcome.Pushed)
	assert.Equal(t, []string{"https://signed.example/out/J1.zip"}, outcome.ResultURLs)
	assert.Equal(t, "out/J1.zip", jobs.writtenPrim)
	assert.Equal(t, []string{"out/J1.zip"}, jobs.writtenKeys)

	payload, ok := pusher.payload.(*domain.DeliveredResult)
	require.True(t, ok)
	assert.Equal(t, "J1", payload.JobID)
	assert.Equal(t, domain.JobStatusCompleted, payload.Status)
	require.NotNil(t, payload.ResultURL)
	assert.Equal(t, "https://signed.example/out/J1.zip", *payload.ResultURL)
}

func TestHandleCompletionNormalizesPrimaryFirstDeduplicated(t *testing.T) {
	jobs := &fakeJobPort{}
	svc := newService(jobs, &fakePresigner{}, &fakePusher{})

	outcome, err := svc.HandleCompletion(context.Background(), newCallback("J1", "a", "b", "a"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, jobs.writtenKeys)
	assert.Equal(t, []string{
		"https://signed.example/a",
		"https://signed.example/b",
	}, outcome.ResultURLs)
}

func TestHandleCompletionListOnlyPromotesFirstToPrimary(t *testing.T) {
	jobs := &fakeJobPort{}
	svc := newService(jobs, &fakePresigner{}, &fakePusher{})

	_, err := svc.HandleCompletion(context.Background(), newCallback("J1", "", "x", "y"))
	require.NoError(t, err)

	assert.Equal(t, "x", jobs.writtenPrim)
	assert.Equal(t, []string{"x", "y"}, jobs.writtenKeys)
}

func TestHandleCompletionValidation(t *testing.T) {
	svc := newService(&fakeJobPort{}, &fakePresigner{}, &fakePusher{})

	_, err := svc.HandleCompletion(context.Background(), newCallback("", "out/J1.zip"))
	assert.ErrorIs(t, err, errs.MissingJobID)

	_, err = svc.HandleCompletion(context.Background(), newCallback("J1", ""))
	assert.ErrorIs(t, err, errs.MissingResultKey)
}

func TestHandleCompletionPersistFailureIsFatal(t *testing.T) {
	jobs := &fakeJobPort{writeErr: errors.New("db down")}
	presigner := &fakePresigner{}
	svc := newService(jobs, presigner, &fakePusher{})

	_, err := svc.HandleCompletion(context.Background(), newCallback("J1", "out/J1.zip"))
	assert.ErrorIs(t, err, errs.ResultNotPersist)
	assert.Zero(t, presigner.calls, "no presigning after a failed persist")
}

func TestHandleCompletionPartialWriteStillSucceeds(t *testing.T) {
	jobs := &fakeJobPort{writeTier: secondary.WriteTierPrimary}
	svc := newService(jobs, &fakePresigner{}, &fakePusher{})

	outcome, err := svc.HandleCompletion(context.Background(), newCallback("J1", "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, secondary.WriteTierPrimary, outcome.WriteTier)
	assert.Len(t, outcome.ResultURLs, 2)
}

func TestHandleCompletionSkipsFailingKeys(t *testing.T) {
	svc := newService(&fakeJobPort{}, &fakePresigner{failKeys: map[string]bool{"b": true}}, &fakePusher{})

	outcome, err := svc.HandleCompletion(context.Background(), newCallback("J1", "a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://signed.example/a",
		"https://signed.example/c",
	}, outcome.ResultURLs)
}

func TestHandleCompletionAllPresignsFail(t *testing.T) {
	svc := newService(&fakeJobPort{}, &fakePresigner{failAll: true}, &fakePusher{})

	_, err := svc.HandleCompletion(context.Background(), newCallback("J1", "out/J1.zip"))
	assert.ErrorIs(t, err, errs.PresignFailed)
}

func TestHandleCompletionPushMissIsNotAnError(t *testing.T) {
	svc := newService(&fakeJobPort{}, &fakePresigner{}, &fakePusher{delivered: false})

	outcome, err := svc.HandleCompletion(context.Background(), newCallback("J1", "out/J1.zip"))
	require.NoError(t, err)
	assert.False(t, outcome.Pushed)
	assert.NotEmpty(t, outcome.ResultURLs)
}

func TestStatusUnknownJob(t *testing.T) {
	svc := newService(&fakeJobPort{}, &fakePresigner{}, &fakePusher{})

	_, err := svc.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.JobNotFound)
}

func TestStatusPendingJobHasNoURLs(t *testing.T) {
	jobs := &fakeJobPort{records: map[string]*domain.Job{
		"J1": {ID: "J1", Status: domain.JobStatusPending},
	}}
	presigner := &fakePresigner{}
	svc := newService(jobs, presigner, &fakePusher{})

	res, err := svc.Status(context.Background(), "J1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, res.Status)
	assert.Nil(t, res.ResultURL)
	assert.Nil(t, res.ResultURLs)
	assert.Zero(t, presigner.calls)
}

func TestStatusCompletedResignsFreshly(t *testing.T) {
	primary := "out/J1.zip"
	jobs := &fakeJobPort{records: map[string]*domain.Job{
		"J1": {ID: "J1", Status: domain.JobStatusCompleted, S3ResultPath: &primary},
	}}
	presigner := &fakePresigner{}
	svc := newService(jobs, presigner, &fakePusher{})

	res, err := svc.Status(context.Background(), "J1")
	require.NoError(t, err)
	require.NotNil(t, res.ResultURL)
	assert.Equal(t, "https://signed.example/out/J1.zip", *res.ResultURL)

	// every query signs again, nothing is cached
	_, err = svc.Status(context.Background(), "J1")
	require.NoError(t, err)
	assert.Equal(t, 2, presigner.calls)
}

func TestStatusCompletedPrefersListColumn(t *testing.T) {
	primary := "a"
	jobs := &fakeJobPort{records: map[string]*domain.Job{
		"J1": {ID: "J1", Status: domain.JobStatusCompleted, S3ResultPath: &primary, S3ResultPaths: []string{"a", "b"}},
	}}
	svc := newService(jobs, &fakePresigner{}, &fakePusher{})

	res, err := svc.Status(context.Background(), "J1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://signed.example/a",
		"https://signed.example/b",
	}, res.ResultURLs)
}

func TestStatusCompletedOmitsURLsWhenAllPresignsFail(t *testing.T) {
	primary := "out/J1.zip"
	jobs := &fakeJobPort{records: map[string]*domain.Job{
		"J1": {ID: "J1", Status: domain.JobStatusCompleted, S3ResultPath: &primary},
	}}
	svc := newService(jobs, &fakePresigner{failAll: true}, &fakePusher{})

	res, err := svc.Status(context.Background(), "J1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, res.Status)
	assert.Nil(t, res.ResultURL)
	assert.Nil(t, res.ResultURLs)
}
