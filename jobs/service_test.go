package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"spot-letter/apperrors"
	"spot-letter/events"
	"spot-letter/models"
)

type serviceFixture struct {
	imports  *memoryImportJobs
	saves    *memorySaveJobs
	requests *recordingRequests
	notifier *recordingNotifier
	svc      *Service
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		imports:  newMemoryImportJobs(),
		saves:    newMemorySaveJobs(),
		requests: &recordingRequests{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewService(f.imports, f.saves, f.requests, f.notifier)
	return f
}

func TestCreateImportJobDispatches(t *testing.T) {
	f := newServiceFixture()

	id, err := f.svc.CreateImportJob(context.Background(), "u1", window)
	require.NoError(t, err)
	assert.Equal(t, []string{"import:" + id}, f.requests.requested)

	view, err := f.svc.GetImportJob(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, view.Status)
	assert.Nil(t, view.Result)
}

func TestCreateImportJobValidatesInput(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.CreateImportJob(context.Background(), "", window)
	assert.Equal(t, apperrors.KindInvalid, apperrors.KindOf(err))

	reversed := models.TimeWindow{Start: window.End, End: window.Start}
	_, err = f.svc.CreateImportJob(context.Background(), "u1", reversed)
	assert.Equal(t, apperrors.KindInvalid, apperrors.KindOf(err))
	assert.Empty(t, f.requests.requested)
}

func TestCreateJobDispatchFailureClosesJob(t *testing.T) {
	f := newServiceFixture()
	f.requests.err = errors.New("broker unavailable")

	_, err := f.svc.CreateSaveJob(context.Background(), "u1", []models.EnrichedCandidate{candidate("A", "g1", "p1")})
	require.Error(t, err)

	for id := range f.saves.jobs {
		status, msg := f.saves.get(id)
		assert.Equal(t, models.JobFailed, status)
		assert.Contains(t, msg, "broker unavailable")
	}
}

func TestCreateSaveJobRequiresCandidates(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.CreateSaveJob(context.Background(), "u1", nil)
	assert.Equal(t, apperrors.KindInvalid, apperrors.KindOf(err))
}

func TestGetJobErrors(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.GetImportJob(context.Background(), "not-hex")
	assert.Equal(t, apperrors.KindInvalid, apperrors.KindOf(err))

	_, err = f.svc.GetSaveJob(context.Background(), primitive.NewObjectID().Hex())
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestCancelImportJob(t *testing.T) {
	f := newServiceFixture()
	id, err := f.svc.CreateImportJob(context.Background(), "u1", window)
	require.NoError(t, err)

	ok, err := f.svc.CancelImportJob(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, f.notifier.finished, 1)
	assert.Equal(t, events.JobKindImport, f.notifier.finished[0].Kind)
	assert.Equal(t, "cancelled", f.notifier.finished[0].Status)

	ok, err = f.svc.CancelImportJob(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok, "terminal job stays as is")
	assert.Len(t, f.notifier.finished, 1)

	view, err := f.svc.GetImportJob(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.JobCancelled, view.Status)
}

func TestCancelUnknownJob(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.CancelSaveJob(context.Background(), primitive.NewObjectID().Hex())
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
