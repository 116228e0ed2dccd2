package jobs

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spot-letter/apperrors"
	"spot-letter/events"
	"spot-letter/logger"
	"spot-letter/models"
	"spot-letter/repositories"
)

// JobStatusView 는 폴링하는 쪽에 보여주는 작업 스냅샷이다.
type JobStatusView[R any] struct {
	ID         string           `json:"id"`
	Status     models.JobStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
	Result     *R               `json:"result,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// Service 는 작업 생성/조회/취소 진입점이다. 실행은 이벤트를 받은 워커가 한다.
type Service struct {
	imports  ImportJobStore
	saves    SaveJobStore
	requests RequestPublisher
	notifier FinishNotifier
}

func NewService(imports ImportJobStore, saves SaveJobStore, requests RequestPublisher, notifier FinishNotifier) *Service {
	return &Service{imports: imports, saves: saves, requests: requests, notifier: notifier}
}

// CreateImportJob 은 pending 작업을 만들고 실행 요청을 발행한다.
func (s *Service) CreateImportJob(ctx context.Context, userID string, window models.TimeWindow) (string, error) {
	const op = "create import job"
	if userID == "" {
		return "", apperrors.New(apperrors.KindInvalid, op, 0, "user id is required")
	}
	if window.Start.IsZero() || window.End.IsZero() || window.End.Before(window.Start) {
		return "", apperrors.New(apperrors.KindInvalid, op, 0, "window start must not be after end")
	}

	job, err := s.imports.Create(ctx, userID, window)
	if err != nil {
		return "", err
	}
	if err := s.dispatch(ctx, s.imports, events.JobKindImport, job.ID, userID); err != nil {
		return "", err
	}
	return job.ID.Hex(), nil
}

func (s *Service) GetImportJob(ctx context.Context, id string) (*JobStatusView[models.ImportResult], error) {
	oid, err := parseJobID("get import job", id)
	if err != nil {
		return nil, err
	}
	job, err := s.imports.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound("get import job", err)
	}
	return &JobStatusView[models.ImportResult]{
		ID:         job.ID.Hex(),
		Status:     job.Status,
		Error:      job.Error,
		Result:     job.Result,
		CreatedAt:  job.CreatedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}, nil
}

// CancelImportJob 은 종료되지 않은 작업을 cancelled 로 바꾼다. 이미 종료된 작업이면 false 다.
func (s *Service) CancelImportJob(ctx context.Context, id string) (bool, error) {
	return s.cancel(ctx, s.imports, events.JobKindImport, id)
}

// CreateSaveJob 은 사용자가 고른 후보로 저장 작업을 만든다.
func (s *Service) CreateSaveJob(ctx context.Context, userID string, candidates []models.EnrichedCandidate) (string, error) {
	const op = "create save job"
	if userID == "" {
		return "", apperrors.New(apperrors.KindInvalid, op, 0, "user id is required")
	}
	if len(candidates) == 0 {
		return "", apperrors.New(apperrors.KindInvalid, op, 0, "at least one candidate is required")
	}

	job, err := s.saves.Create(ctx, userID, candidates)
	if err != nil {
		return "", err
	}
	if err := s.dispatch(ctx, s.saves, events.JobKindSave, job.ID, userID); err != nil {
		return "", err
	}
	return job.ID.Hex(), nil
}

func (s *Service) GetSaveJob(ctx context.Context, id string) (*JobStatusView[models.SaveResult], error) {
	oid, err := parseJobID("get save job", id)
	if err != nil {
		return nil, err
	}
	job, err := s.saves.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound("get save job", err)
	}
	return &JobStatusView[models.SaveResult]{
		ID:         job.ID.Hex(),
		Status:     job.Status,
		Error:      job.Error,
		Result:     job.Result,
		CreatedAt:  job.CreatedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}, nil
}

func (s *Service) CancelSaveJob(ctx context.Context, id string) (bool, error) {
	return s.cancel(ctx, s.saves, events.JobKindSave, id)
}

// dispatch 가 실패하면 작업이 pending 으로 남지 않도록 failed 로 닫는다.
func (s *Service) dispatch(ctx context.Context, store jobStateStore, kind events.JobKind, id primitive.ObjectID, userID string) error {
	err := s.requests.PublishRequested(ctx, kind, id.Hex(), userID)
	if err == nil {
		return nil
	}
	if _, ferr := store.Fail(ctx, id, "dispatch failed: "+err.Error()); ferr != nil {
		logger.ErrorWithFields("failed to close undispatched job", logger.Fields{
			"job_id": id.Hex(), "kind": string(kind), "error": ferr.Error(),
		})
	}
	return err
}

func (s *Service) cancel(ctx context.Context, store jobStateStore, kind events.JobKind, id string) (bool, error) {
	op := "cancel " + string(kind) + " job"
	oid, err := parseJobID(op, id)
	if err != nil {
		return false, err
	}
	ok, err := store.Cancel(ctx, oid)
	if err != nil {
		return false, err
	}
	if !ok {
		// 없는 작업과 이미 종료된 작업을 구분한다.
		if _, serr := store.Status(ctx, oid); serr != nil {
			return false, notFound(op, serr)
		}
		return false, nil
	}
	notify(ctx, s.notifier, events.JobFinishedEvent{JobID: id, Kind: kind, Status: string(models.JobCancelled)})
	return true, nil
}

func parseJobID(op, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperrors.New(apperrors.KindInvalid, op, 0, "invalid job id "+id)
	}
	return oid, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.Wrap(apperrors.KindNotFound, op, err)
	}
	return err
}

// notify 는 종료 알림을 보낸다. 실패는 로그만 남긴다.
func notify(ctx context.Context, n FinishNotifier, f events.JobFinishedEvent) {
	if n == nil {
		return
	}
	if err := n.PublishFinished(ctx, f); err != nil {
		logger.WarnWithFields("failed to publish job finished event", logger.Fields{
			"job_id": f.JobID, "kind": string(f.Kind), "status": f.Status, "error": err.Error(),
		})
	}
}
