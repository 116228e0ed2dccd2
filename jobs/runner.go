package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spot-letter/events"
	"spot-letter/logger"
	"spot-letter/metrics"
	"spot-letter/models"
	"spot-letter/trace"
)

// errStopped 는 체크포인트에서 작업이 더 이상 processing 이 아님을 발견했다는 뜻이다.
// 실패가 아니므로 아무것도 기록하지 않는다.
var errStopped = errors.New("job no longer processing")

type jobBody func(ctx context.Context, finished *events.JobFinishedEvent) error

// runJob 은 두 실행기가 공유하는 상태 기계다.
// pending 에서 processing 으로 가져온 실행기만 body 를 실행한다.
// 반환 에러는 상태 저장 자체가 실패한 경우뿐이며 이벤트 재시도 대상이다.
func runJob(ctx context.Context, kind events.JobKind, store jobStateStore, notifier FinishNotifier, id primitive.ObjectID, body jobBody) error {
	ctx = trace.WithJob(ctx, id.Hex())
	fields := logger.Fields{"job_id": id.Hex(), "kind": string(kind)}

	claimed, err := store.MarkProcessing(ctx, id)
	if err != nil {
		return fmt.Errorf("claim %s job %s: %w", kind, id.Hex(), err)
	}
	if !claimed {
		logger.InfoWithFields("job is not pending, skipping", fields)
		return nil
	}

	label := string(kind)
	metrics.JobsActive.WithLabelValues(label).Inc()
	started := time.Now()
	defer func() {
		metrics.JobsActive.WithLabelValues(label).Dec()
		metrics.JobDuration.WithLabelValues(label).Observe(time.Since(started).Seconds())
	}()
	logger.InfoWithFields("job started", fields)

	finished := events.JobFinishedEvent{JobID: id.Hex(), Kind: kind}
	runErr := safeRun(ctx, &finished, body)

	switch {
	case errors.Is(runErr, errStopped):
		metrics.JobsFinished.WithLabelValues(label, string(models.JobCancelled)).Inc()
		logger.InfoWithFields("job stopped at checkpoint", fields)
		return nil

	case runErr != nil:
		fields["error"] = runErr.Error()
		ok, ferr := store.Fail(ctx, id, runErr.Error())
		if ferr != nil {
			// 재시도해도 claim 이 실패하므로 이벤트는 소비한다.
			fields["persist_error"] = ferr.Error()
			logger.ErrorWithFields("failed to record job failure", fields)
			return nil
		}
		if !ok {
			logger.InfoWithFields("job failed after being cancelled, keeping cancelled", fields)
			return nil
		}
		metrics.JobsFinished.WithLabelValues(label, string(models.JobFailed)).Inc()
		logger.ErrorWithFields("job failed", fields)
		finished.Status = string(models.JobFailed)
		finished.Error = runErr.Error()
		notify(ctx, notifier, finished)
		return nil
	}

	metrics.JobsFinished.WithLabelValues(label, string(models.JobCompleted)).Inc()
	fields["items"] = finished.ItemCount
	logger.InfoWithFields("job completed", fields)
	finished.Status = string(models.JobCompleted)
	notify(ctx, notifier, finished)
	return nil
}

func safeRun(ctx context.Context, finished *events.JobFinishedEvent, body jobBody) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorWithFields("job panicked", logger.Fields{
				"job_id": finished.JobID,
				"panic":  fmt.Sprint(r),
				"stack":  string(debug.Stack()),
			})
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return body(ctx, finished)
}

// checkpoint 는 영속된 상태를 다시 읽는다. 외부에서 취소되었으면 errStopped 다.
func checkpoint(ctx context.Context, store jobStateStore, id primitive.ObjectID, stage string) error {
	status, err := store.Status(ctx, id)
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", stage, err)
	}
	if status != models.JobProcessing {
		logger.InfoWithFields("job status changed externally", logger.Fields{
			"job_id": id.Hex(), "stage": stage, "status": string(status),
		})
		return errStopped
	}
	return nil
}
