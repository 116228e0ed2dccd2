package jobs

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spot-letter/apperrors"
	"spot-letter/models"
)

type PlaceReader interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Place, error)
}

type MappingLister interface {
	ListByPlace(ctx context.Context, placeID primitive.ObjectID) ([]models.InventoryMapping, error)
}

// PlaceDetail 은 저장된 장소와 연결된 인벤토리 매핑이다.
type PlaceDetail struct {
	Place    models.Place              `json:"place"`
	Mappings []models.InventoryMapping `json:"mappings"`
}

// PlaceReport 는 완료된 저장 작업이 만든 장소를 현재 상태로 다시 읽는다.
type PlaceReport struct {
	saves    SaveJobStore
	places   PlaceReader
	mappings MappingLister
}

func NewPlaceReport(saves SaveJobStore, places PlaceReader, mappings MappingLister) *PlaceReport {
	return &PlaceReport{saves: saves, places: places, mappings: mappings}
}

// ForSaveJob 은 작업 결과 순서대로 장소와 매핑을 돌려준다. 같은 장소는 한 번만 나온다.
func (r *PlaceReport) ForSaveJob(ctx context.Context, jobID string) ([]PlaceDetail, error) {
	const op = "jobs.PlaceReport.ForSaveJob"
	oid, err := parseJobID(op, jobID)
	if err != nil {
		return nil, err
	}
	job, err := r.saves.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(op, err)
	}
	if job.Status != models.JobCompleted || job.Result == nil {
		return nil, apperrors.New(apperrors.KindInvalid, op, 0, "save job "+jobID+" is "+string(job.Status))
	}

	seen := map[primitive.ObjectID]struct{}{}
	out := make([]PlaceDetail, 0, len(job.Result.Saved))
	for _, s := range job.Result.Saved {
		if _, dup := seen[s.PlaceID]; dup {
			continue
		}
		seen[s.PlaceID] = struct{}{}

		place, err := r.places.FindByID(ctx, s.PlaceID)
		if err != nil {
			return nil, notFound(op, err)
		}
		mappings, err := r.mappings.ListByPlace(ctx, s.PlaceID)
		if err != nil {
			return nil, err
		}
		out = append(out, PlaceDetail{Place: *place, Mappings: mappings})
	}
	return out, nil
}
