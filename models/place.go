package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// EnrichedCandidate 는 장소 API 로 보강된 후보다.
type EnrichedCandidate struct {
	CandidateName `bson:",inline"`

	CanonicalName       string       `bson:"canonical_name" json:"canonical_name"`
	FormattedAddress    string       `bson:"formatted_address" json:"formatted_address"`
	Coordinates         *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	Tags                []string     `bson:"tags" json:"tags"`
	PrimaryType         string       `bson:"primary_type,omitempty" json:"primary_type,omitempty"`
	SummaryLocation     string       `bson:"summary_location,omitempty" json:"summary_location,omitempty"`
	ExternalPlaceID     string       `bson:"external_place_id" json:"external_place_id"`
	SecondaryProvider   string       `bson:"secondary_provider,omitempty" json:"secondary_provider,omitempty"`
	SecondaryProviderID string       `bson:"secondary_provider_id,omitempty" json:"secondary_provider_id,omitempty"`
}

// DisplayName 은 정규화된 이름이 있으면 그것을, 없으면 추출된 이름을 반환한다.
func (c EnrichedCandidate) DisplayName() string {
	if c.CanonicalName != "" {
		return c.CanonicalName
	}
	return c.Name
}

// Place 는 저장 작업이 만드는 사용자 소유 장소다.
// Collection: places, unique (owner_id, external_place_id)
type Place struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID          string             `bson:"owner_id" json:"owner_id"`
	ExternalPlaceID  string             `bson:"external_place_id" json:"external_place_id"`
	Name             string             `bson:"name" json:"name"`
	FormattedAddress string             `bson:"formatted_address" json:"formatted_address"`
	Coordinates      *Coordinates       `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	Tags             []string           `bson:"tags" json:"tags"`
	Category         string             `bson:"category" json:"category"`
	SummaryLocation  string             `bson:"summary_location,omitempty" json:"summary_location,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}
