package places

import (
	"context"

	"spot-letter/models"
)

// AddressComponent 는 장소 API 의 주소 구성 요소다.
type AddressComponent struct {
	LongText  string
	ShortText string
	Types     []string
}

func (c AddressComponent) HasType(t string) bool {
	for _, ct := range c.Types {
		if ct == t {
			return true
		}
	}
	return false
}

// PlaceResult 는 텍스트 검색 결과 한 건이다.
type PlaceResult struct {
	ExternalID        string
	Name              string
	Address           string
	Coordinates       *models.Coordinates
	Tags              []string
	PrimaryType       string
	AddressComponents []AddressComponent
}

// ReverseResult 는 역지오코딩 제공자 어휘 그대로의 결과다.
type ReverseResult struct {
	Country     string
	CountryCode string
	State       string
	City        string
	Town        string
	Village     string
}

// SearchClient 는 장소 텍스트 검색 클라이언트다. language/region 이 비면 제공자 기본값이다.
type SearchClient interface {
	SearchText(ctx context.Context, query, language, region string) ([]PlaceResult, error)
}

// ReverseGeocoder 는 좌표를 행정 구역으로 바꾼다.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64, language string) (*ReverseResult, error)
}

// Cache 는 이름별 해석 결과 캐시다. cache.PlaceCache 가 구현한다.
type Cache interface {
	Get(ctx context.Context, key string) (*Resolution, bool)
	Set(ctx context.Context, key string, r Resolution) error
}

// Resolution 은 후보 이름과 무관한 해석 결과다.
type Resolution struct {
	CanonicalName    string              `json:"canonical_name"`
	FormattedAddress string              `json:"formatted_address"`
	Coordinates      *models.Coordinates `json:"coordinates,omitempty"`
	Tags             []string            `json:"tags"`
	PrimaryType      string              `json:"primary_type,omitempty"`
	SummaryLocation  string              `json:"summary_location,omitempty"`
	ExternalPlaceID  string              `json:"external_place_id"`
}

// Apply 는 해석 결과로 후보를 보강한다.
func (r Resolution) Apply(c models.CandidateName) *models.EnrichedCandidate {
	return &models.EnrichedCandidate{
		CandidateName:    c,
		CanonicalName:    r.CanonicalName,
		FormattedAddress: r.FormattedAddress,
		Coordinates:      r.Coordinates,
		Tags:             r.Tags,
		PrimaryType:      r.PrimaryType,
		SummaryLocation:  r.SummaryLocation,
		ExternalPlaceID:  r.ExternalPlaceID,
	}
}
