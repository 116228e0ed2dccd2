// Package inventory 는 숙박 장소를 외부 인벤토리 카탈로그 항목과 연결한다.
package inventory

import (
	"context"

	"spot-letter/apperrors"
	"spot-letter/models"
)

const (
	ProviderRakuten = "rakuten"
	ProviderBooking = "booking"
)

// CatalogQuery 는 카탈로그 키워드 검색 요청이다.
type CatalogQuery struct {
	Keyword   string
	Location  *models.Coordinates
	Language  string
	Currency  string
	PartySize int
}

// CatalogEntry 는 카탈로그 항목 하나다. 좌표가 없을 수 있다.
type CatalogEntry struct {
	ID          string
	Title       string
	Address     string
	Coordinates *models.Coordinates
}

// CatalogResult 는 검색 결과와 판별자다. Kind 가 ok 가 아니면 Err 에 원인이 있다.
type CatalogResult struct {
	Kind    apperrors.Kind
	Entries []CatalogEntry
	Err     error
}

// Catalog 는 인벤토리 제공자의 키워드 검색 클라이언트다.
type Catalog interface {
	Provider() string
	SearchByKeyword(ctx context.Context, q CatalogQuery) CatalogResult
}

func okResult(entries []CatalogEntry) CatalogResult {
	if len(entries) == 0 {
		return CatalogResult{Kind: apperrors.KindNotFound}
	}
	return CatalogResult{Kind: apperrors.KindOK, Entries: entries}
}

func errResult(err error) CatalogResult {
	return CatalogResult{Kind: apperrors.KindOf(err), Err: err}
}
