package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InventoryMapping 은 장소와 숙박 인벤토리 제공자 항목의 연결이다.
// Collection: inventory_mappings, unique (place_id, provider)
type InventoryMapping struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlaceID        primitive.ObjectID `bson:"place_id" json:"place_id"`
	Provider       string             `bson:"provider" json:"provider"`
	ExternalID     string             `bson:"external_id" json:"external_id"`
	Title          string             `bson:"title,omitempty" json:"title,omitempty"`
	DistanceMeters *float64           `bson:"distance_meters,omitempty" json:"distance_meters,omitempty"`
	Score          *int               `bson:"score,omitempty" json:"score,omitempty"`
	// Degraded 는 채점 응답을 해석하지 못해 첫 후보를 채택한 경우 true 다.
	Degraded  bool      `bson:"degraded" json:"degraded"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ImportProvenance 는 장소가 어떤 게시물에서 왔는지 기록한다.
// Collection: import_provenances
type ImportProvenance struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlaceID      primitive.ObjectID `bson:"place_id" json:"place_id"`
	SourcePostID string             `bson:"source_post_id" json:"source_post_id"`
	RawPayload   map[string]any     `bson:"raw_payload,omitempty" json:"raw_payload,omitempty"`
	RecordedAt   time.Time          `bson:"recorded_at" json:"recorded_at"`
}

// ConnectedAccount 는 사용자가 연결한 콘텐츠 소스 계정이다.
// Collection: connected_accounts
type ConnectedAccount struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   string             `bson:"user_id" json:"user_id"`
	Provider string             `bson:"provider" json:"provider"`
	// AccountRef 는 instagram 이면 사용자 id, rss 면 피드 URL 이다.
	AccountRef  string    `bson:"account_ref" json:"account_ref"`
	AccessToken string    `bson:"access_token" json:"-"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

const (
	AccountProviderInstagram = "instagram"
	AccountProviderRSS       = "rss"
)
