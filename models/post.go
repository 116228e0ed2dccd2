package models

import "time"

// RawPost 는 콘텐츠 소스에서 가져온 게시물이다. 파이프라인 메모리에만 존재한다.
type RawPost struct {
	ExternalID   string    `bson:"external_id" json:"external_id"`
	Caption      string    `bson:"caption" json:"caption"`
	MediaType    string    `bson:"media_type" json:"media_type"`
	MediaURL     string    `bson:"media_url" json:"media_url"`
	Permalink    string    `bson:"permalink" json:"permalink"`
	Timestamp    time.Time `bson:"timestamp" json:"timestamp"`
	LocationName string    `bson:"location_name,omitempty" json:"location_name,omitempty"`
}

// PostSummary 는 작업 결과에 남기는 게시물 요약이다.
type PostSummary struct {
	ExternalID     string    `bson:"external_id" json:"external_id"`
	Permalink      string    `bson:"permalink" json:"permalink"`
	MediaType      string    `bson:"media_type" json:"media_type"`
	MediaURL       string    `bson:"media_url,omitempty" json:"media_url,omitempty"`
	CaptionExcerpt string    `bson:"caption_excerpt" json:"caption_excerpt"`
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
	CandidateCount int       `bson:"candidate_count" json:"candidate_count"`
}

const captionExcerptRunes = 100

// Summary 는 게시물을 결과 스냅샷용 요약으로 변환한다.
func (p RawPost) Summary(candidateCount int) PostSummary {
	return PostSummary{
		ExternalID:     p.ExternalID,
		Permalink:      p.Permalink,
		MediaType:      p.MediaType,
		MediaURL:       p.MediaURL,
		CaptionExcerpt: p.Excerpt(),
		Timestamp:      p.Timestamp,
		CandidateCount: candidateCount,
	}
}

// Excerpt 는 캡션의 앞부분을 룬 단위로 자른다.
func (p RawPost) Excerpt() string {
	r := []rune(p.Caption)
	if len(r) <= captionExcerptRunes {
		return p.Caption
	}
	return string(r[:captionExcerptRunes])
}

// CandidateName 은 캡션이나 위치 태그에서 추출한 장소 이름이다.
type CandidateName struct {
	Name                 string    `bson:"name" json:"name"`
	SourcePostID         string    `bson:"source_post_id" json:"source_post_id"`
	Permalink            string    `bson:"permalink" json:"permalink"`
	CaptionExcerpt       string    `bson:"caption_excerpt" json:"caption_excerpt"`
	PostedAt             time.Time `bson:"posted_at" json:"posted_at"`
	FromEmbeddedLocation bool      `bson:"from_embedded_location" json:"from_embedded_location"`
}
