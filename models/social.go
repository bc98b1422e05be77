package models

import "time"

// ContentRef is the tagged reference a Post or ContentRating carries instead
// of a store-enforced foreign key.
type ContentRef struct {
	Type ContentType `json:"content_type" validate:"required"`
	ID   string      `json:"content_id" validate:"required"`
}

type Post struct {
	ID            string      `json:"id" firestore:"-"`
	ContentType   ContentType `json:"content_type" firestore:"content_type"`
	ContentId     string      `json:"content_id" firestore:"content_id"`
	ContentName   string      `json:"content_name" firestore:"content_name"`
	ContentImage  string      `json:"content_image,omitempty" firestore:"content_image,omitempty"`
	CreatorId     string      `json:"creator_id" firestore:"creator_id"`
	CreatorName   string      `json:"creator_name" firestore:"creator_name"`
	CreatorAvatar string      `json:"creator_avatar,omitempty" firestore:"creator_avatar,omitempty"`
	Likes         []string    `json:"likes" firestore:"likes"`
	RatingSum     float64     `json:"rating_sum" firestore:"rating_sum"`
	RatingCount   int64       `json:"rating_count" firestore:"rating_count"`
	CreatedAt     time.Time   `json:"created_at" firestore:"created_at"`
}

func (p *Post) AverageRating() float64 {
	if p.RatingCount == 0 {
		return 0
	}
	return p.RatingSum / float64(p.RatingCount)
}

// ContentRating is one rater's score for one piece of content. At most one
// record may exist per (rater, content-type, content-id); the store cannot
// enforce that, the rating service checks by lookup before writing.
type ContentRating struct {
	ID          string      `json:"id" firestore:"-"`
	RaterId     string      `json:"rater_id" firestore:"rater_id"`
	ContentType ContentType `json:"content_type" firestore:"content_type"`
	ContentId   string      `json:"content_id" firestore:"content_id"`
	Score       int         `json:"score" firestore:"score"`
	CreatedAt   time.Time   `json:"created_at" firestore:"created_at"`
}

// PostInput is the share payload.
type PostInput struct {
	ContentType   ContentType `json:"content_type" validate:"required"`
	ContentId     string      `json:"content_id" validate:"required"`
	ContentName   string      `json:"content_name" validate:"required"`
	ContentImage  string      `json:"content_image,omitempty"`
	CreatorName   string      `json:"creator_name"`
	CreatorAvatar string      `json:"creator_avatar,omitempty"`
}

// RatingInput is the rate payload.
type RatingInput struct {
	ContentType ContentType `json:"content_type" validate:"required"`
	ContentId   string      `json:"content_id" validate:"required"`
	Score       int         `json:"score" validate:"gte=1,lte=5"`
}
