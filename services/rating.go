package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
)

// RatingSummary is the parent's denormalized rating pair after a rate call.
type RatingSummary struct {
	RatingSum     float64 `json:"rating_sum"`
	RatingCount   int64   `json:"rating_count"`
	AverageRating float64 `json:"average_rating"`
}

// RateContent records one user's score for a routine or diet. The store
// cannot enforce the one-rating-per-(rater, content) rule, so the service
// checks by lookup before writing: a first rating adds a record and grows
// the parent's sum/count pair, a repeat rating rewrites the existing record
// and shifts the sum by the score difference, leaving the count alone.
//
// The parent's rating_sum and rating_count are written together here and
// nowhere else; the average is derived, never stored.
func RateContent(ctx context.Context, st store.Store, raterID string, in models.RatingInput) (*RatingSummary, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := in.ContentType.Valid(); err != nil {
		return nil, err
	}
	desc, err := resolveContentType(in.ContentType)
	if err != nil {
		return nil, err
	}
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	parent, err := st.Get(ctx, desc.Collection, in.ContentId)
	if err != nil {
		return nil, fmt.Errorf("rate %s/%s: %w", desc.Collection, in.ContentId, err)
	}

	existing, err := st.Query(ctx, models.CollectionContentRatings, []store.Filter{
		{Field: "rater_id", Value: raterID},
		{Field: "content_type", Value: string(in.ContentType)},
		{Field: "content_id", Value: in.ContentId},
	}, nil, 1)
	if err != nil {
		return nil, fmt.Errorf("lookup rating: %w", err)
	}

	prevSum, _ := asFloat(parent.Data["rating_sum"])
	prevCountF, _ := asFloat(parent.Data["rating_count"])
	prevCount := int64(prevCountF)

	var sumDelta float64
	var countDelta int64
	if len(existing) == 0 {
		sumDelta = float64(in.Score)
		countDelta = 1
		_, err = st.Add(ctx, models.CollectionContentRatings, map[string]any{
			"rater_id":     raterID,
			"content_type": string(in.ContentType),
			"content_id":   in.ContentId,
			"score":        in.Score,
			"created_at":   time.Now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("store rating: %w", err)
		}
	} else {
		oldScore, _ := asFloat(existing[0].Data["score"])
		sumDelta = float64(in.Score) - oldScore
		err = st.Update(ctx, models.CollectionContentRatings, existing[0].Key, []store.UpdateOp{
			store.SetField("score", in.Score),
			store.SetField("created_at", time.Now().UTC()),
		})
		if err != nil {
			return nil, fmt.Errorf("update rating: %w", err)
		}
	}

	ops := []store.UpdateOp{store.Increment("rating_sum", sumDelta)}
	if countDelta != 0 {
		ops = append(ops, store.Increment("rating_count", countDelta))
	}
	if err := st.Update(ctx, desc.Collection, in.ContentId, ops); err != nil {
		return nil, fmt.Errorf("update %s rating summary: %w", desc.Collection, err)
	}

	sum := prevSum + sumDelta
	count := prevCount + countDelta
	avg := float64(0)
	if count > 0 {
		avg = sum / float64(count)
	}
	return &RatingSummary{RatingSum: sum, RatingCount: count, AverageRating: avg}, nil
}
