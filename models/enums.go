package models

import "errors"

// ContentType tags the dynamic reference a Post or ContentRating carries.
// The store cannot enforce this as a foreign key; services resolve it
// through a dispatch table instead of branching on raw strings.
type ContentType string

const (
	ContentTypeRoutine ContentType = "routine"
	ContentTypeDiet    ContentType = "diet"
)

func (t ContentType) Valid() error {
	switch t {
	case ContentTypeRoutine, ContentTypeDiet:
		return nil
	}
	return errors.New("invalid content type")
}

type WorkoutStatus string

const (
	WorkoutStatusPending   WorkoutStatus = "pending"
	WorkoutStatusCompleted WorkoutStatus = "completed"
	WorkoutStatusSkipped   WorkoutStatus = "skipped"
)

// RankTier is derived from level, never stored.
type RankTier string

const (
	RankBronze   RankTier = "Bronze"
	RankSilver   RankTier = "Silver"
	RankGold     RankTier = "Gold"
	RankPlatinum RankTier = "Platinum"
	RankDiamond  RankTier = "Diamond"
	RankChampion RankTier = "Champion"
)

type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"
)
