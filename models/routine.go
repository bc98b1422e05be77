package models

import "time"

// Routine is a top-level owned content entity. RatingSum/RatingCount are a
// denormalized pair kept consistent by the rating service alone; the average
// is always derived, never stored.
type Routine struct {
	ID          string    `json:"id,omitempty" firestore:"-"`
	Name        string    `json:"name" firestore:"name"`
	Description string    `json:"description,omitempty" firestore:"description,omitempty"`
	CreatorId   string    `json:"creator_id" firestore:"creator_id"`
	IsPublic    bool      `json:"is_public" firestore:"is_public"`
	RatingSum   float64   `json:"rating_sum" firestore:"rating_sum"`
	RatingCount int64     `json:"rating_count" firestore:"rating_count"`
	CreatedAt   time.Time `json:"created_at" firestore:"created_at"`
}

func (r *Routine) AverageRating() float64 {
	if r.RatingCount == 0 {
		return 0
	}
	return r.RatingSum / float64(r.RatingCount)
}

// RoutineExercise links a Routine to a catalog Exercise with ordering and
// target metadata. OrderIndex is unique per (routine, day_of_week) by
// convention only; the store does not enforce it and readers must not assume
// it.
type RoutineExercise struct {
	ID            string `json:"id,omitempty" firestore:"-"`
	RoutineId     string `json:"routine_id" firestore:"routine_id"`
	ExerciseId    string `json:"exercise_id" firestore:"exercise_id"`
	DayOfWeek     *int   `json:"day_of_week,omitempty" firestore:"day_of_week,omitempty"`
	OrderIndex    *int   `json:"order_index,omitempty" firestore:"order_index,omitempty"`
	TargetSets    *int   `json:"target_sets,omitempty" firestore:"target_sets,omitempty"`
	TargetRepsMin *int   `json:"target_reps_min,omitempty" firestore:"target_reps_min,omitempty"`
	TargetRepsMax *int   `json:"target_reps_max,omitempty" firestore:"target_reps_max,omitempty"`

	// Exercise is the resolved catalog record; nil when the reference
	// dangles.
	Exercise *Exercise `json:"exercise,omitempty" firestore:"-"`
}
