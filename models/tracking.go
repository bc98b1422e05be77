package models

import "time"

// WorkoutSetLog is one set inside a completed workout; logs are embedded in
// the workout document, never queried as their own collection.
type WorkoutSetLog struct {
	ExerciseId string  `json:"exercise_id" firestore:"exercise_id" validate:"required"`
	SetNumber  int     `json:"set_number" firestore:"set_number"`
	Reps       int     `json:"reps" firestore:"reps"`
	WeightKg   float64 `json:"weight_kg" firestore:"weight_kg"`
	Notes      string  `json:"notes,omitempty" firestore:"notes,omitempty"`
}

type ScheduledWorkout struct {
	ID              string          `json:"id" firestore:"-"`
	UserId          string          `json:"user_id" firestore:"user_id"`
	RoutineId       string          `json:"routine_id,omitempty" firestore:"routine_id,omitempty"`
	ScheduledDate   time.Time       `json:"scheduled_date" firestore:"scheduled_date"`
	Status          WorkoutStatus   `json:"status" firestore:"status"`
	Note            string          `json:"note,omitempty" firestore:"note,omitempty"`
	DurationSeconds int             `json:"duration_seconds,omitempty" firestore:"duration_seconds,omitempty"`
	CaloriesBurned  float64         `json:"calories_burned,omitempty" firestore:"calories_burned,omitempty"`
	Logs            []WorkoutSetLog `json:"logs" firestore:"logs"`
	CreatedAt       time.Time       `json:"created_at" firestore:"created_at"`
}

// WorkoutSessionLog is the quick-log input for a completed session.
type WorkoutSessionLog struct {
	RoutineId       string          `json:"routine_id" validate:"required"`
	DurationSeconds int             `json:"duration_seconds" validate:"gte=0"`
	CaloriesBurned  float64         `json:"calories_burned" validate:"gte=0"`
	Rating          int             `json:"rating" validate:"gte=0,lte=5"`
	Difficulty      string          `json:"difficulty,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Logs            []WorkoutSetLog `json:"logs"`
}

// WorkoutCompletionResponse reports the XP outcome of a finished session.
// LevelUp is computed from the pre- and post-update XP, never from a stored
// level field.
type WorkoutCompletionResponse struct {
	Workout     ScheduledWorkout `json:"workout"`
	XpGained    int64            `json:"xp_gained"`
	NewTotalXp  int64            `json:"new_total_xp"`
	NewLevel    int              `json:"new_level"`
	LevelUp     bool             `json:"level_up"`
	Rank        RankTier         `json:"rank"`
	PrevLevelXp int64            `json:"prev_level_xp"`
	NextLevelXp int64            `json:"next_level_xp"`
}
