package models

import "fmt"

// Collection names. The store has no schema; these strings are the only
// registry of what lives where.
const (
	CollectionUsers             = "users"
	CollectionExercises         = "exercises"
	CollectionFoods             = "foods"
	CollectionRoutines          = "routines"
	CollectionRoutineExercises  = "routine_exercises"
	CollectionDiets             = "diets"
	CollectionDietFoods         = "diet_foods"
	CollectionScheduledWorkouts = "scheduled_workouts"
	CollectionPosts             = "posts"
	CollectionContentRatings    = "content_ratings"
)

// NutritionLogCollection is the per-user subcollection holding one daily
// ledger document per calendar day, keyed by "YYYY-MM-DD".
func NutritionLogCollection(userID string) string {
	return fmt.Sprintf("%s/%s/nutrition_logs", CollectionUsers, userID)
}
