package models

import "time"

// NutritionLogEntry is one logged food inside a daily ledger document.
type NutritionLogEntry struct {
	FoodName string    `json:"food_name" firestore:"food_name" validate:"required"`
	MealType MealType  `json:"meal_type" firestore:"meal_type"`
	Calories int64     `json:"calories" firestore:"calories" validate:"gte=0"`
	Protein  float64   `json:"protein" firestore:"protein" validate:"gte=0"`
	Carbs    float64   `json:"carbs" firestore:"carbs" validate:"gte=0"`
	Fat      float64   `json:"fat" firestore:"fat" validate:"gte=0"`
	LoggedAt time.Time `json:"logged_at" firestore:"logged_at"`
}

// DailyNutritionStats is the daily ledger document: one per (user, calendar
// day), totals always equal to the sum of Logs. Only the nutrition service
// writes totals, and only in the same update that appends the entry.
type DailyNutritionStats struct {
	Date          string              `json:"date" firestore:"date"`
	TotalCalories int64               `json:"total_calories" firestore:"total_calories"`
	TotalProtein  float64             `json:"total_protein" firestore:"total_protein"`
	TotalCarbs    float64             `json:"total_carbs" firestore:"total_carbs"`
	TotalFat      float64             `json:"total_fat" firestore:"total_fat"`
	GoalCalories  int64               `json:"goal_calories" firestore:"-"`
	Logs          []NutritionLogEntry `json:"logs" firestore:"logs"`
}
