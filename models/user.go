package models

import "time"

type User struct {
	ID               string    `json:"id" firestore:"-"`
	Username         string    `json:"username" firestore:"username"`
	Email            string    `json:"email" firestore:"email"`
	ProfilePicture   string    `json:"profile_picture,omitempty" firestore:"profile_picture,omitempty"`
	Xp               int64     `json:"xp" firestore:"xp"`
	CurrentWeight    *float64  `json:"current_weight,omitempty" firestore:"current_weight,omitempty"`
	Height           *int      `json:"height,omitempty" firestore:"height,omitempty"`
	DailyCalorieGoal int64     `json:"daily_calorie_goal,omitempty" firestore:"daily_calorie_goal,omitempty"`
	CurrentDietId    string    `json:"current_diet_id,omitempty" firestore:"current_diet_id,omitempty"`
	CurrentRoutineId string    `json:"current_routine_id,omitempty" firestore:"current_routine_id,omitempty"`
	CreatedAt        time.Time `json:"created_at" firestore:"created_at"`
}
