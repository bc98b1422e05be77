package models

import "time"

// DietPlan is the second kind of top-level owned content, sharing the
// routine's visibility and denormalized rating shape.
type DietPlan struct {
	ID                  string    `json:"id,omitempty" firestore:"-"`
	Name                string    `json:"name" firestore:"name"`
	Description         string    `json:"description,omitempty" firestore:"description,omitempty"`
	ImageUrl            string    `json:"image_url,omitempty" firestore:"image_url,omitempty"`
	DailyCaloriesTarget int64     `json:"daily_calories_target" firestore:"daily_calories_target"`
	CreatorId           string    `json:"creator_id" firestore:"creator_id"`
	IsPublic            bool      `json:"is_public" firestore:"is_public"`
	RatingSum           float64   `json:"rating_sum" firestore:"rating_sum"`
	RatingCount         int64     `json:"rating_count" firestore:"rating_count"`
	CreatedAt           time.Time `json:"created_at" firestore:"created_at"`
}

func (d *DietPlan) AverageRating() float64 {
	if d.RatingCount == 0 {
		return 0
	}
	return d.RatingSum / float64(d.RatingCount)
}

// DietFood links a DietPlan to a catalog Food for one meal slot.
type DietFood struct {
	ID         string   `json:"id,omitempty" firestore:"-"`
	DietId     string   `json:"diet_id" firestore:"diet_id"`
	FoodId     string   `json:"food_id" firestore:"food_id"`
	MealName   string   `json:"meal_name,omitempty" firestore:"meal_name,omitempty"`
	DayOfWeek  *int     `json:"day_of_week,omitempty" firestore:"day_of_week,omitempty"`
	OrderIndex *int     `json:"order_index,omitempty" firestore:"order_index,omitempty"`
	QuantityG  *float64 `json:"quantity_g,omitempty" firestore:"quantity_g,omitempty"`

	Food *Food `json:"food,omitempty" firestore:"-"`
}
