package models

import "time"

// Food is shared catalog data, macro values per Quantity grams.
type Food struct {
	ID          string    `json:"id" firestore:"-"`
	Name        string    `json:"name" firestore:"name"`
	Brand       string    `json:"brand,omitempty" firestore:"brand,omitempty"`
	Calories    float64   `json:"calories" firestore:"calories"`
	Protein     float64   `json:"protein" firestore:"protein"`
	Carbs       float64   `json:"carbs" firestore:"carbs"`
	Fat         float64   `json:"fat" firestore:"fat"`
	ImageUrl    string    `json:"image_url,omitempty" firestore:"image_url,omitempty"`
	Barcode     string    `json:"barcode,omitempty" firestore:"barcode,omitempty"`
	Quantity    float64   `json:"quantity" firestore:"quantity"`
	ServingSize string    `json:"serving_size,omitempty" firestore:"serving_size,omitempty"`
	CreatedAt   time.Time `json:"created_at" firestore:"created_at"`
}
