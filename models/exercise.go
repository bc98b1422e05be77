package models

import "time"

// Exercise is shared catalog data: looked up by key, never owned by a user.
type Exercise struct {
	ID          string    `json:"id" firestore:"-"`
	Name        string    `json:"name" firestore:"name"`
	Description string    `json:"description,omitempty" firestore:"description,omitempty"`
	MuscleGroup string    `json:"muscle_group,omitempty" firestore:"muscle_group,omitempty"`
	VideoUrl    string    `json:"video_url,omitempty" firestore:"video_url,omitempty"`
	Type        string    `json:"type,omitempty" firestore:"type,omitempty"`
	CreatedAt   time.Time `json:"created_at" firestore:"created_at"`
}
