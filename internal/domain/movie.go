package domain

import "time"

// Movie represents the canonical movie entity in the database/service.
type Movie struct {
	ID          int64
	Title       string
	Genre       string
	Director    *string
	Year        *int
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RatedMovie is a movie annotated with its evaluation aggregate, as returned
// by the top-rated ranking.
type RatedMovie struct {
	Movie
	AverageRating    float64
	TotalEvaluations int64
}
