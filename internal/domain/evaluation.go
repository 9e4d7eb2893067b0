package domain

import "time"

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// Evaluation is a user's single rating (and optional comment) for a movie.
// MovieTitle, MovieGenre and Username come from joins and may be empty when a
// projection does not include them.
type Evaluation struct {
	ID         int64
	UserID     int64
	MovieID    int64
	Rating     int
	Comment    *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	MovieTitle string
	MovieGenre string
	Username   string
}

// EvaluationStats aggregates every evaluation of one movie. All fields are
// zero when the movie has no evaluations.
type EvaluationStats struct {
	MovieID          int64
	AverageRating    float64
	TotalEvaluations int64
	MinRating        int
	MaxRating        int
}

// ValidRating reports whether r lies within [MinRating, MaxRating].
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
