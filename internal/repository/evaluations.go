package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinerate/internal/domain"
)

// EvaluationsRepository owns the movie_evaluations table.
type EvaluationsRepository struct {
	pool *pgxpool.Pool
}

// EvaluationUpsertParams captures the payload required to upsert an evaluation.
type EvaluationUpsertParams struct {
	UserID  int64
	MovieID int64
	Rating  int
	Comment *string
}

// Constraint names raised by movie_evaluations writes.
const (
	EvaluationUserFK  = "movie_evaluations_user_id_fkey"
	EvaluationMovieFK = "movie_evaluations_movie_id_fkey"
)

const evaluationProjection = `
    e.id,
    e.user_id,
    e.movie_id,
    e.rating,
    e.comment,
    e.created_at,
    e.updated_at,
    COALESCE(m.title, ''),
    COALESCE(m.genre, ''),
    COALESCE(u.username, '')
`

const evaluationJoins = `
    LEFT JOIN movies m ON m.id = e.movie_id
    LEFT JOIN users u ON u.id = e.user_id
`

// Upsert creates the (user, movie) evaluation or overwrites rating, comment
// and updated_at of the existing one in a single statement, so concurrent
// callers can never produce two rows. It reports whether a row was inserted.
func (r *EvaluationsRepository) Upsert(ctx context.Context, params EvaluationUpsertParams) (domain.Evaluation, bool, error) {
	query := fmt.Sprintf(`
        WITH e AS (
            INSERT INTO movie_evaluations (user_id, movie_id, rating, comment)
            VALUES ($1,$2,$3,$4)
            ON CONFLICT (user_id, movie_id)
            DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = now()
            RETURNING id, user_id, movie_id, rating, comment, created_at, updated_at, (xmax = 0) AS inserted
        )
        SELECT %s, e.inserted
        FROM e
        %s
    `, evaluationProjection, evaluationJoins)

	var inserted bool
	evaluation, err := scanEvaluation(r.pool.QueryRow(ctx, query, params.UserID, params.MovieID, params.Rating, params.Comment), &inserted)
	if err != nil {
		return domain.Evaluation{}, false, classify(err)
	}
	return evaluation, inserted, nil
}

// GetByID returns one evaluation with movie and rater details.
func (r *EvaluationsRepository) GetByID(ctx context.Context, id int64) (domain.Evaluation, error) {
	query := fmt.Sprintf(`SELECT %s FROM movie_evaluations e %s WHERE e.id = $1`, evaluationProjection, evaluationJoins)
	evaluation, err := scanEvaluation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Evaluation{}, classify(err)
	}
	return evaluation, nil
}

// GetByUserAndMovie returns the evaluation a user left on a movie.
func (r *EvaluationsRepository) GetByUserAndMovie(ctx context.Context, userID, movieID int64) (domain.Evaluation, error) {
	query := fmt.Sprintf(`SELECT %s FROM movie_evaluations e %s WHERE e.user_id = $1 AND e.movie_id = $2`, evaluationProjection, evaluationJoins)
	evaluation, err := scanEvaluation(r.pool.QueryRow(ctx, query, userID, movieID))
	if err != nil {
		return domain.Evaluation{}, classify(err)
	}
	return evaluation, nil
}

// ListByMovie returns a movie's evaluations, most recent first.
func (r *EvaluationsRepository) ListByMovie(ctx context.Context, movieID int64) ([]domain.Evaluation, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM movie_evaluations e %s
        WHERE e.movie_id = $1
        ORDER BY e.created_at DESC, e.id DESC
    `, evaluationProjection, evaluationJoins)
	return r.list(ctx, query, movieID)
}

// ListByUser returns a user's evaluations, most recent first.
func (r *EvaluationsRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Evaluation, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM movie_evaluations e %s
        WHERE e.user_id = $1
        ORDER BY e.created_at DESC, e.id DESC
    `, evaluationProjection, evaluationJoins)
	return r.list(ctx, query, userID)
}

func (r *EvaluationsRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.Evaluation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Evaluation, 0)
	for rows.Next() {
		evaluation, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, evaluation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Statistics aggregates a movie's evaluations; every field is 0 when none exist.
func (r *EvaluationsRepository) Statistics(ctx context.Context, movieID int64) (domain.EvaluationStats, error) {
	const query = `
        SELECT COALESCE(AVG(rating), 0)::float8,
               COUNT(*)::int8,
               COALESCE(MIN(rating), 0)::int4,
               COALESCE(MAX(rating), 0)::int4
        FROM movie_evaluations
        WHERE movie_id = $1
    `
	stats := domain.EvaluationStats{MovieID: movieID}
	err := r.pool.QueryRow(ctx, query, movieID).Scan(
		&stats.AverageRating,
		&stats.TotalEvaluations,
		&stats.MinRating,
		&stats.MaxRating,
	)
	if err != nil {
		return domain.EvaluationStats{}, fmt.Errorf("evaluation statistics: %w", err)
	}
	return stats, nil
}

// DeleteByID removes one evaluation and reports whether a row was removed.
func (r *EvaluationsRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM movie_evaluations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete evaluation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteOwned removes evaluation id only if it belongs to userID.
func (r *EvaluationsRepository) DeleteOwned(ctx context.Context, id, userID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM movie_evaluations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete evaluation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByUserAndMovie removes a user's evaluation of a movie.
func (r *EvaluationsRepository) DeleteByUserAndMovie(ctx context.Context, userID, movieID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM movie_evaluations WHERE user_id = $1 AND movie_id = $2`, userID, movieID)
	if err != nil {
		return false, fmt.Errorf("delete evaluation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TopRated ranks movies having at least one evaluation by average rating.
// Ties fall back to evaluation count (descending) and then movie id.
func (r *EvaluationsRepository) TopRated(ctx context.Context, limit int) ([]domain.RatedMovie, error) {
	const query = `
        SELECT m.id, m.title, m.genre, m.director, m.year, m.description, m.created_at, m.updated_at,
               AVG(e.rating)::float8 AS average_rating,
               COUNT(e.id)::int8 AS total_evaluations
        FROM movies m
        JOIN movie_evaluations e ON e.movie_id = m.id
        GROUP BY m.id
        HAVING COUNT(e.id) > 0
        ORDER BY average_rating DESC, total_evaluations DESC, m.id ASC
        LIMIT $1
    `
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top rated: %w", err)
	}
	defer rows.Close()

	items := make([]domain.RatedMovie, 0, limit)
	for rows.Next() {
		var rm domain.RatedMovie
		if err := rows.Scan(
			&rm.ID,
			&rm.Title,
			&rm.Genre,
			&rm.Director,
			&rm.Year,
			&rm.Description,
			&rm.CreatedAt,
			&rm.UpdatedAt,
			&rm.AverageRating,
			&rm.TotalEvaluations,
		); err != nil {
			return nil, err
		}
		items = append(items, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// scanEvaluation reads the evaluation projection followed by any extra
// destinations the query appends.
func scanEvaluation(row pgx.Row, extra ...interface{}) (domain.Evaluation, error) {
	var evaluation domain.Evaluation
	dest := []interface{}{
		&evaluation.ID,
		&evaluation.UserID,
		&evaluation.MovieID,
		&evaluation.Rating,
		&evaluation.Comment,
		&evaluation.CreatedAt,
		&evaluation.UpdatedAt,
		&evaluation.MovieTitle,
		&evaluation.MovieGenre,
		&evaluation.Username,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Evaluation{}, err
	}
	return evaluation, nil
}
