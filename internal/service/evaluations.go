// Package service applies validation, ownership and error classification on
// top of the repositories.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/metrics"
	"github.com/Clark-Hu/cinerate/internal/repository"
)

// Top-rated limits.
const (
	DefaultTopRatedLimit = 10
	MaxTopRatedLimit     = 100
)

// EvaluationStore is the persistence the evaluation service depends on.
type EvaluationStore interface {
	Upsert(ctx context.Context, params repository.EvaluationUpsertParams) (domain.Evaluation, bool, error)
	GetByID(ctx context.Context, id int64) (domain.Evaluation, error)
	GetByUserAndMovie(ctx context.Context, userID, movieID int64) (domain.Evaluation, error)
	ListByMovie(ctx context.Context, movieID int64) ([]domain.Evaluation, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Evaluation, error)
	Statistics(ctx context.Context, movieID int64) (domain.EvaluationStats, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	DeleteOwned(ctx context.Context, id, userID int64) (bool, error)
	DeleteByUserAndMovie(ctx context.Context, userID, movieID int64) (bool, error)
	TopRated(ctx context.Context, limit int) ([]domain.RatedMovie, error)
}

// MovieLookup answers whether a movie exists.
type MovieLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// EvaluationInput is one rating submitted by a user.
type EvaluationInput struct {
	MovieID int64
	Rating  int
	Comment *string
}

// EvaluationService implements the evaluation use cases.
type EvaluationService struct {
	store  EvaluationStore
	movies MovieLookup
}

// NewEvaluationService wires the service to its collaborators.
func NewEvaluationService(store EvaluationStore, movies MovieLookup) *EvaluationService {
	return &EvaluationService{store: store, movies: movies}
}

// Upsert records userID's evaluation of a movie, replacing any previous one.
// The returned bool is true when a new evaluation was created.
func (s *EvaluationService) Upsert(ctx context.Context, userID int64, in EvaluationInput) (domain.Evaluation, bool, error) {
	if err := validateInput(in); err != nil {
		return domain.Evaluation{}, false, err
	}
	if err := s.requireMovie(ctx, in.MovieID); err != nil {
		return domain.Evaluation{}, false, err
	}
	return s.write(ctx, userID, in)
}

// UpsertBatch applies inputs in order. Every item is validated, and every
// referenced movie checked, before the first write. Writes are not wrapped in
// a transaction: when one fails, earlier items stay committed and the error
// carries the "applied" count.
func (s *EvaluationService) UpsertBatch(ctx context.Context, userID int64, inputs []EvaluationInput) ([]domain.Evaluation, error) {
	if len(inputs) == 0 {
		return nil, domain.Validationf("evaluations must be a non-empty array")
	}
	for i, in := range inputs {
		if err := validateInput(in); err != nil {
			return nil, withIndex(err, i)
		}
	}
	checked := make(map[int64]struct{}, len(inputs))
	for i, in := range inputs {
		if _, ok := checked[in.MovieID]; ok {
			continue
		}
		if err := s.requireMovie(ctx, in.MovieID); err != nil {
			return nil, withIndex(err, i)
		}
		checked[in.MovieID] = struct{}{}
	}

	results := make([]domain.Evaluation, 0, len(inputs))
	for i, in := range inputs {
		evaluation, _, err := s.write(ctx, userID, in)
		if err != nil {
			return results, withIndex(err, i).WithDetail("applied", len(results))
		}
		results = append(results, evaluation)
	}
	return results, nil
}

// GetByID returns one evaluation.
func (s *EvaluationService) GetByID(ctx context.Context, id int64) (domain.Evaluation, error) {
	evaluation, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Evaluation{}, translate(err, "evaluation not found")
	}
	return evaluation, nil
}

// GetByUserAndMovie returns the evaluation userID left on movieID.
func (s *EvaluationService) GetByUserAndMovie(ctx context.Context, userID, movieID int64) (domain.Evaluation, error) {
	evaluation, err := s.store.GetByUserAndMovie(ctx, userID, movieID)
	if err != nil {
		return domain.Evaluation{}, translate(err, "evaluation not found")
	}
	return evaluation, nil
}

// ListByMovie returns every evaluation of a movie. An unknown movie yields an
// empty list.
func (s *EvaluationService) ListByMovie(ctx context.Context, movieID int64) ([]domain.Evaluation, error) {
	items, err := s.store.ListByMovie(ctx, movieID)
	if err != nil {
		return nil, domain.Internal(err, "failed to list evaluations")
	}
	return items, nil
}

// ListByUser returns every evaluation written by userID.
func (s *EvaluationService) ListByUser(ctx context.Context, userID int64) ([]domain.Evaluation, error) {
	items, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, "failed to list evaluations")
	}
	return items, nil
}

// Statistics summarises a movie's evaluations; all zeros when there are none.
func (s *EvaluationService) Statistics(ctx context.Context, movieID int64) (domain.EvaluationStats, error) {
	stats, err := s.store.Statistics(ctx, movieID)
	if err != nil {
		return domain.EvaluationStats{}, domain.Internal(err, "failed to compute statistics")
	}
	return stats, nil
}

// DeleteByID removes an evaluation without an ownership check.
func (s *EvaluationService) DeleteByID(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return domain.Internal(err, "failed to delete evaluation")
	}
	if !deleted {
		return domain.NotFoundf("evaluation not found")
	}
	metrics.RecordDelete()
	return nil
}

// DeleteOwned removes evaluation id on behalf of actorID. A caller who does
// not own the evaluation gets FORBIDDEN and nothing is deleted.
func (s *EvaluationService) DeleteOwned(ctx context.Context, actorID, id int64) error {
	evaluation, err := s.store.GetByID(ctx, id)
	if err != nil {
		return translate(err, "evaluation not found")
	}
	if evaluation.UserID != actorID {
		return domain.Forbiddenf("you can only delete your own evaluations")
	}
	deleted, err := s.store.DeleteOwned(ctx, id, actorID)
	if err != nil {
		return domain.Internal(err, "failed to delete evaluation")
	}
	if !deleted {
		// removed concurrently
		return domain.NotFoundf("evaluation not found")
	}
	metrics.RecordDelete()
	return nil
}

// DeleteByUserAndMovie removes userID's evaluation of movieID.
func (s *EvaluationService) DeleteByUserAndMovie(ctx context.Context, userID, movieID int64) error {
	deleted, err := s.store.DeleteByUserAndMovie(ctx, userID, movieID)
	if err != nil {
		return domain.Internal(err, "failed to delete evaluation")
	}
	if !deleted {
		return domain.NotFoundf("evaluation not found")
	}
	metrics.RecordDelete()
	return nil
}

// TopRated ranks evaluated movies by average rating. limit <= 0 means
// DefaultTopRatedLimit; larger values are capped at MaxTopRatedLimit.
func (s *EvaluationService) TopRated(ctx context.Context, limit int) ([]domain.RatedMovie, error) {
	items, err := s.store.TopRated(ctx, ClampTopRatedLimit(limit))
	if err != nil {
		return nil, domain.Internal(err, "failed to rank movies")
	}
	return items, nil
}

// ClampTopRatedLimit normalises a requested ranking size.
func ClampTopRatedLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultTopRatedLimit
	case limit > MaxTopRatedLimit:
		return MaxTopRatedLimit
	default:
		return limit
	}
}

func (s *EvaluationService) write(ctx context.Context, userID int64, in EvaluationInput) (domain.Evaluation, bool, error) {
	evaluation, inserted, err := s.store.Upsert(ctx, repository.EvaluationUpsertParams{
		UserID:  userID,
		MovieID: in.MovieID,
		Rating:  in.Rating,
		Comment: normalizeComment(in.Comment),
	})
	if err != nil {
		return domain.Evaluation{}, false, translateWrite(err)
	}
	metrics.RecordUpsert(inserted)
	return evaluation, inserted, nil
}

func (s *EvaluationService) requireMovie(ctx context.Context, movieID int64) error {
	exists, err := s.movies.Exists(ctx, movieID)
	if err != nil {
		return domain.Internal(err, "failed to load movie")
	}
	if !exists {
		return domain.NotFoundf("movie not found").WithDetail("movieId", movieID)
	}
	return nil
}

func validateInput(in EvaluationInput) *domain.Error {
	if in.MovieID <= 0 {
		return domain.Validationf("movieId must be a positive integer")
	}
	if !domain.ValidRating(in.Rating) {
		return domain.Validationf("rating must be an integer between %d and %d", domain.MinRating, domain.MaxRating).
			WithDetail("rating", in.Rating)
	}
	return nil
}

func normalizeComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// translateWrite maps constraint failures of an upsert onto domain kinds.
// A missing user or movie surfaces as NOT_FOUND.
func translateWrite(err error) *domain.Error {
	switch {
	case errors.Is(err, repository.ErrForeignKey):
		if repository.ConstraintName(err) == repository.EvaluationUserFK {
			return domain.NotFoundf("user not found")
		}
		return domain.NotFoundf("movie not found")
	case errors.Is(err, repository.ErrCheck):
		return domain.Validationf("rating must be an integer between %d and %d", domain.MinRating, domain.MaxRating)
	default:
		return domain.Internal(err, "failed to save evaluation")
	}
}

func translate(err error, notFound string) *domain.Error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFoundf("%s", notFound)
	}
	return domain.Internal(err, "unexpected storage error")
}

func withIndex(err error, index int) *domain.Error {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.Internal(err, "unexpected error")
	}
	return de.WithDetail("index", index)
}
