package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/cinerate/internal/domain"
)

func newTestEvaluations(t *testing.T) (*EvaluationService, *fakeEvaluations) {
	t.Helper()
	store := newFakeEvaluations(1, 2)
	return NewEvaluationService(store, fakeMovies{10: true, 20: true}), store
}

func TestUpsertOverwritesSinglePair(t *testing.T) {
	svc, store := newTestEvaluations(t)
	ctx := context.Background()

	first, inserted, err := svc.Upsert(ctx, 1, EvaluationInput{MovieID: 10, Rating: 3})
	require.NoError(t, err)
	assert.True(t, inserted)

	comment := "  better on rewatch "
	second, inserted, err := svc.Upsert(ctx, 1, EvaluationInput{MovieID: 10, Rating: 5, Comment: &comment})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Rating)
	require.NotNil(t, second.Comment)
	assert.Equal(t, "better on rewatch", *second.Comment)
	assert.Len(t, store.rows, 1)
}

func TestUpsertValidation(t *testing.T) {
	svc, store := newTestEvaluations(t)
	blank := "   "

	tests := []struct {
		name string
		in   EvaluationInput
		kind domain.ErrorKind
	}{
		{"rating zero", EvaluationInput{MovieID: 10, Rating: 0}, domain.KindValidation},
		{"rating six", EvaluationInput{MovieID: 10, Rating: 6}, domain.KindValidation},
		{"missing movie id", EvaluationInput{Rating: 4}, domain.KindValidation},
		{"unknown movie", EvaluationInput{MovieID: 99, Rating: 4}, domain.KindNotFound},
		{"blank comment accepted", EvaluationInput{MovieID: 20, Rating: 4, Comment: &blank}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evaluation, _, err := svc.Upsert(context.Background(), 1, tt.in)
			if tt.kind == "" {
				require.NoError(t, err)
				assert.Nil(t, evaluation.Comment)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}
	assert.Equal(t, 1, store.calls)
}

func TestUpsertUnknownUserIsNotFound(t *testing.T) {
	svc, _ := newTestEvaluations(t)
	_, _, err := svc.Upsert(context.Background(), 42, EvaluationInput{MovieID: 10, Rating: 4})
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Contains(t, err.Error(), "user not found")
}

func TestUpsertBatchValidatesBeforeWriting(t *testing.T) {
	svc, store := newTestEvaluations(t)

	_, err := svc.UpsertBatch(context.Background(), 1, []EvaluationInput{
		{MovieID: 10, Rating: 4},
		{MovieID: 20, Rating: 9},
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Equal(t, 0, store.calls)

	_, err = svc.UpsertBatch(context.Background(), 1, []EvaluationInput{
		{MovieID: 10, Rating: 4},
		{MovieID: 30, Rating: 2},
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Equal(t, 0, store.calls)

	_, err = svc.UpsertBatch(context.Background(), 1, nil)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestUpsertBatchPartialFailureKeepsEarlierWrites(t *testing.T) {
	svc, store := newTestEvaluations(t)
	store.failAt = 2

	results, err := svc.UpsertBatch(context.Background(), 1, []EvaluationInput{
		{MovieID: 10, Rating: 4},
		{MovieID: 20, Rating: 2},
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Details["applied"])
	assert.Equal(t, 1, de.Details["index"])
	assert.Len(t, results, 1)
	assert.Len(t, store.rows, 1)
}

func TestUpsertBatchInOrder(t *testing.T) {
	svc, store := newTestEvaluations(t)

	results, err := svc.UpsertBatch(context.Background(), 2, []EvaluationInput{
		{MovieID: 10, Rating: 1},
		{MovieID: 20, Rating: 2},
		{MovieID: 10, Rating: 5},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, results[0].ID, results[2].ID)
	assert.Len(t, store.rows, 2)

	got, err := svc.GetByUserAndMovie(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)
}

func TestDeleteOwnedRejectsNonOwnerBeforeDeleting(t *testing.T) {
	svc, store := newTestEvaluations(t)
	ctx := context.Background()
	evaluation, _, err := svc.Upsert(ctx, 1, EvaluationInput{MovieID: 10, Rating: 4})
	require.NoError(t, err)

	err = svc.DeleteOwned(ctx, 2, evaluation.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	assert.Equal(t, 0, store.deletes)
	assert.Len(t, store.rows, 1)

	require.NoError(t, svc.DeleteOwned(ctx, 1, evaluation.ID))
	assert.Empty(t, store.rows)
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	svc, store := newTestEvaluations(t)
	ctx := context.Background()
	_, _, err := svc.Upsert(ctx, 1, EvaluationInput{MovieID: 10, Rating: 4})
	require.NoError(t, err)

	assert.Equal(t, domain.KindNotFound, domain.KindOf(svc.DeleteOwned(ctx, 1, 999)))
	assert.Equal(t, domain.KindNotFound, domain.KindOf(svc.DeleteByID(ctx, 999)))
	assert.Equal(t, domain.KindNotFound, domain.KindOf(svc.DeleteByUserAndMovie(ctx, 1, 20)))
	assert.Len(t, store.rows, 1)

	require.NoError(t, svc.DeleteByUserAndMovie(ctx, 1, 10))
	assert.Empty(t, store.rows)
}

func TestStatisticsWithoutEvaluationsIsZero(t *testing.T) {
	svc, _ := newTestEvaluations(t)
	stats, err := svc.Statistics(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, domain.EvaluationStats{MovieID: 10}, stats)
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _ := newTestEvaluations(t)
	_, err := svc.GetByID(context.Background(), 7)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestTopRatedClampsLimit(t *testing.T) {
	svc, store := newTestEvaluations(t)
	for _, tt := range []struct{ in, want int }{
		{0, DefaultTopRatedLimit},
		{-3, DefaultTopRatedLimit},
		{5, 5},
		{500, MaxTopRatedLimit},
	} {
		_, err := svc.TopRated(context.Background(), tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, store.topArg, "limit %d", tt.in)
	}
}
