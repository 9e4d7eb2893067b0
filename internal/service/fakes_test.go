package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Clark-Hu/cinerate/internal/auth"
	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/repository"
)

type fakeEvaluations struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]domain.Evaluation
	users   map[int64]bool
	failAt  int // 1-based upsert call that fails; 0 disables
	calls   int
	deletes int
	topArg  int
}

func newFakeEvaluations(userIDs ...int64) *fakeEvaluations {
	users := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		users[id] = true
	}
	return &fakeEvaluations{rows: map[int64]domain.Evaluation{}, users: users}
}

func (f *fakeEvaluations) Upsert(_ context.Context, p repository.EvaluationUpsertParams) (domain.Evaluation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAt != 0 && f.calls == f.failAt {
		return domain.Evaluation{}, false, errors.New("connection reset")
	}
	if !f.users[p.UserID] {
		return domain.Evaluation{}, false, &repository.ConstraintError{
			Kind:       repository.ErrForeignKey,
			Constraint: repository.EvaluationUserFK,
		}
	}
	now := time.Now()
	for id, row := range f.rows {
		if row.UserID == p.UserID && row.MovieID == p.MovieID {
			row.Rating = p.Rating
			row.Comment = p.Comment
			row.UpdatedAt = now
			f.rows[id] = row
			return row, false, nil
		}
	}
	f.nextID++
	row := domain.Evaluation{
		ID:        f.nextID,
		UserID:    p.UserID,
		MovieID:   p.MovieID,
		Rating:    p.Rating,
		Comment:   p.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.rows[row.ID] = row
	return row, true, nil
}

func (f *fakeEvaluations) GetByID(_ context.Context, id int64) (domain.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return domain.Evaluation{}, repository.ErrNotFound
	}
	return row, nil
}

func (f *fakeEvaluations) GetByUserAndMovie(_ context.Context, userID, movieID int64) (domain.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.UserID == userID && row.MovieID == movieID {
			return row, nil
		}
	}
	return domain.Evaluation{}, repository.ErrNotFound
}

func (f *fakeEvaluations) filter(keep func(domain.Evaluation) bool) []domain.Evaluation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Evaluation, 0)
	for _, row := range f.rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeEvaluations) ListByMovie(_ context.Context, movieID int64) ([]domain.Evaluation, error) {
	return f.filter(func(e domain.Evaluation) bool { return e.MovieID == movieID }), nil
}

func (f *fakeEvaluations) ListByUser(_ context.Context, userID int64) ([]domain.Evaluation, error) {
	return f.filter(func(e domain.Evaluation) bool { return e.UserID == userID }), nil
}

func (f *fakeEvaluations) Statistics(_ context.Context, movieID int64) (domain.EvaluationStats, error) {
	stats := domain.EvaluationStats{MovieID: movieID}
	sum := 0
	for _, e := range f.filter(func(e domain.Evaluation) bool { return e.MovieID == movieID }) {
		if stats.TotalEvaluations == 0 || e.Rating < stats.MinRating {
			stats.MinRating = e.Rating
		}
		if e.Rating > stats.MaxRating {
			stats.MaxRating = e.Rating
		}
		stats.TotalEvaluations++
		sum += e.Rating
	}
	if stats.TotalEvaluations > 0 {
		stats.AverageRating = float64(sum) / float64(stats.TotalEvaluations)
	}
	return stats, nil
}

func (f *fakeEvaluations) DeleteByID(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if _, ok := f.rows[id]; !ok {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

func (f *fakeEvaluations) DeleteOwned(_ context.Context, id, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	row, ok := f.rows[id]
	if !ok || row.UserID != userID {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

func (f *fakeEvaluations) DeleteByUserAndMovie(_ context.Context, userID, movieID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for id, row := range f.rows {
		if row.UserID == userID && row.MovieID == movieID {
			delete(f.rows, id)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEvaluations) TopRated(_ context.Context, limit int) ([]domain.RatedMovie, error) {
	f.mu.Lock()
	f.topArg = limit
	f.mu.Unlock()
	return []domain.RatedMovie{}, nil
}

type fakeMovies map[int64]bool

func (m fakeMovies) Exists(_ context.Context, id int64) (bool, error) {
	return m[id], nil
}

type fakeUsers struct {
	nextID int64
	byID   map[int64]domain.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]domain.User{}}
}

func (f *fakeUsers) Create(_ context.Context, p repository.UserCreateParams) (domain.User, error) {
	for _, u := range f.byID {
		if u.Email == p.Email || u.Username == p.Username {
			return domain.User{}, &repository.ConstraintError{Kind: repository.ErrConflict, Constraint: "users_email_key"}
		}
	}
	f.nextID++
	u := domain.User{ID: f.nextID, Username: p.Username, Email: p.Email, PasswordHash: p.PasswordHash}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) Update(_ context.Context, id int64, p repository.UserUpdateParams) (domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	f.byID[id] = u
	return u, nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := f.byID[id]; !ok {
		return false, nil
	}
	delete(f.byID, id)
	return true, nil
}

func newTestAccounts() (*AccountService, *fakeUsers, *auth.TokenIssuer) {
	users := newFakeUsers()
	issuer := auth.NewTokenIssuer("0123456789abcdef0123", "cinerate-test", time.Hour)
	return NewAccountService(users, auth.NewPasswordHasher(4), issuer), users, issuer
}
