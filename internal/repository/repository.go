package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinerate/internal/store"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a unique constraint rejected the write.
	ErrConflict = errors.New("repository: conflict")
	// ErrForeignKey indicates a referenced row does not exist.
	ErrForeignKey = errors.New("repository: foreign key violation")
	// ErrCheck indicates a CHECK constraint rejected the write.
	ErrCheck = errors.New("repository: check violation")
)

// ConstraintError reports which constraint rejected a write. It unwraps to
// one of ErrConflict, ErrForeignKey or ErrCheck.
type ConstraintError struct {
	Kind       error
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v (%s)", e.Kind, e.Constraint)
}

func (e *ConstraintError) Is(target error) bool { return target == e.Kind }

func (e *ConstraintError) Unwrap() error { return e.Err }

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Movies      *MoviesRepository
	Users       *UsersRepository
	Evaluations *EvaluationsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Movies:      &MoviesRepository{pool: pool},
		Users:       &UsersRepository{pool: pool},
		Evaluations: &EvaluationsRepository{pool: pool},
	}
}

// classify maps driver errors onto the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return &ConstraintError{Kind: ErrConflict, Constraint: pgErr.ConstraintName, Err: err}
		case pgerrcode.ForeignKeyViolation:
			return &ConstraintError{Kind: ErrForeignKey, Constraint: pgErr.ConstraintName, Err: err}
		case pgerrcode.CheckViolation:
			return &ConstraintError{Kind: ErrCheck, Constraint: pgErr.ConstraintName, Err: err}
		}
	}
	return err
}

// ConstraintName returns the violated constraint carried by err, if any.
func ConstraintName(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}
