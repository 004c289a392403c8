package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	"github.com/zatekoja/bloodlink/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so every adapter can run
// inside or outside a transaction
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store implements repositories.Store on PostgreSQL
type Store struct {
	db      *sql.DB
	q       dbtx
	dialect goqu.DialectWrapper
	now     func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the time source used for created_at and updated_at
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a postgres store from a connected client
func NewStore(client *postgres.Client, opts ...Option) *Store {
	return NewStoreFromDB(client.DB(), opts...)
}

// NewStoreFromDB creates a postgres store on an existing connection pool
func NewStoreFromDB(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:      db,
		q:       db,
		dialect: goqu.Dialect("postgres"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repositories.Store = (*Store)(nil)

func (s *Store) Users() repositories.UserRepository { return &UserAdapter{s} }

func (s *Store) Donors() repositories.DonorRepository { return &DonorAdapter{s} }

func (s *Store) Recipients() repositories.RecipientRepository { return &RecipientAdapter{s} }

func (s *Store) Hospitals() repositories.HospitalRepository { return &HospitalAdapter{s} }

func (s *Store) Referrals() repositories.ReferralRepository { return &ReferralAdapter{s} }

func (s *Store) Appointments() repositories.AppointmentRepository { return &AppointmentAdapter{s} }

func (s *Store) Notifications() repositories.NotificationRepository {
	return &NotificationAdapter{s}
}

// Atomic runs fn inside a database transaction. Nested calls reuse the
// outer transaction.
func (s *Store) Atomic(ctx context.Context, fn func(tx repositories.Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}

	txStore := &Store{q: tx, dialect: s.dialect, now: s.now}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit transaction", err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, ds interface {
	ToSQL() (string, []interface{}, error)
}, action string) (int64, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	result, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapWriteError(err, action)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected, nil
}

func (s *Store) exists(ctx context.Context, table, id string) (bool, error) {
	query, args, err := s.dialect.From(table).Prepared(true).
		Select(goqu.L("1")).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build query", err)
	}

	var one int
	err = s.q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError(fmt.Sprintf("failed to check %s", table), err)
	}
	return true, nil
}

// staleOrMissing resolves a zero-row versioned update into NOT_FOUND or CONFLICT
func (s *Store) staleOrMissing(ctx context.Context, table, entity, id string) error {
	found, err := s.exists(ctx, table, id)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.NotFoundf(entity, id)
	}
	return apperrors.NewConflictError(fmt.Sprintf("%s %s was modified concurrently", entity, id))
}

const uniqueViolation = "23505"

func mapWriteError(err error, action string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case "donors_user_id_key":
			return apperrors.NewDuplicateProfileError("user already has a donor profile")
		case "recipients_user_id_key":
			return apperrors.NewDuplicateProfileError("user already has a recipient profile")
		default:
			return apperrors.NewConflictError(fmt.Sprintf("failed to %s: %s", action, pqErr.Detail))
		}
	}
	return apperrors.NewInternalError(fmt.Sprintf("failed to %s", action), err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func corrupt(entity, id, field string, value interface{}) error {
	return apperrors.NewInternalError(
		fmt.Sprintf("%s %s has invalid %s %v", entity, id, field, value), nil)
}
