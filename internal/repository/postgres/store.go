// Package postgres implements the repositories on PostgreSQL through pgx/v5.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"freelancehub/internal/repository"
	"freelancehub/pkg/outbox"
)

//go:embed schema.sql
var schema string

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool   *pgxpool.Pool
	q      querier
	inTx   bool
	outbox *outbox.Repository
	logger *zap.Logger
}

var _ repository.Store = (*Store)(nil)

func New(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{
		pool:   pool,
		q:      pool,
		outbox: outbox.NewRepository(pool),
		logger: logger,
	}
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	logger.Info("Applying database schema")
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// OutboxStore exposes the outbox table to the dispatcher and replay service.
func (s *Store) OutboxStore() outbox.Store {
	return s.outbox
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&Store{pool: s.pool, q: tx, inTx: true, outbox: s.outbox, logger: s.logger})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Users() repository.UserRepository                 { return userRepo{s.q} }
func (s *Store) Jobs() repository.JobRepository                   { return jobRepo{s.q} }
func (s *Store) Proposals() repository.ProposalRepository         { return proposalRepo{s.q} }
func (s *Store) Contracts() repository.ContractRepository         { return contractRepo{q: s.q} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s.q} }
func (s *Store) Messages() repository.MessageRepository           { return messageRepo{s.q} }
func (s *Store) Bookmarks() repository.BookmarkRepository         { return bookmarkRepo{s.q} }
func (s *Store) Outbox() repository.OutboxWriter                  { return outboxWriter{q: s.q, repo: s.outbox} }

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// mapErr translates driver errors into repository errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", repository.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

// expectOne turns "no row affected" into ErrNotFound.
func expectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
