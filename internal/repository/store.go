package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the query surface shared by the pgx pool and an open transaction,
// letting repositories run against either.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles the repositories over one database handle. InTx yields a
// Store bound to a single transaction so a workflow mutation and its history
// row commit together or not at all.
type Store interface {
	Users() UserRepository
	Departments() DepartmentRepository
	Tickets() TicketRepository
	History() TicketHistoryRepository
	Attachments() AttachmentRepository
	InTx(ctx context.Context, fn func(Store) error) error
}

type sqlStore struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewStore builds a pgx-backed store.
func NewStore(pool *pgxpool.Pool) Store {
	return &sqlStore{pool: pool, db: pool}
}

func (s *sqlStore) Users() UserRepository             { return &userRepository{db: s.db} }
func (s *sqlStore) Departments() DepartmentRepository { return &departmentRepository{db: s.db} }
func (s *sqlStore) Tickets() TicketRepository         { return &ticketRepository{db: s.db} }
func (s *sqlStore) History() TicketHistoryRepository  { return &ticketHistoryRepository{db: s.db} }
func (s *sqlStore) Attachments() AttachmentRepository { return &attachmentRepository{db: s.db} }

func (s *sqlStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// already transaction-bound
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txStore := &sqlStore{db: tx}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
