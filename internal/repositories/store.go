package repositories

import (
	"context"
	"errors"
	"fmt"

	"sciportfolio/internal/common"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the repositories over a single connection or transaction.
type Store interface {
	Users() UserRepository
	Structures() StructureRepository
	Memberships() MembershipRepository
	Properties() PropertyRepository
	Tenants() TenantRepository
	Tenancies() TenancyRepository
	Documents() DocumentRepository
	Inspections() InspectionRepository

	// InTx runs fn against a transaction-scoped Store. The transaction is
	// committed when fn returns nil and rolled back otherwise.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	db DBTX
}

func NewStore(db DBTX) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Users() UserRepository             { return NewUserRepository(s.db) }
func (s *pgStore) Structures() StructureRepository   { return NewStructureRepository(s.db) }
func (s *pgStore) Memberships() MembershipRepository { return NewMembershipRepository(s.db) }
func (s *pgStore) Properties() PropertyRepository    { return NewPropertyRepository(s.db) }
func (s *pgStore) Tenants() TenantRepository         { return NewTenantRepository(s.db) }
func (s *pgStore) Tenancies() TenancyRepository      { return NewTenancyRepository(s.db) }
func (s *pgStore) Documents() DocumentRepository     { return NewDocumentRepository(s.db) }
func (s *pgStore) Inspections() InspectionRepository { return NewInspectionRepository(s.db) }

func (s *pgStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&pgStore{db: tx})
	})
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// mapError converts driver errors into the common error taxonomy.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s already exists", common.ErrConflict, constraintSubject(pgErr))
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: referenced entity does not exist", common.ErrInvalidInput)
		case pgCheckViolation:
			return fmt.Errorf("%w: %s", common.ErrInvalidInput, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func constraintSubject(pgErr *pgconn.PgError) string {
	switch pgErr.ConstraintName {
	case "structures_registration_number_key":
		return "registration number"
	case "memberships_user_id_structure_id_key":
		return "membership"
	case "tenancy_links_one_active_per_property":
		return "active tenancy"
	case "users_email_key":
		return "email"
	}
	return "record"
}

// notFoundIfNone reports ErrNotFound when a write touched no rows.
func notFoundIfNone(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func limitClause(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
