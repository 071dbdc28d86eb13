// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/query"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	queries
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := open(databaseURL)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, false); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{queries: queries{db: db}, db: db}, nil
}

// Migrate applies every pending migration, or rolls all of them back when
// down is set.
func Migrate(databaseURL string, down bool) error {
	db, err := open(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return runMigrations(db, down)
}

func open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func runMigrations(db *sql.DB, down bool) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	apply := m.Up
	if down {
		apply = m.Down
	}
	if err := apply(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{queries: queries{db: tx}}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	queries
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

// RunInTransaction joins the enclosing transaction.
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *txStore) Ping(ctx context.Context) error { return nil }

func (s *txStore) Close() error { return nil }

// queries holds every operation that runs the same way on a connection
// pool and inside a transaction.
type queries struct {
	db executor
}

func (q queries) Branches() store.Repository[model.Branch] {
	return &repo[model.Branch]{db: q.db, t: branchTable}
}

func (q queries) Products() store.Repository[model.Product] {
	return &repo[model.Product]{db: q.db, t: productTable}
}

func (q queries) Stakeholders() store.Repository[model.Stakeholder] {
	return &repo[model.Stakeholder]{db: q.db, t: stakeholderTable}
}

func (q queries) Stocks() store.Repository[model.Stock] {
	return &repo[model.Stock]{db: q.db, t: stockTable}
}

func (q queries) StockTransactions() store.Ledger[model.StockTransaction] {
	return &repo[model.StockTransaction]{db: q.db, t: stockTransactionTable}
}

func (q queries) SalesInvoices() store.Ledger[model.SalesInvoice] {
	return &invoiceRepo{repo[model.SalesInvoice]{db: q.db, t: salesInvoiceTable}}
}

func (q queries) Users() store.Repository[model.SystemUser] {
	return &repo[model.SystemUser]{db: q.db, t: systemUserTable}
}

func (q queries) Roles() store.Repository[model.Role] {
	return &repo[model.Role]{db: q.db, t: roleTable}
}

func (q queries) Lookups() store.Repository[model.AppLookup] {
	return &repo[model.AppLookup]{db: q.db, t: appLookupTable}
}

func (q queries) IntegrationProviders() store.Repository[model.IntegrationProvider] {
	return &repo[model.IntegrationProvider]{db: q.db, t: integrationProviderTable}
}

func (q queries) IntegrationSettings() store.Repository[model.IntegrationSetting] {
	return &repo[model.IntegrationSetting]{db: q.db, t: integrationSettingTable}
}

func (q queries) AdjustStock(ctx context.Context, stockID uuid.UUID, delta int) (*model.Stock, error) {
	return queryAdjustStock(ctx, q.db, stockID, delta)
}

func (q queries) GetUserByUsername(ctx context.Context, username string) (*model.SystemUser, error) {
	return queryGetBy(ctx, q.db, systemUserTable, "username", username)
}

func (q queries) SetUserPassword(ctx context.Context, id uuid.UUID, hash string) error {
	return querySetUserPassword(ctx, q.db, id, hash)
}

func (q queries) SetUserLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return querySetUserLastLogin(ctx, q.db, id, at)
}

func (q queries) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	return queryGetBy(ctx, q.db, roleTable, "name", name)
}

func (q queries) RecordAuditEvent(ctx context.Context, event *model.AuditEvent) error {
	return queryRecordAuditEvent(ctx, q.db, event)
}

func (q queries) GetAuditEvent(ctx context.Context, id int64) (*model.AuditEvent, error) {
	return queryGetAuditEvent(ctx, q.db, id)
}

func (q queries) AuditEvents() query.Query[model.AuditEvent] {
	return auditEvents(q.db)
}
