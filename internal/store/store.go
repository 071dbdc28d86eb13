package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/query"
)

var (
	// ErrNotFound is returned (wrapped) when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned by AdjustStock when a debit would
	// leave a negative balance.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
)

// Reader reads one entity type.
type Reader[T any] interface {
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	// Query starts a dynamic query over every record of T.
	Query() query.Query[T]
}

// Ledger is an append-only collection: records are never updated or deleted.
type Ledger[T any] interface {
	Reader[T]
	Create(ctx context.Context, v *T) error
}

// Repository is full CRUD for one entity type. Create assigns the ID when it
// is nil and sets both timestamps; Update refreshes UpdatedAt.
type Repository[T any] interface {
	Ledger[T]
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Store defines the persistence interface for the pharmacy.
type Store interface {
	Branches() Repository[model.Branch]
	Products() Repository[model.Product]
	Stakeholders() Repository[model.Stakeholder]
	Stocks() Repository[model.Stock]
	StockTransactions() Ledger[model.StockTransaction]
	// SalesInvoices creates and reads invoices together with their items.
	SalesInvoices() Ledger[model.SalesInvoice]
	Users() Repository[model.SystemUser]
	Roles() Repository[model.Role]
	Lookups() Repository[model.AppLookup]
	IntegrationProviders() Repository[model.IntegrationProvider]
	IntegrationSettings() Repository[model.IntegrationSetting]

	// AdjustStock adds delta to a stock balance and returns the updated row.
	// It fails with ErrInsufficientStock rather than go below zero.
	AdjustStock(ctx context.Context, stockID uuid.UUID, delta int) (*model.Stock, error)

	// Users
	GetUserByUsername(ctx context.Context, username string) (*model.SystemUser, error)
	SetUserPassword(ctx context.Context, id uuid.UUID, hash string) error
	SetUserLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	GetRoleByName(ctx context.Context, name string) (*model.Role, error)

	// Audit
	RecordAuditEvent(ctx context.Context, event *model.AuditEvent) error
	GetAuditEvent(ctx context.Context, id int64) (*model.AuditEvent, error)
	AuditEvents() query.Query[model.AuditEvent]

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
