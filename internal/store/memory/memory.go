// Package memory implements store.Store in process memory. It backs the
// --memory server mode and the handler tests; queries run through the same
// query builder as the SQL store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/query"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

// Store is an in-memory store.Store. It is safe for concurrent use;
// transactions hold the write lock until they finish.
type Store struct {
	mu   *sync.RWMutex
	data *tables
	tx   bool
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{mu: &sync.RWMutex{}, data: newTables()}
}

func (s *Store) lock() func() {
	if s.tx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock() func() {
	if s.tx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) Branches() store.Repository[model.Branch] {
	return &repo[model.Branch]{s: s, c: func(t *tables) *collection[model.Branch] { return t.branches }}
}

func (s *Store) Products() store.Repository[model.Product] {
	return &repo[model.Product]{s: s, c: func(t *tables) *collection[model.Product] { return t.products }}
}

func (s *Store) Stakeholders() store.Repository[model.Stakeholder] {
	return &repo[model.Stakeholder]{s: s, c: func(t *tables) *collection[model.Stakeholder] { return t.stakeholders }}
}

func (s *Store) Stocks() store.Repository[model.Stock] {
	return &repo[model.Stock]{s: s, c: func(t *tables) *collection[model.Stock] { return t.stocks }}
}

func (s *Store) StockTransactions() store.Ledger[model.StockTransaction] {
	return &repo[model.StockTransaction]{s: s, c: func(t *tables) *collection[model.StockTransaction] { return t.transactions }}
}

func (s *Store) SalesInvoices() store.Ledger[model.SalesInvoice] {
	return &repo[model.SalesInvoice]{s: s, c: func(t *tables) *collection[model.SalesInvoice] { return t.invoices }}
}

func (s *Store) Users() store.Repository[model.SystemUser] {
	return &repo[model.SystemUser]{s: s, c: func(t *tables) *collection[model.SystemUser] { return t.users }}
}

func (s *Store) Roles() store.Repository[model.Role] {
	return &repo[model.Role]{s: s, c: func(t *tables) *collection[model.Role] { return t.roles }}
}

func (s *Store) Lookups() store.Repository[model.AppLookup] {
	return &repo[model.AppLookup]{s: s, c: func(t *tables) *collection[model.AppLookup] { return t.lookups }}
}

func (s *Store) IntegrationProviders() store.Repository[model.IntegrationProvider] {
	return &repo[model.IntegrationProvider]{s: s, c: func(t *tables) *collection[model.IntegrationProvider] { return t.providers }}
}

func (s *Store) IntegrationSettings() store.Repository[model.IntegrationSetting] {
	return &repo[model.IntegrationSetting]{s: s, c: func(t *tables) *collection[model.IntegrationSetting] { return t.settings }}
}

func (s *Store) AdjustStock(ctx context.Context, stockID uuid.UUID, delta int) (*model.Stock, error) {
	defer s.lock()()
	st, ok := s.data.stocks.rows[stockID]
	if !ok {
		return nil, fmt.Errorf("stock %s: %w", stockID, store.ErrNotFound)
	}
	if st.Quantity+delta < 0 {
		return nil, fmt.Errorf("stock %s by %d: %w", stockID, delta, store.ErrInsufficientStock)
	}
	st.Quantity += delta
	st.UpdatedAt = time.Now().UTC()
	s.data.stocks.rows[stockID] = st
	return &st, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.SystemUser, error) {
	defer s.rlock()()
	for _, id := range s.data.users.order {
		if u := s.data.users.rows[id]; u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
}

func (s *Store) SetUserPassword(ctx context.Context, id uuid.UUID, hash string) error {
	defer s.lock()()
	u, ok := s.data.users.rows[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	s.data.users.rows[id] = u
	return nil
}

func (s *Store) SetUserLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	defer s.lock()()
	u, ok := s.data.users.rows[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	u.LastLoginAt = &at
	s.data.users.rows[id] = u
	return nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	defer s.rlock()()
	for _, id := range s.data.roles.order {
		if r := s.data.roles.rows[id]; r.Name == name {
			r.Permissions = append([]string(nil), r.Permissions...)
			return &r, nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
}

func (s *Store) RecordAuditEvent(ctx context.Context, event *model.AuditEvent) error {
	defer s.lock()()
	s.data.nextAuditID++
	event.ID = s.data.nextAuditID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.data.audit = append(s.data.audit, *event)
	return nil
}

func (s *Store) GetAuditEvent(ctx context.Context, id int64) (*model.AuditEvent, error) {
	defer s.rlock()()
	for _, e := range s.data.audit {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("audit event %d: %w", id, store.ErrNotFound)
}

func (s *Store) AuditEvents() query.Query[model.AuditEvent] {
	defer s.rlock()()
	return query.Slice(model.AuditEventSchema, append([]model.AuditEvent(nil), s.data.audit...))
}

// RunInTransaction runs fn with exclusive access to the store. If fn fails,
// every change it made is discarded.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	if s.tx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&Store{mu: s.mu, data: s.data, tx: true}); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// repo implements store.Repository over one collection. c selects the
// collection from the live tables so that rollbacks are visible.
type repo[T any] struct {
	s *Store
	c func(*tables) *collection[T]
}

func (r *repo[T]) Create(ctx context.Context, v *T) error {
	defer r.s.lock()()
	return r.c(r.s.data).insert(v)
}

func (r *repo[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	defer r.s.rlock()()
	return r.c(r.s.data).get(id)
}

func (r *repo[T]) Update(ctx context.Context, v *T) error {
	defer r.s.lock()()
	return r.c(r.s.data).update(v)
}

func (r *repo[T]) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	return r.c(r.s.data).delete(id)
}

func (r *repo[T]) Query() query.Query[T] {
	defer r.s.rlock()()
	c := r.c(r.s.data)
	return query.Slice(c.schema, c.list())
}
