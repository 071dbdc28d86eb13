package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/query"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// invoiceRepo stores invoices together with their items.
type invoiceRepo struct {
	repo[model.SalesInvoice]
}

func (r *invoiceRepo) Create(ctx context.Context, inv *model.SalesInvoice) error {
	if err := queryInsert(ctx, r.db, r.t, inv); err != nil {
		return err
	}
	for i := range inv.Items {
		if err := queryAddInvoiceItem(ctx, r.db, inv.ID, &inv.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *invoiceRepo) Get(ctx context.Context, id uuid.UUID) (*model.SalesInvoice, error) {
	inv, err := queryGet(ctx, r.db, r.t, id)
	if err != nil {
		return nil, err
	}
	inv.Items, err = queryGetInvoiceItems(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func queryAddInvoiceItem(ctx context.Context, db executor, invoiceID uuid.UUID, it *model.InvoiceItem) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	it.InvoiceID = invoiceID
	_, err := db.ExecContext(ctx, `
		INSERT INTO invoice_items (`+invoiceItemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		it.ID, it.InvoiceID, it.StockID, it.ProductID, it.Quantity, it.UnitPrice, it.Discount, it.LineTotal,
	)
	if err != nil {
		return fmt.Errorf("insert invoice item: %w", err)
	}
	return nil
}

func queryGetInvoiceItems(ctx context.Context, db executor, invoiceID uuid.UUID) ([]model.InvoiceItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+invoiceItemColumns+` FROM invoice_items
		WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get invoice items: %w", err)
	}
	defer rows.Close()
	items, err := scanAll(rows, scanInvoiceItem)
	if err != nil {
		return nil, fmt.Errorf("scan invoice items: %w", err)
	}
	if items == nil {
		items = []model.InvoiceItem{}
	}
	return items, nil
}

// queryAdjustStock applies delta in a single statement so concurrent debits
// cannot overdraw a batch.
func queryAdjustStock(ctx context.Context, db executor, id uuid.UUID, delta int) (*model.Stock, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE stocks SET quantity = quantity + $2, updated_at = $3
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING `+stockTable.cols,
		id, delta, time.Now().UTC(),
	)
	s, err := scanStock(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM stocks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check stock: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("stock %s: %w", id, store.ErrNotFound)
	}
	return nil, fmt.Errorf("stock %s by %d: %w", id, delta, store.ErrInsufficientStock)
}

func querySetUserPassword(ctx context.Context, db executor, id uuid.UUID, hash string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE system_users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return expectRow(res, model.SystemUserSchema.Entity(), id)
}

func querySetUserLastLogin(ctx context.Context, db executor, id uuid.UUID, at time.Time) error {
	res, err := db.ExecContext(ctx, `UPDATE system_users SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("set last login: %w", err)
	}
	return expectRow(res, model.SystemUserSchema.Entity(), id)
}

func queryRecordAuditEvent(ctx context.Context, db executor, e *model.AuditEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	err := db.QueryRowContext(ctx, `
		INSERT INTO audit_events (topic, entity_type, entity_id, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		e.Topic, e.EntityType, e.EntityID, nullString(e.Actor), jsonbBytes(e.Payload), e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}

func queryGetAuditEvent(ctx context.Context, db executor, id int64) (*model.AuditEvent, error) {
	row := db.QueryRowContext(ctx, `SELECT `+auditEventColumns+` FROM audit_events WHERE id = $1`, id)
	e, err := scanAuditEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("audit event %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get audit event: %w", err)
	}
	return e, nil
}

func auditEvents(db executor) query.Query[model.AuditEvent] {
	return query.New(model.AuditEventSchema, &sqlSource[model.AuditEvent]{
		db:      db,
		table:   "audit_events",
		columns: auditEventColumns,
		scan:    scanAuditEvent,
	})
}
