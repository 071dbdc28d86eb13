package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/alfredjeanlab/pharmacy/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanBranch(row scannable) (*model.Branch, error) {
	var b model.Branch
	var address, phone sql.NullString
	err := row.Scan(&b.ID, &b.Code, &b.Name, &address, &phone, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Address = address.String
	b.Phone = phone.String
	return &b, nil
}

func scanProduct(row scannable) (*model.Product, error) {
	var p model.Product
	var (
		genericName sql.NullString
		barcode     sql.NullString
		categoryID  uuid.NullUUID
		status      sql.NullInt64
	)
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&genericName,
		&barcode,
		&categoryID,
		&p.Unit,
		&p.UnitPrice,
		&p.CostPrice,
		&p.ReorderLevel,
		&p.RequiresPrescription,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.GenericName = genericName.String
	p.Barcode = barcode.String
	p.CategoryID = uuidPtr(categoryID)
	p.Status = model.ProductStatus(status.Int64)
	return &p, nil
}

func scanStakeholder(row scannable) (*model.Stakeholder, error) {
	var s model.Stakeholder
	var email, phone, address, taxNumber sql.NullString
	err := row.Scan(&s.ID, &s.Type, &s.Name, &email, &phone, &address, &taxNumber, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Email = email.String
	s.Phone = phone.String
	s.Address = address.String
	s.TaxNumber = taxNumber.String
	return &s, nil
}

func scanStock(row scannable) (*model.Stock, error) {
	var s model.Stock
	var expiry sql.NullTime
	err := row.Scan(&s.ID, &s.BranchID, &s.ProductID, &s.BatchNumber, &expiry, &s.Quantity, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.ExpiryDate = timePtr(expiry)
	return &s, nil
}

func scanStockTransaction(row scannable) (*model.StockTransaction, error) {
	var t model.StockTransaction
	var (
		stakeholderID uuid.NullUUID
		invoiceID     uuid.NullUUID
		note          sql.NullString
	)
	err := row.Scan(
		&t.ID,
		&t.Reference,
		&t.StockID,
		&t.BranchID,
		&t.ProductID,
		&t.Type,
		&t.Quantity,
		&t.BalanceAfter,
		&stakeholderID,
		&invoiceID,
		&note,
		&t.CreatedBy,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.StakeholderID = uuidPtr(stakeholderID)
	t.InvoiceID = uuidPtr(invoiceID)
	t.Note = note.String
	return &t, nil
}

func scanSalesInvoice(row scannable) (*model.SalesInvoice, error) {
	var inv model.SalesInvoice
	var (
		customerID uuid.NullUUID
		note       sql.NullString
	)
	err := row.Scan(
		&inv.ID,
		&inv.InvoiceNumber,
		&inv.BranchID,
		&customerID,
		&inv.PaymentMethod,
		&inv.SubTotal,
		&inv.Discount,
		&inv.Tax,
		&inv.Total,
		&note,
		&inv.CreatedBy,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.CustomerID = uuidPtr(customerID)
	inv.Note = note.String
	return &inv, nil
}

func scanInvoiceItem(row scannable) (*model.InvoiceItem, error) {
	var it model.InvoiceItem
	err := row.Scan(&it.ID, &it.InvoiceID, &it.StockID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Discount, &it.LineTotal)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func scanSystemUser(row scannable) (*model.SystemUser, error) {
	var u model.SystemUser
	var (
		branchID  uuid.NullUUID
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.PasswordHash,
		&u.RoleID,
		&branchID,
		&u.IsActive,
		&lastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.BranchID = uuidPtr(branchID)
	u.LastLoginAt = timePtr(lastLogin)
	return &u, nil
}

func scanRole(row scannable) (*model.Role, error) {
	var r model.Role
	var description sql.NullString
	err := row.Scan(&r.ID, &r.Name, &description, pq.Array(&r.Permissions), &r.IsSystem, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Description = description.String
	if r.Permissions == nil {
		r.Permissions = []string{}
	}
	return &r, nil
}

func scanAppLookup(row scannable) (*model.AppLookup, error) {
	var l model.AppLookup
	err := row.Scan(&l.ID, &l.Category, &l.Code, &l.Value, &l.SortOrder, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanIntegrationProvider(row scannable) (*model.IntegrationProvider, error) {
	var p model.IntegrationProvider
	var baseURL sql.NullString
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Type, &baseURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.BaseURL = baseURL.String
	return &p, nil
}

func scanIntegrationSetting(row scannable) (*model.IntegrationSetting, error) {
	var s model.IntegrationSetting
	var branchID uuid.NullUUID
	err := row.Scan(&s.ID, &s.ProviderID, &branchID, &s.Key, &s.Value, &s.IsSecret, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.BranchID = uuidPtr(branchID)
	return &s, nil
}

// scanAuditEvent scans a single row into a model.AuditEvent.
func scanAuditEvent(row scannable) (*model.AuditEvent, error) {
	var e model.AuditEvent
	var (
		actor   sql.NullString
		payload []byte
	)
	err := row.Scan(&e.ID, &e.Topic, &e.EntityType, &e.EntityID, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

// scanAll drains rows with scan.
func scanAll[T any](rows *sql.Rows, scan func(scannable) (*T, error)) ([]T, error) {
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullUUID converts a *uuid.UUID to a uuid.NullUUID.
func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// nullEnum stores the zero value of an enum as null.
func nullEnum(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
