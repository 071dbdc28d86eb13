package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/alfredjeanlab/pharmacy/internal/model"
)

var defaultFixed = map[string]bool{"created_at": true}

var branchTable = newTable(table[model.Branch]{
	schema:  model.BranchSchema,
	columns: []string{"id", "code", "name", "address", "phone", "is_active", "created_at", "updated_at"},
	fixed:   defaultFixed,
	values: func(b *model.Branch) []any {
		return []any{b.ID, b.Code, b.Name, nullString(b.Address), nullString(b.Phone), b.IsActive, b.CreatedAt, b.UpdatedAt}
	},
	scan: scanBranch,
	id:   func(b *model.Branch) *uuid.UUID { return &b.ID },
	stamp: func(b *model.Branch, now time.Time, created bool) {
		if created {
			b.CreatedAt = now
		}
		b.UpdatedAt = now
	},
})

var productTable = newTable(table[model.Product]{
	schema: model.ProductSchema,
	columns: []string{
		"id", "code", "name", "generic_name", "barcode", "category_id", "unit",
		"unit_price", "cost_price", "reorder_level", "requires_prescription", "status",
		"created_at", "updated_at",
	},
	fixed: defaultFixed,
	values: func(p *model.Product) []any {
		return []any{
			p.ID, p.Code, p.Name, nullString(p.GenericName), nullString(p.Barcode), nullUUID(p.CategoryID), p.Unit,
			p.UnitPrice, p.CostPrice, p.ReorderLevel, p.RequiresPrescription, nullEnum(int64(p.Status)),
			p.CreatedAt, p.UpdatedAt,
		}
	},
	scan: scanProduct,
	id:   func(p *model.Product) *uuid.UUID { return &p.ID },
	stamp: func(p *model.Product, now time.Time, created bool) {
		if created {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
	},
})

var stakeholderTable = newTable(table[model.Stakeholder]{
	schema:  model.StakeholderSchema,
	columns: []string{"id", "type", "name", "email", "phone", "address", "tax_number", "is_active", "created_at", "updated_at"},
	fixed:   defaultFixed,
	values: func(s *model.Stakeholder) []any {
		return []any{
			s.ID, int64(s.Type), s.Name, nullString(s.Email), nullString(s.Phone), nullString(s.Address),
			nullString(s.TaxNumber), s.IsActive, s.CreatedAt, s.UpdatedAt,
		}
	},
	scan: scanStakeholder,
	id:   func(s *model.Stakeholder) *uuid.UUID { return &s.ID },
	stamp: func(s *model.Stakeholder, now time.Time, created bool) {
		if created {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
	},
})

// Stock quantities only move through AdjustStock; the branch and product of
// a batch never change.
var stockTable = newTable(table[model.Stock]{
	schema:  model.StockSchema,
	columns: []string{"id", "branch_id", "product_id", "batch_number", "expiry_date", "quantity", "created_at", "updated_at"},
	fixed:   map[string]bool{"created_at": true, "quantity": true, "branch_id": true, "product_id": true},
	values: func(s *model.Stock) []any {
		return []any{s.ID, s.BranchID, s.ProductID, s.BatchNumber, nullTimePtr(s.ExpiryDate), s.Quantity, s.CreatedAt, s.UpdatedAt}
	},
	scan: scanStock,
	id:   func(s *model.Stock) *uuid.UUID { return &s.ID },
	stamp: func(s *model.Stock, now time.Time, created bool) {
		if created {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
	},
})

var stockTransactionTable = newTable(table[model.StockTransaction]{
	schema: model.StockTransactionSchema,
	columns: []string{
		"id", "reference", "stock_id", "branch_id", "product_id", "type", "quantity", "balance_after",
		"stakeholder_id", "invoice_id", "note", "created_by", "created_at",
	},
	fixed: defaultFixed,
	values: func(t *model.StockTransaction) []any {
		return []any{
			t.ID, t.Reference, t.StockID, t.BranchID, t.ProductID, int64(t.Type), t.Quantity, t.BalanceAfter,
			nullUUID(t.StakeholderID), nullUUID(t.InvoiceID), nullString(t.Note), t.CreatedBy, t.CreatedAt,
		}
	},
	scan: scanStockTransaction,
	id:   func(t *model.StockTransaction) *uuid.UUID { return &t.ID },
	stamp: func(t *model.StockTransaction, now time.Time, created bool) {
		if created {
			t.CreatedAt = now
		}
	},
})

var salesInvoiceTable = newTable(table[model.SalesInvoice]{
	schema: model.SalesInvoiceSchema,
	columns: []string{
		"id", "invoice_number", "branch_id", "customer_id", "payment_method",
		"sub_total", "discount", "tax", "total", "note", "created_by", "created_at", "updated_at",
	},
	fixed: defaultFixed,
	values: func(inv *model.SalesInvoice) []any {
		return []any{
			inv.ID, inv.InvoiceNumber, inv.BranchID, nullUUID(inv.CustomerID), int64(inv.PaymentMethod),
			inv.SubTotal, inv.Discount, inv.Tax, inv.Total, nullString(inv.Note), inv.CreatedBy, inv.CreatedAt, inv.UpdatedAt,
		}
	},
	scan: scanSalesInvoice,
	id:   func(inv *model.SalesInvoice) *uuid.UUID { return &inv.ID },
	stamp: func(inv *model.SalesInvoice, now time.Time, created bool) {
		if created {
			inv.CreatedAt = now
		}
		inv.UpdatedAt = now
	},
})

// invoiceItemColumns is the column list used for SELECT statements on the
// invoice_items table.
const invoiceItemColumns = `id, invoice_id, stock_id, product_id, quantity, unit_price, discount, line_total`

// The password hash and last login are maintained by dedicated queries.
var systemUserTable = newTable(table[model.SystemUser]{
	schema: model.SystemUserSchema,
	columns: []string{
		"id", "username", "email", "full_name", "password_hash", "role_id", "branch_id",
		"is_active", "last_login_at", "created_at", "updated_at",
	},
	fixed: map[string]bool{"created_at": true, "password_hash": true, "last_login_at": true},
	values: func(u *model.SystemUser) []any {
		return []any{
			u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, u.RoleID, nullUUID(u.BranchID),
			u.IsActive, nullTimePtr(u.LastLoginAt), u.CreatedAt, u.UpdatedAt,
		}
	},
	scan: scanSystemUser,
	id:   func(u *model.SystemUser) *uuid.UUID { return &u.ID },
	stamp: func(u *model.SystemUser, now time.Time, created bool) {
		if created {
			u.CreatedAt = now
		}
		u.UpdatedAt = now
	},
})

var roleTable = newTable(table[model.Role]{
	schema:  model.RoleSchema,
	columns: []string{"id", "name", "description", "permissions", "is_system", "created_at", "updated_at"},
	fixed:   map[string]bool{"created_at": true, "is_system": true},
	values: func(r *model.Role) []any {
		perms := r.Permissions
		if perms == nil {
			perms = []string{}
		}
		return []any{r.ID, r.Name, nullString(r.Description), pq.Array(perms), r.IsSystem, r.CreatedAt, r.UpdatedAt}
	},
	scan: scanRole,
	id:   func(r *model.Role) *uuid.UUID { return &r.ID },
	stamp: func(r *model.Role, now time.Time, created bool) {
		if created {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
	},
})

var appLookupTable = newTable(table[model.AppLookup]{
	schema:  model.AppLookupSchema,
	columns: []string{"id", "category", "code", "value", "sort_order", "is_active", "created_at", "updated_at"},
	fixed:   defaultFixed,
	values: func(l *model.AppLookup) []any {
		return []any{l.ID, l.Category, l.Code, l.Value, l.SortOrder, l.IsActive, l.CreatedAt, l.UpdatedAt}
	},
	scan: scanAppLookup,
	id:   func(l *model.AppLookup) *uuid.UUID { return &l.ID },
	stamp: func(l *model.AppLookup, now time.Time, created bool) {
		if created {
			l.CreatedAt = now
		}
		l.UpdatedAt = now
	},
})

var integrationProviderTable = newTable(table[model.IntegrationProvider]{
	schema:  model.IntegrationProviderSchema,
	columns: []string{"id", "code", "name", "type", "base_url", "is_active", "created_at", "updated_at"},
	fixed:   defaultFixed,
	values: func(p *model.IntegrationProvider) []any {
		return []any{p.ID, p.Code, p.Name, p.Type, nullString(p.BaseURL), p.IsActive, p.CreatedAt, p.UpdatedAt}
	},
	scan: scanIntegrationProvider,
	id:   func(p *model.IntegrationProvider) *uuid.UUID { return &p.ID },
	stamp: func(p *model.IntegrationProvider, now time.Time, created bool) {
		if created {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
	},
})

var integrationSettingTable = newTable(table[model.IntegrationSetting]{
	schema:  model.IntegrationSettingSchema,
	columns: []string{"id", "provider_id", "branch_id", "key", "value", "is_secret", "created_at", "updated_at"},
	fixed:   defaultFixed,
	values: func(s *model.IntegrationSetting) []any {
		return []any{s.ID, s.ProviderID, nullUUID(s.BranchID), s.Key, s.Value, s.IsSecret, s.CreatedAt, s.UpdatedAt}
	},
	scan: scanIntegrationSetting,
	id:   func(s *model.IntegrationSetting) *uuid.UUID { return &s.ID },
	stamp: func(s *model.IntegrationSetting, now time.Time, created bool) {
		if created {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
	},
})

// auditEventColumns is the column list used for SELECT statements on the
// audit_events table.
const auditEventColumns = `id, topic, entity_type, entity_id, actor, payload, created_at`
