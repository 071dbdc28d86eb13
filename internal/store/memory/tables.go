package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/model"
)

type tables struct {
	branches     *collection[model.Branch]
	products     *collection[model.Product]
	stakeholders *collection[model.Stakeholder]
	stocks       *collection[model.Stock]
	transactions *collection[model.StockTransaction]
	invoices     *collection[model.SalesInvoice]
	users        *collection[model.SystemUser]
	roles        *collection[model.Role]
	lookups      *collection[model.AppLookup]
	providers    *collection[model.IntegrationProvider]
	settings     *collection[model.IntegrationSetting]

	audit       []model.AuditEvent
	nextAuditID int64
}

func (t *tables) clone() *tables {
	return &tables{
		branches:     t.branches.clone(),
		products:     t.products.clone(),
		stakeholders: t.stakeholders.clone(),
		stocks:       t.stocks.clone(),
		transactions: t.transactions.clone(),
		invoices:     t.invoices.clone(),
		users:        t.users.clone(),
		roles:        t.roles.clone(),
		lookups:      t.lookups.clone(),
		providers:    t.providers.clone(),
		settings:     t.settings.clone(),
		audit:        append([]model.AuditEvent(nil), t.audit...),
		nextAuditID:  t.nextAuditID,
	}
}

func optID(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}

func newTables() *tables {
	return &tables{
		branches: &collection[model.Branch]{
			schema:  model.BranchSchema,
			rows:    map[uuid.UUID]model.Branch{},
			id:      func(b *model.Branch) *uuid.UUID { return &b.ID },
			created: func(b *model.Branch) *time.Time { return &b.CreatedAt },
			updated: func(b *model.Branch) *time.Time { return &b.UpdatedAt },
			keys:    func(b *model.Branch) []string { return []string{key(b.Code)} },
		},
		products: &collection[model.Product]{
			schema:  model.ProductSchema,
			rows:    map[uuid.UUID]model.Product{},
			id:      func(p *model.Product) *uuid.UUID { return &p.ID },
			created: func(p *model.Product) *time.Time { return &p.CreatedAt },
			updated: func(p *model.Product) *time.Time { return &p.UpdatedAt },
			keys:    func(p *model.Product) []string { return []string{key("code", p.Code), key("barcode", p.Barcode)} },
		},
		stakeholders: &collection[model.Stakeholder]{
			schema:  model.StakeholderSchema,
			rows:    map[uuid.UUID]model.Stakeholder{},
			id:      func(s *model.Stakeholder) *uuid.UUID { return &s.ID },
			created: func(s *model.Stakeholder) *time.Time { return &s.CreatedAt },
			updated: func(s *model.Stakeholder) *time.Time { return &s.UpdatedAt },
		},
		stocks: &collection[model.Stock]{
			schema:  model.StockSchema,
			rows:    map[uuid.UUID]model.Stock{},
			id:      func(s *model.Stock) *uuid.UUID { return &s.ID },
			created: func(s *model.Stock) *time.Time { return &s.CreatedAt },
			updated: func(s *model.Stock) *time.Time { return &s.UpdatedAt },
			keys: func(s *model.Stock) []string {
				return []string{key(s.BranchID.String(), s.ProductID.String(), s.BatchNumber)}
			},
			keep: func(stored, v *model.Stock) {
				v.Quantity = stored.Quantity
				v.BranchID = stored.BranchID
				v.ProductID = stored.ProductID
			},
		},
		transactions: &collection[model.StockTransaction]{
			schema:  model.StockTransactionSchema,
			rows:    map[uuid.UUID]model.StockTransaction{},
			id:      func(t *model.StockTransaction) *uuid.UUID { return &t.ID },
			created: func(t *model.StockTransaction) *time.Time { return &t.CreatedAt },
			keys:    func(t *model.StockTransaction) []string { return []string{key(t.Reference)} },
		},
		invoices: &collection[model.SalesInvoice]{
			schema:  model.SalesInvoiceSchema,
			rows:    map[uuid.UUID]model.SalesInvoice{},
			id:      func(inv *model.SalesInvoice) *uuid.UUID { return &inv.ID },
			created: func(inv *model.SalesInvoice) *time.Time { return &inv.CreatedAt },
			updated: func(inv *model.SalesInvoice) *time.Time { return &inv.UpdatedAt },
			keys:    func(inv *model.SalesInvoice) []string { return []string{key(inv.InvoiceNumber)} },
			inserted: func(inv *model.SalesInvoice) {
				for i := range inv.Items {
					if inv.Items[i].ID == uuid.Nil {
						inv.Items[i].ID = uuid.New()
					}
					inv.Items[i].InvoiceID = inv.ID
				}
			},
			copy: func(inv model.SalesInvoice) model.SalesInvoice {
				inv.Items = append([]model.InvoiceItem{}, inv.Items...)
				return inv
			},
			// Items are only loaded by Get.
			listed: func(inv model.SalesInvoice) model.SalesInvoice {
				inv.Items = nil
				return inv
			},
		},
		users: &collection[model.SystemUser]{
			schema:  model.SystemUserSchema,
			rows:    map[uuid.UUID]model.SystemUser{},
			id:      func(u *model.SystemUser) *uuid.UUID { return &u.ID },
			created: func(u *model.SystemUser) *time.Time { return &u.CreatedAt },
			updated: func(u *model.SystemUser) *time.Time { return &u.UpdatedAt },
			keys: func(u *model.SystemUser) []string {
				return []string{key("username", u.Username), key("email", u.Email)}
			},
			keep: func(stored, v *model.SystemUser) {
				v.PasswordHash = stored.PasswordHash
				v.LastLoginAt = stored.LastLoginAt
			},
		},
		roles: &collection[model.Role]{
			schema:  model.RoleSchema,
			rows:    map[uuid.UUID]model.Role{},
			id:      func(r *model.Role) *uuid.UUID { return &r.ID },
			created: func(r *model.Role) *time.Time { return &r.CreatedAt },
			updated: func(r *model.Role) *time.Time { return &r.UpdatedAt },
			keys:    func(r *model.Role) []string { return []string{key(r.Name)} },
			keep:    func(stored, v *model.Role) { v.IsSystem = stored.IsSystem },
			copy: func(r model.Role) model.Role {
				r.Permissions = append([]string{}, r.Permissions...)
				return r
			},
		},
		lookups: &collection[model.AppLookup]{
			schema:  model.AppLookupSchema,
			rows:    map[uuid.UUID]model.AppLookup{},
			id:      func(l *model.AppLookup) *uuid.UUID { return &l.ID },
			created: func(l *model.AppLookup) *time.Time { return &l.CreatedAt },
			updated: func(l *model.AppLookup) *time.Time { return &l.UpdatedAt },
			keys:    func(l *model.AppLookup) []string { return []string{key(l.Category, l.Code)} },
		},
		providers: &collection[model.IntegrationProvider]{
			schema:  model.IntegrationProviderSchema,
			rows:    map[uuid.UUID]model.IntegrationProvider{},
			id:      func(p *model.IntegrationProvider) *uuid.UUID { return &p.ID },
			created: func(p *model.IntegrationProvider) *time.Time { return &p.CreatedAt },
			updated: func(p *model.IntegrationProvider) *time.Time { return &p.UpdatedAt },
			keys:    func(p *model.IntegrationProvider) []string { return []string{key(p.Code)} },
		},
		settings: &collection[model.IntegrationSetting]{
			schema:  model.IntegrationSettingSchema,
			rows:    map[uuid.UUID]model.IntegrationSetting{},
			id:      func(s *model.IntegrationSetting) *uuid.UUID { return &s.ID },
			created: func(s *model.IntegrationSetting) *time.Time { return &s.CreatedAt },
			updated: func(s *model.IntegrationSetting) *time.Time { return &s.UpdatedAt },
			keys: func(s *model.IntegrationSetting) []string {
				return []string{key(s.ProviderID.String(), optID(s.BranchID), s.Key)}
			},
		},
	}
}
