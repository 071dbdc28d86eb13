package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/query"
)

// Query schemas for every listable entity. Property names are the Go field
// names; columns match the migrations.

var BranchSchema = query.NewSchema("Branch", "branches",
	query.UUID("Id", "id", func(e *Branch) uuid.UUID { return e.ID }),
	query.String("Code", "code", func(e *Branch) string { return e.Code }),
	query.String("Name", "name", func(e *Branch) string { return e.Name }),
	query.OptString("Address", "address", func(e *Branch) string { return e.Address }),
	query.OptString("Phone", "phone", func(e *Branch) string { return e.Phone }),
	query.Bool("IsActive", "is_active", func(e *Branch) bool { return e.IsActive }),
	query.Time("CreatedAt", "created_at", func(e *Branch) time.Time { return e.CreatedAt }),
	query.Time("UpdatedAt", "updated_at", func(e *Branch) time.Time { return e.UpdatedAt }),
).OrderBy("Name", false)

var ProductSchema = query.NewSchema("Product", "products",
	query.UUID("Id", "id", func(e *Product) uuid.UUID { return e.ID }),
	query.String("Code", "code", func(e *Product) string { return e.Code }),
	query.String("Name", "name", func(e *Product) string { return e.Name }),
	query.OptString("GenericName", "generic_name", func(e *Product) string { return e.GenericName }),
	query.OptString("Barcode", "barcode", func(e *Product) string { return e.Barcode }),
	query.OptUUID("CategoryId", "category_id", func(e *Product) *uuid.UUID { return e.CategoryID }),
	query.String("Unit", "unit", func(e *Product) string { return e.Unit }),
	query.Decimal("UnitPrice", "unit_price", func(e *Product) float64 { return e.UnitPrice }),
	query.Decimal("CostPrice", "cost_price", func(e *Product) float64 { return e.CostPrice }),
	query.Int("ReorderLevel", "reorder_level", func(e *Product) int { return e.ReorderLevel }),
	query.Bool("RequiresPrescription", "requires_prescription", func(e *Product) bool { return e.RequiresPrescription }),
	query.OptEnum("Status", "status", ProductStatusNames, func(e *Product) int64 { return int64(e.Status) }),
	query.Time("CreatedAt", "created_at", func(e *Product) time.Time { return e.CreatedAt }),
	query.Time("UpdatedAt", "updated_at", func(e *Product) time.Time { return e.UpdatedAt }),
).OrderBy("CreatedAt", true)

var StakeholderSchema = query.NewSchema("Stakeholder", "stakeholders",
	query.UUID("Id", "id", func(e *Stakeholder) uuid.UUID { return e.ID }),
	query.Enum("Type", "type", StakeholderTypeNames, func(e *Stakeholder) int64 { return int64(e.Type) }),
	query.String("Name", "name", func(e *Stakeholder) string { return e.Name }),
	query.OptString("Email", "email", func(e *Stakeholder) string { return e.Email }),
	query.OptString("Phone", "phone", func(e *Stakeholder) string { return e.Phone }),
	query.OptString("Address", "address", func(e *Stakeholder) string { return e.Address }),
	query.OptString("TaxNumber", "tax_number", func(e *Stakeholder) string { return e.TaxNumber }),
	query.Bool("IsActive", "is_active", func(e *Stakeholder) bool { return e.IsActive }),
	query.Time("CreatedAt", "created_at", func(e *Stakeholder) time.Time { return e.CreatedAt }),
	query.Time("UpdatedAt", "updated_at", func(e *Stakeholder) time.Time { return e.UpdatedAt }),
).OrderBy("CreatedAt", true)

var StockSchema = query.NewSchema("Stock", "stocks",
	query.UUID("Id", "id", func(e *Stock) uuid.UUID { return e.ID }),
	query.UUID("BranchId", "branch_id", func(e *Stock) uuid.UUID { return e.BranchID }),
	query.UUID("ProductId", "product_id", func(e *Stock) uuid.UUID { return e.ProductID }),
	query.String("BatchNumber", "batch_number", func(e *Stock) string { return e.BatchNumber }),
	query.OptTime("ExpiryDate", "expiry_date", func(e *Stock) *time.Time { return e.ExpiryDate }),
	query.Int("Quantity", "quantity", func(e *Stock) int { return e.Quantity }),
	query.Time("CreatedAt", "created_at", func(e *Stock) time.Time { return e.CreatedAt }),
	query.Time("UpdatedAt", "updated_at", func(e *Stock) time.Time { return e.UpdatedAt }),
).OrderBy("ExpiryDate", false)

var StockTransactionSchema = query.NewSchema("StockTransaction", "stock_transactions",
	query.UUID("Id", "id", func(e *StockTransaction) uuid.UUID { return e.ID }),
	query.String("Reference", "reference", func(e *StockTransaction) string { return e.Reference }),
	query.UUID("StockId", "stock_id", func(e *StockTransaction) uuid.UUID { return e.StockID }),
	query.UUID("BranchId", "branch_id", func(e *StockTransaction) uuid.UUID { return e.BranchID }),
	query.UUID("ProductId", "product_id", func(e *StockTransaction) uuid.UUID { return e.ProductID }),
	query.Enum("Type", "type", TransactionTypeNames, func(e *StockTransaction) int64 { return int64(e.Type) }),
	query.Int("Quantity", "quantity", func(e *StockTransaction) int { return e.Quantity }),
	query.Int("BalanceAfter", "balance_after", func(e *StockTransaction) int { return e.BalanceAfter }),
	query.OptUUID("StakeholderId", "stakeholder_id", func(e *StockTransaction) *uuid.UUID { return e.StakeholderID }),
	query.OptUUID("InvoiceId", "invoice_id", func(e *StockTransaction) *uuid.UUID { return e.InvoiceID }),
	query.OptString("Note", "note", func(e *StockTransaction) string { return e.Note }),
	query.String("CreatedBy", "created_by", func(e *StockTransaction) string { return e.CreatedBy }),
	query.Time("CreatedAt", "created_at", func(e *StockTransaction) time.Time { return e.CreatedAt }),
).OrderBy("CreatedAt", true)

var SalesInvoiceSchema = query.NewSchema("SalesInvoice", "sales_invoices",
	query.UUID("Id", "id", func(e *SalesInvoice) uuid.UUID { return e.ID }),
	query.String("InvoiceNumber", "invoice_number", func(e *SalesInvoice) string { return e.InvoiceNumber }),
	query.UUID("BranchId", "branch_id", func(e *SalesInvoice) uuid.UUID { return e.BranchID }),
	query.OptUUID("CustomerId", "customer_id", func(e *SalesInvoice) *uuid.UUID { return e.CustomerID }),
	query.Enum("PaymentMethod", "payment_method", PaymentMethodNames, func(e *SalesInvoice) int64 { return int64(e.PaymentMethod) }),
	query.Decimal("SubTotal", "sub_total", func(e *SalesInvoice) float64 { return e.SubTotal }),
	query.Decimal("Discount", "discount", func(e *SalesInvoice) float64 { return e.Discount }),
	query.Decimal("Tax", "tax", func(e *SalesInvoice) float64 { return e.Tax }),
	query.Decimal("Total", "total", func(e *SalesInvoice) float64 { return e.Total }),
	query.OptString("Note", "note", func(e *SalesInvoice) string { return e.Note }),
	query.String("CreatedBy", "created_by", func(e *SalesInvoice) string { return e.CreatedBy }),
	query.Time("CreatedAt", "created_at", func(e *SalesInvoice) time.Time { return e.CreatedAt }),
	query.Time("UpdatedAt", "updated_at", func(e *SalesInvoice) time.Time { return e.UpdatedAt }),
).OrderBy("CreatedAt", true)

var SystemUserSchema = query.NewSchema("SystemUser", "system_users",
	query.UUID("Id", "id", func(e *SystemUser) uuid.UUID { return e.ID }),
	query.String("Username", "username", func(e *SystemUser) string { return e.Username }),
	query.String("Email", "email", func(e *SystemUser) string { return e.Email }),
	query.String("FullName", "full_name", func(e *SystemUser) string { return e.FullName }),
	query.UUID("RoleId", "role_id", func(e *SystemUser) uuid.UUID { return e.RoleID }),
	query.OptUUID("BranchId", "branch_id", func(e *SystemUser) *uuid.UUID { return e.BranchID }),
	query.Bool("IsActive", "is_active", func(e *SystemUser) bool { return e.IsActive }),
	query.OptTime("LastLoginAt", "last_login_at", func(e *SystemUser) *time.Time { return e.LastLoginAt }),
	query.Time("CreatedAt", "created_at", func(e *SystemUser) time.Time { return e.CreatedAt }),
	query.Time("UpdatedAt", "updated_at", func(e *SystemUser) time.Time { return e.UpdatedAt }),
).OrderBy("Username", false)

var RoleSchema = query.NewSchema("Role", "roles",
	query.UUID("Id", "id", func(e *Role) uuid.UUID { return e.ID }),
	query.String("Name", "name", func(e *Role) string { return e.Name }),
	query.OptString("Description", "description", func(e *Role) string { return e.Description }),
	query.Bool("IsSystem", "is_system", func(e *Role) bool { return e.IsSystem }),
	query.Time("CreatedAt", "created_at", func(e *Role) time.Time { return e.CreatedAt }),
	query.Time("UpdatedAt", "updated_at", func(e *Role) time.Time { return e.UpdatedAt }),
).OrderBy("Name", false)

var AppLookupSchema = query.NewSchema("AppLookup", "app_lookups",
	query.UUID("Id", "id", func(e *AppLookup) uuid.UUID { return e.ID }),
	query.String("Category", "category", func(e *AppLookup) string { return e.Category }),
	query.String("Code", "code", func(e *AppLookup) string { return e.Code }),
	query.String("Value", "value", func(e *AppLookup) string { return e.Value }),
	query.Int("SortOrder", "sort_order", func(e *AppLookup) int { return e.SortOrder }),
	query.Bool("IsActive", "is_active", func(e *AppLookup) bool { return e.IsActive }),
	query.Time("CreatedAt", "created_at", func(e *AppLookup) time.Time { return e.CreatedAt }),
	query.Time("UpdatedAt", "updated_at", func(e *AppLookup) time.Time { return e.UpdatedAt }),
).OrderBy("Category", false).OrderBy("SortOrder", false)

var IntegrationProviderSchema = query.NewSchema("IntegrationProvider", "integration_providers",
	query.UUID("Id", "id", func(e *IntegrationProvider) uuid.UUID { return e.ID }),
	query.String("Code", "code", func(e *IntegrationProvider) string { return e.Code }),
	query.String("Name", "name", func(e *IntegrationProvider) string { return e.Name }),
	query.String("Type", "type", func(e *IntegrationProvider) string { return e.Type }),
	query.OptString("BaseUrl", "base_url", func(e *IntegrationProvider) string { return e.BaseURL }),
	query.Bool("IsActive", "is_active", func(e *IntegrationProvider) bool { return e.IsActive }),
	query.Time("CreatedAt", "created_at", func(e *IntegrationProvider) time.Time { return e.CreatedAt }),
	query.Time("UpdatedAt", "updated_at", func(e *IntegrationProvider) time.Time { return e.UpdatedAt }),
).OrderBy("Name", false)

// Value is not queryable so secret settings cannot be probed with filters.
var IntegrationSettingSchema = query.NewSchema("IntegrationSetting", "integration_settings",
	query.UUID("Id", "id", func(e *IntegrationSetting) uuid.UUID { return e.ID }),
	query.UUID("ProviderId", "provider_id", func(e *IntegrationSetting) uuid.UUID { return e.ProviderID }),
	query.OptUUID("BranchId", "branch_id", func(e *IntegrationSetting) *uuid.UUID { return e.BranchID }),
	query.String("Key", "key", func(e *IntegrationSetting) string { return e.Key }),
	query.Bool("IsSecret", "is_secret", func(e *IntegrationSetting) bool { return e.IsSecret }),
	query.Time("CreatedAt", "created_at", func(e *IntegrationSetting) time.Time { return e.CreatedAt }),
	query.Time("UpdatedAt", "updated_at", func(e *IntegrationSetting) time.Time { return e.UpdatedAt }),
).OrderBy("Key", false)

var AuditEventSchema = query.NewSchema("AuditEvent", "audit_events",
	query.Int("Id", "id", func(e *AuditEvent) int { return int(e.ID) }),
	query.String("Topic", "topic", func(e *AuditEvent) string { return e.Topic }),
	query.String("EntityType", "entity_type", func(e *AuditEvent) string { return e.EntityType }),
	query.String("EntityId", "entity_id", func(e *AuditEvent) string { return e.EntityID }),
	query.OptString("Actor", "actor", func(e *AuditEvent) string { return e.Actor }),
	query.Time("CreatedAt", "created_at", func(e *AuditEvent) time.Time { return e.CreatedAt }),
).OrderBy("CreatedAt", true)
