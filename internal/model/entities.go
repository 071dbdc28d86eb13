package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Branch is a physical pharmacy location.
type Branch struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product is an item in the catalogue. Prices are per Unit.
type Product struct {
	ID                   uuid.UUID     `json:"id"`
	Code                 string        `json:"code"`
	Name                 string        `json:"name"`
	GenericName          string        `json:"genericName,omitempty"`
	Barcode              string        `json:"barcode,omitempty"`
	CategoryID           *uuid.UUID    `json:"categoryId,omitempty"`
	Unit                 string        `json:"unit"`
	UnitPrice            float64       `json:"unitPrice"`
	CostPrice            float64       `json:"costPrice"`
	ReorderLevel         int           `json:"reorderLevel"`
	RequiresPrescription bool          `json:"requiresPrescription"`
	Status               ProductStatus `json:"status,omitempty"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

// Stakeholder is a supplier, customer or manufacturer.
type Stakeholder struct {
	ID        uuid.UUID       `json:"id"`
	Type      StakeholderType `json:"type"`
	Name      string          `json:"name"`
	Email     string          `json:"email,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Address   string          `json:"address,omitempty"`
	TaxNumber string          `json:"taxNumber,omitempty"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Stock is the on-hand balance of one product batch at one branch.
type Stock struct {
	ID          uuid.UUID  `json:"id"`
	BranchID    uuid.UUID  `json:"branchId"`
	ProductID   uuid.UUID  `json:"productId"`
	BatchNumber string     `json:"batchNumber"`
	ExpiryDate  *time.Time `json:"expiryDate,omitempty"`
	Quantity    int        `json:"quantity"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// StockTransaction records one signed movement of a stock balance:
// credits are positive, debits negative.
type StockTransaction struct {
	ID            uuid.UUID       `json:"id"`
	Reference     string          `json:"reference"`
	StockID       uuid.UUID       `json:"stockId"`
	BranchID      uuid.UUID       `json:"branchId"`
	ProductID     uuid.UUID       `json:"productId"`
	Type          TransactionType `json:"type"`
	Quantity      int             `json:"quantity"`
	BalanceAfter  int             `json:"balanceAfter"`
	StakeholderID *uuid.UUID      `json:"stakeholderId,omitempty"`
	InvoiceID     *uuid.UUID      `json:"invoiceId,omitempty"`
	Note          string          `json:"note,omitempty"`
	CreatedBy     string          `json:"createdBy"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// SalesInvoice is an immutable record of a sale.
type SalesInvoice struct {
	ID            uuid.UUID     `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	BranchID      uuid.UUID     `json:"branchId"`
	CustomerID    *uuid.UUID    `json:"customerId,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	SubTotal      float64       `json:"subTotal"`
	Discount      float64       `json:"discount"`
	Tax           float64       `json:"tax"`
	Total         float64       `json:"total"`
	Note          string        `json:"note,omitempty"`
	CreatedBy     string        `json:"createdBy"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Items         []InvoiceItem `json:"items,omitempty"`
}

// InvoiceItem is one line of a sales invoice, drawn from a single stock row.
type InvoiceItem struct {
	ID        uuid.UUID `json:"id"`
	InvoiceID uuid.UUID `json:"invoiceId"`
	StockID   uuid.UUID `json:"stockId"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unitPrice"`
	Discount  float64   `json:"discount"`
	LineTotal float64   `json:"lineTotal"`
}

// SystemUser is an operator account.
type SystemUser struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     string     `json:"fullName"`
	PasswordHash string     `json:"-"`
	RoleID       uuid.UUID  `json:"roleId"`
	BranchID     *uuid.UUID `json:"branchId,omitempty"`
	IsActive     bool       `json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Role is a named set of permissions such as "products:read".
// The permission "*" grants everything.
type Role struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	IsSystem    bool      `json:"isSystem"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AppLookup is a configurable reference value, e.g. a product category.
type AppLookup struct {
	ID        uuid.UUID `json:"id"`
	Category  string    `json:"category"`
	Code      string    `json:"code"`
	Value     string    `json:"value"`
	SortOrder int       `json:"sortOrder"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IntegrationProvider is an external system the pharmacy talks to,
// such as an insurer or e-invoicing gateway.
type IntegrationProvider struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	BaseURL   string    `json:"baseUrl,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IntegrationSetting is a key/value setting for a provider, optionally
// scoped to a branch.
type IntegrationSetting struct {
	ID         uuid.UUID  `json:"id"`
	ProviderID uuid.UUID  `json:"providerId"`
	BranchID   *uuid.UUID `json:"branchId,omitempty"`
	Key        string     `json:"key"`
	Value      string     `json:"value"`
	IsSecret   bool       `json:"isSecret"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// SecretMask replaces secret setting values in API responses.
const SecretMask = "********"

// Masked returns a copy with the value hidden when the setting is secret.
func (s IntegrationSetting) Masked() IntegrationSetting {
	if s.IsSecret {
		s.Value = SecretMask
	}
	return s
}

// AuditEvent is a persisted record of a mutation.
type AuditEvent struct {
	ID         int64           `json:"id"`
	Topic      string          `json:"topic"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Actor      string          `json:"actor,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
