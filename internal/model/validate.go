package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) text(field, value string, required bool, max int) {
	v := strings.TrimSpace(value)
	switch {
	case required && v == "":
		e.add(field, "is required")
	case len([]rune(v)) > max:
		e.add(field, "must be %d characters or fewer", max)
	}
}

func (e *ValidationError) id(field string, id uuid.UUID) {
	if id == uuid.Nil {
		e.add(field, "is required")
	}
}

func (e *ValidationError) money(field string, v float64) {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		e.add(field, "must be a non-negative amount")
	}
}

func (e *ValidationError) result() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func ValidateBranch(b *Branch) error {
	var ve ValidationError
	ve.text("code", b.Code, true, 20)
	ve.text("name", b.Name, true, 200)
	ve.text("address", b.Address, false, 500)
	ve.text("phone", b.Phone, false, 30)
	return ve.result()
}

func ValidateProduct(p *Product) error {
	var ve ValidationError
	ve.text("code", p.Code, true, 50)
	ve.text("name", p.Name, true, 200)
	ve.text("genericName", p.GenericName, false, 200)
	ve.text("barcode", p.Barcode, false, 64)
	ve.text("unit", p.Unit, true, 20)
	ve.money("unitPrice", p.UnitPrice)
	ve.money("costPrice", p.CostPrice)
	if p.ReorderLevel < 0 {
		ve.add("reorderLevel", "must not be negative")
	}
	if p.Status != 0 && !p.Status.IsValid() {
		ve.add("status", "invalid value %d", int(p.Status))
	}
	return ve.result()
}

func ValidateStakeholder(s *Stakeholder) error {
	var ve ValidationError
	if !s.Type.IsValid() {
		ve.add("type", "invalid value %d", int(s.Type))
	}
	ve.text("name", s.Name, true, 200)
	ve.text("email", s.Email, false, 200)
	if s.Email != "" && !strings.Contains(s.Email, "@") {
		ve.add("email", "must be an email address")
	}
	ve.text("phone", s.Phone, false, 30)
	ve.text("taxNumber", s.TaxNumber, false, 50)
	return ve.result()
}

func ValidateStock(s *Stock) error {
	var ve ValidationError
	ve.id("branchId", s.BranchID)
	ve.id("productId", s.ProductID)
	ve.text("batchNumber", s.BatchNumber, true, 50)
	if s.Quantity < 0 {
		ve.add("quantity", "must not be negative")
	}
	return ve.result()
}

// ValidateStockTransaction checks the sign of the movement against its type:
// purchases and returns add stock, sales and expiries remove it, adjustments
// go either way. Zero is never a movement.
func ValidateStockTransaction(t *StockTransaction) error {
	var ve ValidationError
	if !t.Type.IsValid() {
		ve.add("type", "invalid value %d", int(t.Type))
	}
	if t.StockID == uuid.Nil {
		ve.id("branchId", t.BranchID)
		ve.id("productId", t.ProductID)
	}
	switch {
	case t.Quantity == 0:
		ve.add("quantity", "must not be zero")
	case (t.Type == TransactionPurchase || t.Type == TransactionReturn) && t.Quantity < 0:
		ve.add("quantity", "must be positive for %s", t.Type)
	case (t.Type == TransactionSale || t.Type == TransactionExpired) && t.Quantity > 0:
		ve.add("quantity", "must be negative for %s", t.Type)
	}
	ve.text("note", t.Note, false, 500)
	return ve.result()
}

// ValidateSalesInvoice checks the invoice header and items before totals are
// computed.
func ValidateSalesInvoice(inv *SalesInvoice) error {
	var ve ValidationError
	ve.id("branchId", inv.BranchID)
	if !inv.PaymentMethod.IsValid() {
		ve.add("paymentMethod", "invalid value %d", int(inv.PaymentMethod))
	}
	ve.money("discount", inv.Discount)
	ve.money("tax", inv.Tax)
	if len(inv.Items) == 0 {
		ve.add("items", "at least one item is required")
	}
	for i, it := range inv.Items {
		field := fmt.Sprintf("items[%d]", i)
		ve.id(field+".stockId", it.StockID)
		if it.Quantity <= 0 {
			ve.add(field+".quantity", "must be positive")
		}
		ve.money(field+".unitPrice", it.UnitPrice)
		ve.money(field+".discount", it.Discount)
		if it.Discount > float64(it.Quantity)*it.UnitPrice {
			ve.add(field+".discount", "exceeds the line amount")
		}
	}
	ve.text("note", inv.Note, false, 500)
	return ve.result()
}

// ComputeTotals fills LineTotal on every item and the invoice SubTotal and
// Total. Amounts are rounded to cents.
func ComputeTotals(inv *SalesInvoice) {
	var sub float64
	for i := range inv.Items {
		it := &inv.Items[i]
		it.LineTotal = roundCents(float64(it.Quantity)*it.UnitPrice - it.Discount)
		sub += it.LineTotal
	}
	inv.SubTotal = roundCents(sub)
	inv.Total = roundCents(inv.SubTotal - inv.Discount + inv.Tax)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func ValidateSystemUser(u *SystemUser) error {
	var ve ValidationError
	ve.text("username", u.Username, true, 50)
	if strings.ContainsAny(u.Username, " \t\n") {
		ve.add("username", "must not contain whitespace")
	}
	ve.text("email", u.Email, true, 200)
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		ve.add("email", "must be an email address")
	}
	ve.text("fullName", u.FullName, true, 200)
	ve.id("roleId", u.RoleID)
	return ve.result()
}

func ValidateRole(r *Role) error {
	var ve ValidationError
	ve.text("name", r.Name, true, 50)
	ve.text("description", r.Description, false, 500)
	for i, p := range r.Permissions {
		if p != PermissionAll && !strings.Contains(p, ":") {
			ve.add(fmt.Sprintf("permissions[%d]", i), "must be %q or resource:action", PermissionAll)
		}
	}
	return ve.result()
}

func ValidateAppLookup(l *AppLookup) error {
	var ve ValidationError
	ve.text("category", l.Category, true, 50)
	ve.text("code", l.Code, true, 50)
	ve.text("value", l.Value, true, 200)
	return ve.result()
}

func ValidateIntegrationProvider(p *IntegrationProvider) error {
	var ve ValidationError
	ve.text("code", p.Code, true, 50)
	ve.text("name", p.Name, true, 200)
	ve.text("type", p.Type, true, 50)
	ve.text("baseUrl", p.BaseURL, false, 500)
	return ve.result()
}

func ValidateIntegrationSetting(s *IntegrationSetting) error {
	var ve ValidationError
	ve.id("providerId", s.ProviderID)
	ve.text("key", s.Key, true, 100)
	ve.text("value", s.Value, false, 4000)
	return ve.result()
}

// PermissionAll grants every permission.
const PermissionAll = "*"

// HasPermission reports whether perms grants resource:action.
func HasPermission(perms []string, resource, action string) bool {
	want := resource + ":" + action
	for _, p := range perms {
		if p == PermissionAll || p == want || p == resource+":*" {
			return true
		}
	}
	return false
}
