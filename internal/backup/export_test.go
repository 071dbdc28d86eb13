package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/store/memory"
)

// seededStore returns a memory store with one record of most types.
func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	role := &model.Role{Name: "admin", Permissions: []string{"*"}, IsSystem: true}
	must(s.Roles().Create(ctx, role))
	must(s.Users().Create(ctx, &model.SystemUser{Username: "amira", Email: "a@example.com", FullName: "Amira", RoleID: role.ID, PasswordHash: "$2a$10$secret-hash"}))
	branch := &model.Branch{Code: "HQ", Name: "Head office"}
	must(s.Branches().Create(ctx, branch))
	first := &model.Product{Code: "B", Name: "Second", Unit: "box"}
	must(s.Products().Create(ctx, first))
	must(s.Products().Create(ctx, &model.Product{Code: "A", Name: "Third", Unit: "box"}))
	stock := &model.Stock{BranchID: branch.ID, ProductID: first.ID, BatchNumber: "B1", Quantity: 5}
	must(s.Stocks().Create(ctx, stock))
	must(s.SalesInvoices().Create(ctx, &model.SalesInvoice{
		InvoiceNumber: "INV-1",
		BranchID:      branch.ID,
		PaymentMethod: model.PaymentCash,
		Items:         []model.InvoiceItem{{StockID: stock.ID, ProductID: first.ID, Quantity: 1, UnitPrice: 2}},
	}))
	provider := &model.IntegrationProvider{Code: "SMS", Name: "SMS", Type: "sms"}
	must(s.IntegrationProviders().Create(ctx, provider))
	must(s.IntegrationSettings().Create(ctx, &model.IntegrationSetting{ProviderID: provider.ID, Key: "api_key", Value: "s3cr3t", IsSecret: true}))
	must(s.RecordAuditEvent(ctx, &model.AuditEvent{Topic: "pharmacy.branches.created", EntityType: "Branch", EntityID: branch.ID.String()}))
	return s
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	counts, err := ExportJSONL(context.Background(), memory.New(), &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.Counts["product"] != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
	if len(counts) != 12 {
		t.Fatalf("expected a count for each of 12 record types, got %d", len(counts))
	}
}

func TestExportJSONL_Records(t *testing.T) {
	s := seededStore(t)

	var buf bytes.Buffer
	counts, err := ExportJSONL(context.Background(), s, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// header + role, user, branch, 2 products, stock, invoice, provider,
	// setting, audit event
	if len(lines) != 11 {
		t.Fatalf("expected 11 lines, got %d:\n%s", len(lines), buf.String())
	}
	if counts["product"] != 2 || counts["sales_invoice"] != 1 || counts["audit_event"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	var types []string
	byType := map[string][]json.RawMessage{}
	for _, line := range lines[1:] {
		var rec struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("unmarshal %q: %v", line, err)
		}
		types = append(types, rec.Type)
		byType[rec.Type] = append(byType[rec.Type], rec.Data)
	}

	// Parents come before the rows that reference them.
	want := []string{"role", "branch", "user", "product", "product", "stock", "sales_invoice", "integration_provider", "integration_setting", "audit_event"}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("record order = %v, want %v", types, want)
	}

	// Oldest first within a type.
	var p1, p2 model.Product
	if err := json.Unmarshal(byType["product"][0], &p1); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(byType["product"][1], &p2); err != nil {
		t.Fatal(err)
	}
	if p1.Code != "B" || p2.Code != "A" {
		t.Fatalf("products out of creation order: %q, %q", p1.Code, p2.Code)
	}

	var inv model.SalesInvoice
	if err := json.Unmarshal(byType["sales_invoice"][0], &inv); err != nil {
		t.Fatal(err)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("expected invoice items to be exported, got %d", len(inv.Items))
	}

	out := buf.String()
	if strings.Contains(out, "s3cr3t") {
		t.Fatal("secret setting value was exported")
	}
	if strings.Contains(out, "secret-hash") {
		t.Fatal("password hash was exported")
	}
}

func nonEmptyLines(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
