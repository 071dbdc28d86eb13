package server

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/query"
)

func TestCreateSalesInvoice(t *testing.T) {
	e := newTestServer(t)
	s := newShop(t, e)
	a := s.stock(t, e, "A", 10)
	b := s.stock(t, e, "B", 4)

	rec := e.do(t, "POST", "/v1/sales-invoices", e.admin, map[string]any{
		"branchId":      s.branch.ID,
		"customerId":    s.customer.ID,
		"paymentMethod": model.PaymentCash,
		"discount":      0.5,
		"tax":           1,
		"items": []map[string]any{
			{"stockId": a.ID, "quantity": 3},
			{"stockId": b.ID, "quantity": 1, "unitPrice": 10, "discount": 1},
		},
	})
	requireStatus(t, rec, http.StatusCreated)

	var inv model.SalesInvoice
	decodeJSON(t, rec, &inv)
	assert.True(t, strings.HasPrefix(inv.InvoiceNumber, "INV-"), inv.InvoiceNumber)
	assert.Equal(t, "admin", inv.CreatedBy)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, 2.5, inv.Items[0].UnitPrice, "price defaults to the product price")
	assert.Equal(t, 7.5, inv.Items[0].LineTotal)
	assert.Equal(t, 9.0, inv.Items[1].LineTotal)
	assert.Equal(t, 16.5, inv.SubTotal)
	assert.Equal(t, 17.0, inv.Total)

	assert.Equal(t, 7, stockQuantity(t, e, a.ID))
	assert.Equal(t, 3, stockQuantity(t, e, b.ID))

	q, err := e.store.StockTransactions().Query().ApplyFilters([]query.FilterSpec{
		{PropertyName: "InvoiceId", Operation: query.Equal, Value: inv.ID.String()},
	})
	require.NoError(t, err)
	txs, err := q.ApplyPagination(context.Background(), query.PaginationSpec{})
	require.NoError(t, err)
	require.Equal(t, 2, txs.TotalRecords)
	for _, tx := range txs.Data {
		assert.Equal(t, model.TransactionSale, tx.Type)
		assert.Less(t, tx.Quantity, 0)
		assert.Equal(t, inv.InvoiceNumber, tx.Note)
		require.NotNil(t, tx.StakeholderID)
		assert.Equal(t, s.customer.ID, *tx.StakeholderID)
	}

	assert.Equal(t, 1, e.pub.count("pharmacy.invoice.issued"))
	assert.Equal(t, 2, e.pub.count("pharmacy.stock.moved"))
	// 7 + 3 is above the reorder level of 5.
	assert.Zero(t, e.pub.count("pharmacy.stock.low"))

	// Lists omit items; a single invoice carries them.
	rec = e.do(t, "GET", "/v1/sales-invoices", e.admin, nil)
	requireStatus(t, rec, http.StatusOK)
	var page query.PagedResult[model.SalesInvoice]
	decodeJSON(t, rec, &page)
	require.Len(t, page.Data, 1)
	assert.Nil(t, page.Data[0].Items)

	rec = e.do(t, "GET", "/v1/sales-invoices/"+inv.ID.String(), e.admin, nil)
	requireStatus(t, rec, http.StatusOK)
	var got model.SalesInvoice
	decodeJSON(t, rec, &got)
	assert.Len(t, got.Items, 2)
}

func TestCreateSalesInvoice_LowStock(t *testing.T) {
	e := newTestServer(t)
	s := newShop(t, e)
	a := s.stock(t, e, "A", 6)

	rec := e.do(t, "POST", "/v1/sales-invoices", e.admin, map[string]any{
		"branchId":      s.branch.ID,
		"paymentMethod": model.PaymentCard,
		"items":         []map[string]any{{"stockId": a.ID, "quantity": 2}},
	})
	requireStatus(t, rec, http.StatusCreated)
	assert.Equal(t, 1, e.pub.count("pharmacy.stock.low"))
}

func TestCreateSalesInvoice_RollsBack(t *testing.T) {
	e := newTestServer(t)
	s := newShop(t, e)
	a := s.stock(t, e, "A", 10)
	b := s.stock(t, e, "B", 1)

	rec := e.do(t, "POST", "/v1/sales-invoices", e.admin, map[string]any{
		"branchId":      s.branch.ID,
		"paymentMethod": model.PaymentCash,
		"items": []map[string]any{
			{"stockId": a.ID, "quantity": 3},
			{"stockId": b.ID, "quantity": 2},
		},
	})
	requireStatus(t, rec, http.StatusBadRequest)
	msg := errorOf(t, rec)
	assert.Contains(t, msg, "items[1]")
	assert.Contains(t, msg, "insufficient stock")

	assert.Equal(t, 10, stockQuantity(t, e, a.ID))
	assert.Equal(t, 1, stockQuantity(t, e, b.ID))
	assert.Zero(t, transactionCount(t, e))
	page, err := e.store.SalesInvoices().Query().ApplyPagination(context.Background(), query.PaginationSpec{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalRecords)
	assert.Zero(t, e.pub.count("pharmacy.invoice.issued"))
}

func TestCreateSalesInvoice_Rejected(t *testing.T) {
	e := newTestServer(t)
	s := newShop(t, e)
	a := s.stock(t, e, "A", 10)

	other := &model.Branch{Code: "B2", Name: "Second", IsActive: true}
	require.NoError(t, e.store.Branches().Create(context.Background(), other))
	elsewhere := &model.Stock{BranchID: other.ID, ProductID: s.product.ID, BatchNumber: "A", Quantity: 10}
	require.NoError(t, e.store.Stocks().Create(context.Background(), elsewhere))

	item := []map[string]any{{"stockId": a.ID, "quantity": 1}}
	for _, tc := range []struct {
		name      string
		body      map[string]any
		wantError string
	}{
		{"NoItems", map[string]any{"branchId": s.branch.ID, "paymentMethod": 1, "items": []map[string]any{}}, ""},
		{"BadPaymentMethod", map[string]any{"branchId": s.branch.ID, "paymentMethod": 7, "items": item}, ""},
		{"ZeroQuantity", map[string]any{"branchId": s.branch.ID, "paymentMethod": 1,
			"items": []map[string]any{{"stockId": a.ID, "quantity": 0}}}, ""},
		{"UnknownBranch", map[string]any{"branchId": uuid.New(), "paymentMethod": 1, "items": item}, "branchId:"},
		{"SupplierAsCustomer", map[string]any{"branchId": s.branch.ID, "customerId": s.supplier.ID, "paymentMethod": 1, "items": item},
			"not a customer"},
		{"UnknownCustomer", map[string]any{"branchId": s.branch.ID, "customerId": uuid.New(), "paymentMethod": 1, "items": item},
			"customerId:"},
		{"StockFromOtherBranch", map[string]any{"branchId": s.branch.ID, "paymentMethod": 1,
			"items": []map[string]any{{"stockId": elsewhere.ID, "quantity": 1}}}, "another branch"},
		{"UnknownStock", map[string]any{"branchId": s.branch.ID, "paymentMethod": 1,
			"items": []map[string]any{{"stockId": uuid.New(), "quantity": 1}}}, "items[0].stockId"},
		{"LineDiscountTooLarge", map[string]any{"branchId": s.branch.ID, "paymentMethod": 1,
			"items": []map[string]any{{"stockId": a.ID, "quantity": 1, "discount": 3}}}, "exceeds the line amount"},
		{"InvoiceDiscountTooLarge", map[string]any{"branchId": s.branch.ID, "paymentMethod": 1, "discount": 100, "items": item},
			"discount exceeds the invoice amount"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, "POST", "/v1/sales-invoices", e.admin, tc.body)
			requireStatus(t, rec, http.StatusBadRequest)
			if tc.wantError != "" {
				assert.Contains(t, errorOf(t, rec), tc.wantError)
			}
		})
	}
	assert.Equal(t, 10, stockQuantity(t, e, a.ID))
}
