package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/apperr"
	"github.com/alfredjeanlab/pharmacy/internal/auth"
	"github.com/alfredjeanlab/pharmacy/internal/events"
	"github.com/alfredjeanlab/pharmacy/internal/idgen"
	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

type invoiceItemInput struct {
	StockID  uuid.UUID `json:"stockId" validate:"required"`
	Quantity int       `json:"quantity" validate:"gt=0"`
	// UnitPrice defaults to the product's current price.
	UnitPrice *float64 `json:"unitPrice" validate:"omitempty,gte=0"`
	Discount  float64  `json:"discount" validate:"gte=0"`
}

type salesInvoiceInput struct {
	BranchID      uuid.UUID          `json:"branchId" validate:"required"`
	CustomerID    *uuid.UUID         `json:"customerId"`
	PaymentMethod int                `json:"paymentMethod" validate:"required,oneof=1 2 3 4"`
	Discount      float64            `json:"discount" validate:"gte=0"`
	Tax           float64            `json:"tax" validate:"gte=0"`
	Note          string             `json:"note" validate:"max=500"`
	Items         []invoiceItemInput `json:"items" validate:"required,min=1,dive"`
}

// issueInvoice prices, validates and stores the invoice, then debits the
// stock of every item. It must run inside a store transaction.
func issueInvoice(ctx context.Context, st store.Store, in *salesInvoiceInput) (*model.SalesInvoice, []*movement, error) {
	inv := &model.SalesInvoice{
		BranchID:      in.BranchID,
		CustomerID:    in.CustomerID,
		PaymentMethod: model.PaymentMethod(in.PaymentMethod),
		Discount:      in.Discount,
		Tax:           in.Tax,
		Note:          in.Note,
		Items:         make([]model.InvoiceItem, len(in.Items)),
	}
	if err := exists(ctx, "branchId", st.Branches(), inv.BranchID); err != nil {
		return nil, nil, err
	}
	if inv.CustomerID != nil {
		customer, err := st.Stakeholders().Get(ctx, *inv.CustomerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil, apperr.Invalid("customerId: %s does not exist", *inv.CustomerID)
			}
			return nil, nil, err
		}
		if customer.Type != model.StakeholderCustomer {
			return nil, nil, apperr.Invalid("customerId: %s is a %s, not a customer", customer.ID, customer.Type)
		}
	}

	for i, item := range in.Items {
		stock, err := st.Stocks().Get(ctx, item.StockID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil, apperr.Invalid("items[%d].stockId: %s does not exist", i, item.StockID)
			}
			return nil, nil, err
		}
		if stock.BranchID != inv.BranchID {
			return nil, nil, apperr.Invalid("items[%d].stockId: stock belongs to another branch", i)
		}
		it := model.InvoiceItem{
			StockID:   item.StockID,
			ProductID: stock.ProductID,
			Quantity:  item.Quantity,
			Discount:  item.Discount,
		}
		if item.UnitPrice != nil {
			it.UnitPrice = *item.UnitPrice
		} else {
			product, err := st.Products().Get(ctx, stock.ProductID)
			if err != nil {
				return nil, nil, err
			}
			it.UnitPrice = product.UnitPrice
		}
		inv.Items[i] = it
	}

	if err := model.ValidateSalesInvoice(inv); err != nil {
		return nil, nil, err
	}
	model.ComputeTotals(inv)
	if inv.Total < 0 {
		return nil, nil, apperr.Invalid("discount exceeds the invoice amount")
	}

	var err error
	if inv.InvoiceNumber, err = idgen.InvoiceNumber(); err != nil {
		return nil, nil, err
	}
	inv.CreatedBy = auth.Actor(ctx)
	if err := st.SalesInvoices().Create(ctx, inv); err != nil {
		return nil, nil, err
	}

	moves := make([]*movement, 0, len(inv.Items))
	for i, it := range inv.Items {
		m := &movement{tx: model.StockTransaction{
			StockID:       it.StockID,
			Type:          model.TransactionSale,
			Quantity:      -it.Quantity,
			InvoiceID:     &inv.ID,
			StakeholderID: inv.CustomerID,
			Note:          inv.InvoiceNumber,
		}}
		if err := applyMovement(ctx, st, m); err != nil {
			return nil, nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		moves = append(moves, m)
	}
	return inv, moves, nil
}

// handleCreateSalesInvoice handles POST /v1/sales-invoices.
func (s *Server) handleCreateSalesInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in salesInvoiceInput
	if err := s.decode(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}

	var inv *model.SalesInvoice
	var moves []*movement
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		inv, moves, err = issueInvoice(ctx, tx, &in)
		return err
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}

	s.recordAndPublish(ctx, events.TopicInvoiceIssued, model.SalesInvoiceSchema.Entity(), inv.ID.String(),
		events.InvoiceIssued{Invoice: inv})
	for _, m := range moves {
		s.publishMovement(ctx, m)
	}
	writeCreated(w, r, inv.ID.String(), inv)
}
