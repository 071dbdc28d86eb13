package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/apperr"
	"github.com/alfredjeanlab/pharmacy/internal/auth"
	"github.com/alfredjeanlab/pharmacy/internal/events"
	"github.com/alfredjeanlab/pharmacy/internal/idgen"
	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/query"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

// movement is a stock transaction to apply. When the transaction has no
// stock ID, the row is found, or opened for credits, by branch, product and
// batch number.
type movement struct {
	tx          model.StockTransaction
	batchNumber string
	expiryDate  *time.Time

	stock *model.Stock // balance after the movement
}

// applyMovement adjusts the stock balance and appends the ledger entry. It
// must run inside a store transaction so both writes commit together.
func applyMovement(ctx context.Context, st store.Store, m *movement) error {
	t := &m.tx
	if t.StockID == uuid.Nil {
		stock, err := resolveStock(ctx, st, m)
		if err != nil {
			return err
		}
		t.StockID = stock.ID
	} else {
		stock, err := st.Stocks().Get(ctx, t.StockID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.Invalid("stockId: %s does not exist", t.StockID)
			}
			return err
		}
		t.BranchID, t.ProductID = stock.BranchID, stock.ProductID
	}

	stock, err := st.AdjustStock(ctx, t.StockID, t.Quantity)
	if err != nil {
		return fmt.Errorf("stock %s: %w", t.StockID, err)
	}
	t.BalanceAfter = stock.Quantity
	if t.Reference == "" {
		if t.Reference, err = idgen.TransactionReference(); err != nil {
			return err
		}
	}
	t.CreatedBy = auth.Actor(ctx)
	if err := st.StockTransactions().Create(ctx, t); err != nil {
		return err
	}
	m.stock = stock
	return nil
}

func resolveStock(ctx context.Context, st store.Store, m *movement) (*model.Stock, error) {
	t := &m.tx
	if m.batchNumber == "" {
		return nil, apperr.Invalid("batchNumber is required when stockId is omitted")
	}
	q, err := st.Stocks().Query().ApplyFilters([]query.FilterSpec{
		{PropertyName: "BranchId", Operation: query.Equal, Value: t.BranchID.String()},
		{PropertyName: "ProductId", Operation: query.Equal, Value: t.ProductID.String()},
		{PropertyName: "BatchNumber", Operation: query.Equal, Value: m.batchNumber},
	})
	if err != nil {
		return nil, err
	}
	found, err := q.ApplyPagination(ctx, query.PaginationSpec{PageSize: 1})
	if err != nil {
		return nil, err
	}
	if len(found.Data) > 0 {
		return &found.Data[0], nil
	}

	if t.Quantity < 0 {
		return nil, apperr.Invalid("no stock of product %s batch %q at branch %s", t.ProductID, m.batchNumber, t.BranchID)
	}
	if err := exists(ctx, "branchId", st.Branches(), t.BranchID); err != nil {
		return nil, err
	}
	if err := exists(ctx, "productId", st.Products(), t.ProductID); err != nil {
		return nil, err
	}
	stock := &model.Stock{
		BranchID:    t.BranchID,
		ProductID:   t.ProductID,
		BatchNumber: m.batchNumber,
		ExpiryDate:  m.expiryDate,
	}
	if err := st.Stocks().Create(ctx, stock); err != nil {
		return nil, err
	}
	return stock, nil
}

// publishMovement announces a committed movement and, for debits, checks the
// product against its reorder level.
func (s *Server) publishMovement(ctx context.Context, m *movement) {
	t := &m.tx
	s.recordAndPublish(ctx, events.TopicStockMoved, model.StockTransactionSchema.Entity(), t.ID.String(),
		events.StockMoved{Transaction: t, Stock: m.stock})
	if t.Quantity < 0 {
		s.checkLowStock(ctx, t.BranchID, t.ProductID)
	}
}

// checkLowStock publishes StockLow when the on-hand quantity of a product
// across all batches at a branch is at or below its reorder level.
func (s *Server) checkLowStock(ctx context.Context, branchID, productID uuid.UUID) {
	product, err := s.store.Products().Get(ctx, productID)
	if err != nil {
		slog.Warn("low stock check: failed to load product", "product_id", productID, "error", err)
		return
	}
	q, err := s.store.Stocks().Query().ApplyFilters([]query.FilterSpec{
		{PropertyName: "BranchId", Operation: query.Equal, Value: branchID.String()},
		{PropertyName: "ProductId", Operation: query.Equal, Value: productID.String()},
	})
	if err != nil {
		slog.Warn("low stock check: bad filter", "error", err)
		return
	}
	rows, err := q.ApplyPagination(ctx, query.PaginationSpec{GetAll: true})
	if err != nil {
		slog.Warn("low stock check: failed to load stock", "product_id", productID, "error", err)
		return
	}
	total := 0
	for _, st := range rows.Data {
		total += st.Quantity
	}
	if total > product.ReorderLevel {
		return
	}
	s.recordAndPublish(ctx, events.TopicStockLow, model.ProductSchema.Entity(), productID.String(), events.StockLow{
		BranchID:     branchID.String(),
		ProductID:    productID.String(),
		Quantity:     total,
		ReorderLevel: product.ReorderLevel,
	})
}

type stockTransactionInput struct {
	StockID       *uuid.UUID `json:"stockId"`
	BranchID      uuid.UUID  `json:"branchId"`
	ProductID     uuid.UUID  `json:"productId"`
	BatchNumber   string     `json:"batchNumber" validate:"max=50"`
	ExpiryDate    *time.Time `json:"expiryDate"`
	Type          int        `json:"type" validate:"required,oneof=1 2 3 4 5"`
	Quantity      int        `json:"quantity" validate:"ne=0"`
	StakeholderID *uuid.UUID `json:"stakeholderId"`
	Note          string     `json:"note" validate:"max=500"`
}

func (in *stockTransactionInput) movement() *movement {
	m := &movement{
		tx: model.StockTransaction{
			BranchID:      in.BranchID,
			ProductID:     in.ProductID,
			Type:          model.TransactionType(in.Type),
			Quantity:      in.Quantity,
			StakeholderID: in.StakeholderID,
			Note:          in.Note,
		},
		batchNumber: in.BatchNumber,
		expiryDate:  in.ExpiryDate,
	}
	if in.StockID != nil {
		m.tx.StockID = *in.StockID
	}
	return m
}

// handleCreateStockTransaction handles POST /v1/stock-transactions.
func (s *Server) handleCreateStockTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in stockTransactionInput
	if err := s.decode(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	m := in.movement()
	if err := model.ValidateStockTransaction(&m.tx); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := existsOpt(ctx, "stakeholderId", s.store.Stakeholders(), m.tx.StakeholderID); err != nil {
		writeErr(w, r, err)
		return
	}

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		return applyMovement(ctx, tx, m)
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}

	s.publishMovement(ctx, m)
	writeCreated(w, r, m.tx.ID.String(), &m.tx)
}
