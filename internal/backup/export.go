// Package backup exports the pharmacy store as JSONL and ships it to
// destinations on a schedule.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/query"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string         `json:"version"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Counts    map[string]int `json:"counts"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// table is every row of one record type, in export order.
type table struct {
	name string
	rows []any
}

// ExportJSONL writes every record in the store to w as JSONL: a header with
// per-type counts, then one line per record. Records are grouped by type,
// parents before children, oldest first. Invoices carry their items and
// secret integration settings are masked; password hashes are never
// exported. It returns the counts written in the header.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) (map[string]int, error) {
	tables, err := snapshot(ctx, s)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(tables))
	for _, t := range tables {
		counts[t.name] = len(t.rows)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      "header",
		Timestamp: time.Now().UTC(),
		Counts:    counts,
	}); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	for _, t := range tables {
		for i, row := range t.rows {
			if err := enc.Encode(record{Type: t.name, Data: row}); err != nil {
				return nil, fmt.Errorf("encode %s %d: %w", t.name, i, err)
			}
		}
	}
	return counts, nil
}

func snapshot(ctx context.Context, s store.Store) ([]table, error) {
	steps := []func() (table, error){
		func() (table, error) { return rows(ctx, "role", s.Roles().Query(), "CreatedAt", nil) },
		func() (table, error) { return rows(ctx, "branch", s.Branches().Query(), "CreatedAt", nil) },
		func() (table, error) { return rows(ctx, "user", s.Users().Query(), "CreatedAt", nil) },
		func() (table, error) { return rows(ctx, "lookup", s.Lookups().Query(), "CreatedAt", nil) },
		func() (table, error) { return rows(ctx, "product", s.Products().Query(), "CreatedAt", nil) },
		func() (table, error) { return rows(ctx, "stakeholder", s.Stakeholders().Query(), "CreatedAt", nil) },
		func() (table, error) { return rows(ctx, "stock", s.Stocks().Query(), "CreatedAt", nil) },
		func() (table, error) {
			// Lists omit items, so each invoice is re-read in full.
			return rows(ctx, "sales_invoice", s.SalesInvoices().Query(), "CreatedAt", func(inv model.SalesInvoice) (any, error) {
				full, err := s.SalesInvoices().Get(ctx, inv.ID)
				if err != nil {
					return nil, fmt.Errorf("get invoice %s: %w", inv.InvoiceNumber, err)
				}
				return full, nil
			})
		},
		func() (table, error) {
			return rows(ctx, "stock_transaction", s.StockTransactions().Query(), "CreatedAt", nil)
		},
		func() (table, error) {
			return rows(ctx, "integration_provider", s.IntegrationProviders().Query(), "CreatedAt", nil)
		},
		func() (table, error) {
			return rows(ctx, "integration_setting", s.IntegrationSettings().Query(), "CreatedAt", func(v model.IntegrationSetting) (any, error) {
				return v.Masked(), nil
			})
		},
		func() (table, error) { return rows(ctx, "audit_event", s.AuditEvents(), "Id", nil) },
	}

	tables := make([]table, 0, len(steps))
	for _, step := range steps {
		t, err := step()
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// rows reads every record of q sorted ascending by sortBy. convert, when
// set, replaces each record before it is written.
func rows[T any](ctx context.Context, name string, q query.Query[T], sortBy string, convert func(T) (any, error)) (table, error) {
	res, err := query.Run(ctx, q, query.DataRequest{
		Sort:       []query.SortSpec{{SortBy: sortBy, SortDirection: "asc"}},
		Pagination: query.PaginationSpec{GetAll: true},
	})
	if err != nil {
		return table{}, fmt.Errorf("list %s: %w", name, err)
	}
	t := table{name: name, rows: make([]any, 0, len(res.Data))}
	for _, v := range res.Data {
		var row any = v
		if convert != nil {
			if row, err = convert(v); err != nil {
				return table{}, err
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}
