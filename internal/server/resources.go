package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/apperr"
	"github.com/alfredjeanlab/pharmacy/internal/events"
	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/query"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

// mapper is a request body for entity T.
type mapper[T any] interface {
	// apply copies the request onto v. v is zero on create and the stored
	// entity on update.
	apply(v *T)
}

// resource describes one CRUD collection under /v1/{name}.
type resource[T any] struct {
	name     string // URL segment and permission resource
	schema   *query.Schema[T]
	repo     func(store.Store) store.Repository[T]
	input    func() mapper[T]
	validate func(*T) error
	id       func(*T) uuid.UUID

	// prepare runs after apply and before validation. old is nil on create.
	prepare func(ctx context.Context, s *Server, in mapper[T], v, old *T) error
	// beforeDelete may refuse to delete v.
	beforeDelete func(ctx context.Context, st store.Store, v *T) error
	// present adjusts an entity before it leaves the server.
	present func(T) T
}

func (res resource[T]) show(v T) T {
	if res.present == nil {
		return v
	}
	return res.present(v)
}

func (res resource[T]) reader(st store.Store) store.Reader[T] {
	return res.repo(st)
}

// registerCRUD mounts the six CRUD routes for res, each guarded by the
// matching permission.
func registerCRUD[T any](mux *http.ServeMux, s *Server, res resource[T]) {
	registerRead(mux, s, res.name, res.schema, res.reader, res.present)
	base := "/v1/" + res.name
	mux.HandleFunc("POST "+base, s.require(res.name, actionWrite, res.create(s)))
	mux.HandleFunc("PUT "+base+"/{id}", s.require(res.name, actionWrite, res.update(s)))
	mux.HandleFunc("DELETE "+base+"/{id}", s.require(res.name, actionWrite, res.delete(s)))
}

// registerRead mounts list, query and get routes for a readable collection.
func registerRead[T any](mux *http.ServeMux, s *Server, name string, schema *query.Schema[T], reader func(store.Store) store.Reader[T], present func(T) T) {
	base := "/v1/" + name

	mux.HandleFunc("GET "+base, s.require(name, actionRead, func(w http.ResponseWriter, r *http.Request) {
		req, err := requestFromQuery(schema, r.URL.Query())
		if err != nil {
			writeErr(w, r, err)
			return
		}
		runQuery(w, r, reader(s.store).Query(), req, present)
	}))

	mux.HandleFunc("POST "+base+"/query", s.require(name, actionRead, func(w http.ResponseWriter, r *http.Request) {
		var req query.DataRequest
		if err := s.decode(w, r, &req); err != nil {
			writeErr(w, r, err)
			return
		}
		runQuery(w, r, reader(s.store).Query(), req, present)
	}))

	mux.HandleFunc("GET "+base+"/{id}", s.require(name, actionRead, func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		v, err := reader(s.store).Get(r.Context(), id)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if present != nil {
			*v = present(*v)
		}
		writeJSON(w, http.StatusOK, v)
	}))
}

func runQuery[T any](w http.ResponseWriter, r *http.Request, q query.Query[T], req query.DataRequest, present func(T) T) {
	res, err := query.Run(r.Context(), q, req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if present != nil {
		res = query.Map(res, present)
	}
	writeJSON(w, http.StatusOK, res)
}

// requestFromQuery builds a DataRequest from list query parameters:
//
//	filter     AIP-160 expression, e.g. Status = 1 AND IsActive = true AND UnitPrice > 2
//	order_by   e.g. "Name desc, CreatedAt"
//	page, page_size, all
//	columns    comma separated property names
func requestFromQuery[T any](schema *query.Schema[T], v url.Values) (query.DataRequest, error) {
	var req query.DataRequest
	var err error
	if req.Filters, err = query.ParseFilterString(schema, v.Get("filter")); err != nil {
		return req, err
	}
	if ob := v.Get("order_by"); ob != "" {
		if req.Sort, err = query.ParseOrderBy(ob); err != nil {
			return req, err
		}
	}
	if req.Pagination.PageNumber, err = intParam(v, "page"); err != nil {
		return req, err
	}
	if req.Pagination.PageSize, err = intParam(v, "page_size"); err != nil {
		return req, err
	}
	if all := v.Get("all"); all != "" {
		if req.Pagination.GetAll, err = strconv.ParseBool(all); err != nil {
			return req, apperr.Invalid("all: invalid boolean %q", all)
		}
	}
	if cols := v.Get("columns"); cols != "" {
		for _, c := range strings.Split(cols, ",") {
			if c = strings.TrimSpace(c); c != "" {
				req.Columns = append(req.Columns, c)
			}
		}
	}
	return req, nil
}

func intParam(v url.Values, name string) (int, error) {
	s := v.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Invalid("%s: invalid integer %q", name, s)
	}
	return n, nil
}

func (res resource[T]) create(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		in := res.input()
		if err := s.decode(w, r, in); err != nil {
			writeErr(w, r, err)
			return
		}
		var v T
		in.apply(&v)
		if res.prepare != nil {
			if err := res.prepare(ctx, s, in, &v, nil); err != nil {
				writeErr(w, r, err)
				return
			}
		}
		if err := res.validate(&v); err != nil {
			writeErr(w, r, err)
			return
		}
		if err := res.repo(s.store).Create(ctx, &v); err != nil {
			writeErr(w, r, err)
			return
		}

		id := res.id(&v).String()
		out := res.show(v)
		s.recordAndPublish(ctx, events.Topic(res.name, events.VerbCreated), res.schema.Entity(), id,
			events.EntityChanged{Entity: res.schema.Entity(), ID: id, Data: out})
		writeCreated(w, r, id, out)
	}
}

func (res resource[T]) update(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathID(r)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		in := res.input()
		if err := s.decode(w, r, in); err != nil {
			writeErr(w, r, err)
			return
		}
		repo := res.repo(s.store)
		old, err := repo.Get(ctx, id)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		v := *old
		in.apply(&v)
		if res.prepare != nil {
			if err := res.prepare(ctx, s, in, &v, old); err != nil {
				writeErr(w, r, err)
				return
			}
		}
		if err := res.validate(&v); err != nil {
			writeErr(w, r, err)
			return
		}
		if err := repo.Update(ctx, &v); err != nil {
			writeErr(w, r, err)
			return
		}

		out := res.show(v)
		s.recordAndPublish(ctx, events.Topic(res.name, events.VerbUpdated), res.schema.Entity(), id.String(),
			events.EntityChanged{Entity: res.schema.Entity(), ID: id.String(), Data: out})
		writeJSON(w, http.StatusOK, out)
	}
}

func (res resource[T]) delete(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathID(r)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		repo := res.repo(s.store)
		v, err := repo.Get(ctx, id)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if res.beforeDelete != nil {
			if err := res.beforeDelete(ctx, s.store, v); err != nil {
				writeErr(w, r, err)
				return
			}
		}
		if err := repo.Delete(ctx, id); err != nil {
			writeErr(w, r, err)
			return
		}

		s.recordAndPublish(ctx, events.Topic(res.name, events.VerbDeleted), res.schema.Entity(), id.String(),
			events.EntityChanged{Entity: res.schema.Entity(), ID: id.String()})
		w.WriteHeader(http.StatusNoContent)
	}
}

// exists turns a missing referenced record into a validation error on field.
func exists[T any](ctx context.Context, field string, reader store.Reader[T], id uuid.UUID) error {
	if _, err := reader.Get(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Invalid("%s: %s does not exist", field, id)
		}
		return err
	}
	return nil
}

// existsOpt is exists for optional references.
func existsOpt[T any](ctx context.Context, field string, reader store.Reader[T], id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	return exists(ctx, field, reader, *id)
}

// countWhere counts the records of q where property equals value.
func countWhere[T any](ctx context.Context, q query.Query[T], property, value string) (int, error) {
	q, err := q.ApplyFilters([]query.FilterSpec{{PropertyName: property, Operation: query.Equal, Value: value}})
	if err != nil {
		return 0, err
	}
	res, err := q.ApplyPagination(ctx, query.PaginationSpec{PageSize: 1})
	if err != nil {
		return 0, err
	}
	return res.TotalRecords, nil
}

func stockTransactionsOf(st store.Store) store.Reader[model.StockTransaction] {
	return st.StockTransactions()
}

func salesInvoicesOf(st store.Store) store.Reader[model.SalesInvoice] {
	return st.SalesInvoices()
}
