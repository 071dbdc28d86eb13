// Package seed loads reference data (roles, branches, lookups and integration
// providers) from a TOML file into a store.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/query"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

//go:embed default.toml
var defaultFile string

// File is the seed file layout.
type File struct {
	Roles     []Role     `toml:"roles"`
	Branches  []Branch   `toml:"branches"`
	Lookups   []Lookups  `toml:"lookups"`
	Providers []Provider `toml:"providers"`
}

type Role struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Permissions []string `toml:"permissions"`
	System      bool     `toml:"system"`
}

type Branch struct {
	Code    string `toml:"code"`
	Name    string `toml:"name"`
	Address string `toml:"address"`
	Phone   string `toml:"phone"`
}

// Lookups is one lookup category. Values become codes and display values
// alike, in file order.
type Lookups struct {
	Category string   `toml:"category"`
	Values   []string `toml:"values"`
}

type Provider struct {
	Code    string `toml:"code"`
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	BaseURL string `toml:"base_url"`
}

// Result counts the rows Apply created. Rows already present are skipped.
type Result struct {
	Roles     int
	Branches  int
	Lookups   int
	Providers int
}

func (r Result) Total() int { return r.Roles + r.Branches + r.Lookups + r.Providers }

// Default returns the built-in seed data.
func Default() (*File, error) {
	return Load(strings.NewReader(defaultFile))
}

// Load decodes a seed file from r.
func Load(r io.Reader) (*File, error) {
	var f File
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decode seed: unknown key %q", undecoded[0].String())
	}
	return &f, nil
}

// LoadFile decodes the seed file at path.
func LoadFile(path string) (*File, error) {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decode %s: unknown key %q", path, undecoded[0].String())
	}
	return &f, nil
}

// Apply inserts every row of f that is not yet in s, inside one transaction.
// Running it twice creates nothing the second time.
func Apply(ctx context.Context, s store.Store, f *File) (Result, error) {
	var res Result
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		res = Result{}
		for _, r := range f.Roles {
			created, err := applyRole(ctx, tx, r)
			if err != nil {
				return err
			}
			if created {
				res.Roles++
			}
		}
		for _, b := range f.Branches {
			created, err := applyBranch(ctx, tx, b)
			if err != nil {
				return err
			}
			if created {
				res.Branches++
			}
		}
		for _, l := range f.Lookups {
			n, err := applyLookups(ctx, tx, l)
			if err != nil {
				return err
			}
			res.Lookups += n
		}
		for _, p := range f.Providers {
			created, err := applyProvider(ctx, tx, p)
			if err != nil {
				return err
			}
			if created {
				res.Providers++
			}
		}
		return nil
	})
	return res, err
}

func applyRole(ctx context.Context, s store.Store, r Role) (bool, error) {
	_, err := s.GetRoleByName(ctx, r.Name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	role := &model.Role{
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
		IsSystem:    r.System,
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	if err := model.ValidateRole(role); err != nil {
		return false, fmt.Errorf("role %q: %w", r.Name, err)
	}
	if err := s.Roles().Create(ctx, role); err != nil {
		return false, fmt.Errorf("create role %q: %w", r.Name, err)
	}
	return true, nil
}

func applyBranch(ctx context.Context, s store.Store, b Branch) (bool, error) {
	exists, err := hasMatch(ctx, s.Branches().Query(), eq("Code", b.Code))
	if err != nil || exists {
		return false, err
	}
	branch := &model.Branch{Code: b.Code, Name: b.Name, Address: b.Address, Phone: b.Phone, IsActive: true}
	if err := model.ValidateBranch(branch); err != nil {
		return false, fmt.Errorf("branch %q: %w", b.Code, err)
	}
	if err := s.Branches().Create(ctx, branch); err != nil {
		return false, fmt.Errorf("create branch %q: %w", b.Code, err)
	}
	return true, nil
}

func applyLookups(ctx context.Context, s store.Store, l Lookups) (int, error) {
	created := 0
	for i, v := range l.Values {
		exists, err := hasMatch(ctx, s.Lookups().Query(), eq("Category", l.Category), eq("Code", v))
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		lookup := &model.AppLookup{Category: l.Category, Code: v, Value: v, SortOrder: i + 1, IsActive: true}
		if err := model.ValidateAppLookup(lookup); err != nil {
			return created, fmt.Errorf("lookup %s/%s: %w", l.Category, v, err)
		}
		if err := s.Lookups().Create(ctx, lookup); err != nil {
			return created, fmt.Errorf("create lookup %s/%s: %w", l.Category, v, err)
		}
		created++
	}
	return created, nil
}

func applyProvider(ctx context.Context, s store.Store, p Provider) (bool, error) {
	exists, err := hasMatch(ctx, s.IntegrationProviders().Query(), eq("Code", p.Code))
	if err != nil || exists {
		return false, err
	}
	provider := &model.IntegrationProvider{Code: p.Code, Name: p.Name, Type: p.Type, BaseURL: p.BaseURL, IsActive: true}
	if err := model.ValidateIntegrationProvider(provider); err != nil {
		return false, fmt.Errorf("provider %q: %w", p.Code, err)
	}
	if err := s.IntegrationProviders().Create(ctx, provider); err != nil {
		return false, fmt.Errorf("create provider %q: %w", p.Code, err)
	}
	return true, nil
}

func eq(property, value string) query.FilterSpec {
	return query.FilterSpec{PropertyName: property, Operation: query.Equal, Value: value}
}

// hasMatch reports whether q has at least one row matching every filter.
func hasMatch[T any](ctx context.Context, q query.Query[T], filters ...query.FilterSpec) (bool, error) {
	page, err := query.Run(ctx, q, query.DataRequest{
		Filters:    filters,
		Pagination: query.PaginationSpec{PageNumber: 1, PageSize: 1},
	})
	if err != nil {
		return false, err
	}
	return page.TotalRecords > 0, nil
}
