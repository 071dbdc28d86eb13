package server

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/apperr"
	"github.com/alfredjeanlab/pharmacy/internal/auth"
	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

// valueOr returns *p when set, otherwise def.
func valueOr[T any](p *T, def T) T {
	if p != nil {
		return *p
	}
	return def
}

// activeFlag defaults IsActive to true for new records and leaves it
// unchanged on update when the request omits it.
func activeFlag(in *bool, current bool, id uuid.UUID) bool {
	return valueOr(in, current || id == uuid.Nil)
}

type branchInput struct {
	Code     string `json:"code" validate:"required,max=20"`
	Name     string `json:"name" validate:"required,max=200"`
	Address  string `json:"address" validate:"max=500"`
	Phone    string `json:"phone" validate:"max=50"`
	IsActive *bool  `json:"isActive"`
}

func (in *branchInput) apply(v *model.Branch) {
	v.Code, v.Name, v.Address, v.Phone = in.Code, in.Name, in.Address, in.Phone
	v.IsActive = activeFlag(in.IsActive, v.IsActive, v.ID)
}

var branches = resource[model.Branch]{
	name:     "branches",
	schema:   model.BranchSchema,
	repo:     store.Store.Branches,
	input:    func() mapper[model.Branch] { return &branchInput{} },
	validate: model.ValidateBranch,
	id:       func(v *model.Branch) uuid.UUID { return v.ID },
}

type productInput struct {
	Code                 string     `json:"code" validate:"required,max=50"`
	Name                 string     `json:"name" validate:"required,max=200"`
	GenericName          string     `json:"genericName" validate:"max=200"`
	Barcode              string     `json:"barcode" validate:"max=50"`
	CategoryID           *uuid.UUID `json:"categoryId"`
	Unit                 string     `json:"unit" validate:"required,max=20"`
	UnitPrice            float64    `json:"unitPrice" validate:"gte=0"`
	CostPrice            float64    `json:"costPrice" validate:"gte=0"`
	ReorderLevel         int        `json:"reorderLevel" validate:"gte=0"`
	RequiresPrescription bool       `json:"requiresPrescription"`
	Status               int        `json:"status" validate:"omitempty,oneof=1 2 3"`
}

func (in *productInput) apply(v *model.Product) {
	v.Code, v.Name, v.GenericName, v.Barcode = in.Code, in.Name, in.GenericName, in.Barcode
	v.CategoryID = in.CategoryID
	v.Unit = in.Unit
	v.UnitPrice, v.CostPrice = in.UnitPrice, in.CostPrice
	v.ReorderLevel = in.ReorderLevel
	v.RequiresPrescription = in.RequiresPrescription
	v.Status = model.ProductStatus(in.Status)
}

var products = resource[model.Product]{
	name:     "products",
	schema:   model.ProductSchema,
	repo:     store.Store.Products,
	input:    func() mapper[model.Product] { return &productInput{} },
	validate: model.ValidateProduct,
	id:       func(v *model.Product) uuid.UUID { return v.ID },
	prepare: func(ctx context.Context, s *Server, _ mapper[model.Product], v, _ *model.Product) error {
		return existsOpt(ctx, "categoryId", s.store.Lookups(), v.CategoryID)
	},
}

type stakeholderInput struct {
	Type      int    `json:"type" validate:"required,oneof=1 2 3"`
	Name      string `json:"name" validate:"required,max=200"`
	Email     string `json:"email" validate:"omitempty,email,max=200"`
	Phone     string `json:"phone" validate:"max=50"`
	Address   string `json:"address" validate:"max=500"`
	TaxNumber string `json:"taxNumber" validate:"max=50"`
	IsActive  *bool  `json:"isActive"`
}

func (in *stakeholderInput) apply(v *model.Stakeholder) {
	v.Type = model.StakeholderType(in.Type)
	v.Name, v.Email, v.Phone, v.Address, v.TaxNumber = in.Name, in.Email, in.Phone, in.Address, in.TaxNumber
	v.IsActive = activeFlag(in.IsActive, v.IsActive, v.ID)
}

var stakeholders = resource[model.Stakeholder]{
	name:     "stakeholders",
	schema:   model.StakeholderSchema,
	repo:     store.Store.Stakeholders,
	input:    func() mapper[model.Stakeholder] { return &stakeholderInput{} },
	validate: model.ValidateStakeholder,
	id:       func(v *model.Stakeholder) uuid.UUID { return v.ID },
}

// stockInput creates or edits a stock row. Quantity is the opening balance
// and is ignored on update; balances move through stock transactions.
type stockInput struct {
	BranchID    uuid.UUID  `json:"branchId" validate:"required"`
	ProductID   uuid.UUID  `json:"productId" validate:"required"`
	BatchNumber string     `json:"batchNumber" validate:"required,max=50"`
	ExpiryDate  *time.Time `json:"expiryDate"`
	Quantity    int        `json:"quantity" validate:"gte=0"`
}

func (in *stockInput) apply(v *model.Stock) {
	v.BatchNumber = in.BatchNumber
	v.ExpiryDate = in.ExpiryDate
	if v.ID == uuid.Nil {
		v.BranchID, v.ProductID, v.Quantity = in.BranchID, in.ProductID, in.Quantity
	}
}

var stocks = resource[model.Stock]{
	name:     "stocks",
	schema:   model.StockSchema,
	repo:     store.Store.Stocks,
	input:    func() mapper[model.Stock] { return &stockInput{} },
	validate: model.ValidateStock,
	id:       func(v *model.Stock) uuid.UUID { return v.ID },
	prepare: func(ctx context.Context, s *Server, _ mapper[model.Stock], v, old *model.Stock) error {
		if old != nil {
			return nil
		}
		if err := exists(ctx, "branchId", s.store.Branches(), v.BranchID); err != nil {
			return err
		}
		return exists(ctx, "productId", s.store.Products(), v.ProductID)
	},
	beforeDelete: func(ctx context.Context, st store.Store, v *model.Stock) error {
		n, err := countWhere(ctx, st.StockTransactions().Query(), "StockId", v.ID.String())
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Invalid("stock %s has %d transactions and cannot be deleted", v.ID, n)
		}
		return nil
	},
}

type userInput struct {
	Username string     `json:"username" validate:"required,max=50"`
	Email    string     `json:"email" validate:"required,email,max=200"`
	FullName string     `json:"fullName" validate:"required,max=200"`
	RoleID   uuid.UUID  `json:"roleId" validate:"required"`
	BranchID *uuid.UUID `json:"branchId"`
	IsActive *bool      `json:"isActive"`
	// Password is required on create and rejected on update.
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

func (in *userInput) apply(v *model.SystemUser) {
	v.Username, v.Email, v.FullName = in.Username, in.Email, in.FullName
	v.RoleID, v.BranchID = in.RoleID, in.BranchID
	v.IsActive = activeFlag(in.IsActive, v.IsActive, v.ID)
}

var users = resource[model.SystemUser]{
	name:     "users",
	schema:   model.SystemUserSchema,
	repo:     store.Store.Users,
	input:    func() mapper[model.SystemUser] { return &userInput{} },
	validate: model.ValidateSystemUser,
	id:       func(v *model.SystemUser) uuid.UUID { return v.ID },
	prepare: func(ctx context.Context, s *Server, m mapper[model.SystemUser], v, old *model.SystemUser) error {
		in := m.(*userInput)
		if old != nil && in.Password != "" {
			return apperr.Invalid("password cannot be changed here; use PUT /v1/users/%s/password", old.ID)
		}
		if err := exists(ctx, "roleId", s.store.Roles(), v.RoleID); err != nil {
			return err
		}
		if err := existsOpt(ctx, "branchId", s.store.Branches(), v.BranchID); err != nil {
			return err
		}
		if old == nil {
			if in.Password == "" {
				return apperr.Invalid("password is required")
			}
			hash, err := auth.HashPassword(in.Password)
			if err != nil {
				return apperr.Invalid("%s", err)
			}
			v.PasswordHash = hash
		}
		return nil
	},
	beforeDelete: func(ctx context.Context, _ store.Store, v *model.SystemUser) error {
		if c := auth.ClaimsFromContext(ctx); c != nil && c.Subject == v.ID.String() {
			return apperr.Invalid("you cannot delete your own account")
		}
		return nil
	},
}

type roleInput struct {
	Name        string   `json:"name" validate:"required,max=50"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions" validate:"dive,required,max=100"`
}

func (in *roleInput) apply(v *model.Role) {
	v.Name, v.Description = in.Name, in.Description
	v.Permissions = append([]string{}, in.Permissions...)
}

var roles = resource[model.Role]{
	name:     "roles",
	schema:   model.RoleSchema,
	repo:     store.Store.Roles,
	input:    func() mapper[model.Role] { return &roleInput{} },
	validate: model.ValidateRole,
	id:       func(v *model.Role) uuid.UUID { return v.ID },
	prepare: func(_ context.Context, _ *Server, _ mapper[model.Role], v, old *model.Role) error {
		if old != nil && old.IsSystem && v.Name != old.Name {
			return apperr.Invalid("system role %q cannot be renamed", old.Name)
		}
		return nil
	},
	beforeDelete: func(ctx context.Context, st store.Store, v *model.Role) error {
		if v.IsSystem {
			return apperr.Invalid("system role %q cannot be deleted", v.Name)
		}
		n, err := countWhere(ctx, st.Users().Query(), "RoleId", v.ID.String())
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Invalid("role %q is assigned to %d users", v.Name, n)
		}
		return nil
	},
}

type lookupInput struct {
	Category  string `json:"category" validate:"required,max=50"`
	Code      string `json:"code" validate:"required,max=50"`
	Value     string `json:"value" validate:"required,max=200"`
	SortOrder int    `json:"sortOrder"`
	IsActive  *bool  `json:"isActive"`
}

func (in *lookupInput) apply(v *model.AppLookup) {
	v.Category, v.Code, v.Value, v.SortOrder = in.Category, in.Code, in.Value, in.SortOrder
	v.IsActive = activeFlag(in.IsActive, v.IsActive, v.ID)
}

var lookups = resource[model.AppLookup]{
	name:     "lookups",
	schema:   model.AppLookupSchema,
	repo:     store.Store.Lookups,
	input:    func() mapper[model.AppLookup] { return &lookupInput{} },
	validate: model.ValidateAppLookup,
	id:       func(v *model.AppLookup) uuid.UUID { return v.ID },
}

type integrationProviderInput struct {
	Code     string `json:"code" validate:"required,max=50"`
	Name     string `json:"name" validate:"required,max=200"`
	Type     string `json:"type" validate:"required,max=50"`
	BaseURL  string `json:"baseUrl" validate:"omitempty,url,max=500"`
	IsActive *bool  `json:"isActive"`
}

func (in *integrationProviderInput) apply(v *model.IntegrationProvider) {
	v.Code, v.Name, v.Type, v.BaseURL = in.Code, in.Name, in.Type, in.BaseURL
	v.IsActive = activeFlag(in.IsActive, v.IsActive, v.ID)
}

var integrationProviders = resource[model.IntegrationProvider]{
	name:     "integration-providers",
	schema:   model.IntegrationProviderSchema,
	repo:     store.Store.IntegrationProviders,
	input:    func() mapper[model.IntegrationProvider] { return &integrationProviderInput{} },
	validate: model.ValidateIntegrationProvider,
	id:       func(v *model.IntegrationProvider) uuid.UUID { return v.ID },
	beforeDelete: func(ctx context.Context, st store.Store, v *model.IntegrationProvider) error {
		n, err := countWhere(ctx, st.IntegrationSettings().Query(), "ProviderId", v.ID.String())
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Invalid("provider %q has %d settings", v.Code, n)
		}
		return nil
	},
}

type integrationSettingInput struct {
	ProviderID uuid.UUID  `json:"providerId" validate:"required"`
	BranchID   *uuid.UUID `json:"branchId"`
	Key        string     `json:"key" validate:"required,max=100"`
	Value      string     `json:"value" validate:"max=4000"`
	IsSecret   bool       `json:"isSecret"`
}

func (in *integrationSettingInput) apply(v *model.IntegrationSetting) {
	v.ProviderID, v.BranchID, v.Key, v.IsSecret = in.ProviderID, in.BranchID, in.Key, in.IsSecret
	v.Value = in.Value
}

var integrationSettings = resource[model.IntegrationSetting]{
	name:     "integration-settings",
	schema:   model.IntegrationSettingSchema,
	repo:     store.Store.IntegrationSettings,
	input:    func() mapper[model.IntegrationSetting] { return &integrationSettingInput{} },
	validate: model.ValidateIntegrationSetting,
	id:       func(v *model.IntegrationSetting) uuid.UUID { return v.ID },
	present:  model.IntegrationSetting.Masked,
	prepare: func(ctx context.Context, s *Server, _ mapper[model.IntegrationSetting], v, old *model.IntegrationSetting) error {
		// Clients echo the mask back when they edit other fields.
		if old != nil && old.IsSecret && v.Value == model.SecretMask {
			v.Value = old.Value
		}
		if err := exists(ctx, "providerId", s.store.IntegrationProviders(), v.ProviderID); err != nil {
			return err
		}
		return existsOpt(ctx, "branchId", s.store.Branches(), v.BranchID)
	},
}
