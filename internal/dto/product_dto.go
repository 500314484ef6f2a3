package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Name  string          `json:"name"  validate:"required,min=1,max=200"`
	Price decimal.Decimal `json:"price" validate:"min=0"`
	Stock int             `json:"stock" validate:"min=0"`
}

// UpdateProductRequest uses pointers so that omitted fields are left untouched.
// Edits affect only future bills — snapshotted bill items never change.
type UpdateProductRequest struct {
	Name  *string          `json:"name"  validate:"omitempty,min=1,max=200"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock" validate:"omitempty,min=0"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductFilter struct {
	Name  string `form:"name"`
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
