package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CartLineRequest is one (product, quantity) pair of a checkout cart.
// Quantity zero or negative means "not purchased" — the line is skipped
// without raising an error, matching how blank quantity fields behave on
// the register form.
type CartLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

type CreateBillRequest struct {
	Customer string            `json:"customer" validate:"required,min=1,max=100"`
	Mobile   string            `json:"mobile"   validate:"required,min=1,max=20"`
	Items    []CartLineRequest `json:"items"    validate:"required,min=1,dive"`
	// CustomerEmail: optional — when present, the invoice worker mails the PDF.
	CustomerEmail *string `json:"customer_email" validate:"omitempty,email"`
}

// ─── Filter / List ───────────────────────────────────────────────────────────

// BillFilter is bound from the query string of GET /v1/bills.
// Q is a single free-text term matched against bill_no, customer_name and
// mobile (case-insensitive substring, OR-combined).
type BillFilter struct {
	Q     string `form:"q"`
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type BillItemResponse struct {
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

type BillResponse struct {
	ID           string             `json:"id"`
	BillNo       string             `json:"bill_no"`
	CustomerName string             `json:"customer_name"`
	Mobile       string             `json:"mobile"`
	Items        []BillItemResponse `json:"items"`
	Subtotal     decimal.Decimal    `json:"subtotal"`
	CGST         decimal.Decimal    `json:"cgst"`
	SGST         decimal.Decimal    `json:"sgst"`
	GrandTotal   decimal.Decimal    `json:"grand_total"`
	IsCancelled  bool               `json:"is_cancelled"`
	CreatedAt    string             `json:"created_at"`
}

type BillListResponse struct {
	Data  []BillResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
