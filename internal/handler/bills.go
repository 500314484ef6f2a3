package handler

import (
	"errors"
	"net/http"

	"github.com/7666638403/rajgarande/internal/apierror"
	"github.com/7666638403/rajgarande/internal/dto"
	"github.com/7666638403/rajgarande/internal/middleware"
	"github.com/7666638403/rajgarande/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type BillsHandler struct{ svc service.BillingService }

func NewBillsHandler(svc service.BillingService) *BillsHandler { return &BillsHandler{svc: svc} }

// Create godoc
// @Summary      Checkout a cart and create a bill
// @Description  Computes subtotal, CGST and SGST (9% each), persists the bill with
// @Description  snapshot line items, and decrements stock in one transaction.
// @Tags         bills
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateBillRequest true "Cart"
// @Success      201  {object} dto.BillResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/bills [post]
func (h *BillsHandler) Create(c *gin.Context) {
	var req dto.CreateBillRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateBill(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			c.JSON(http.StatusNotFound, apierror.New(err.Error()))
		case errors.Is(err, service.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, apierror.New("Cart has no lines with a positive quantity"))
		default:
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		}
		return
	}

	claims := middleware.GetClaims(c)
	log.Info().
		Str("bill_no", resp.BillNo).
		Str("cashier", claims.Username).
		Str("grand_total", resp.GrandTotal.String()).
		Msg("bill created")

	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List bill history
// @Description  Newest first. q matches bill_no, customer_name or mobile (substring, case-insensitive).
// @Tags         bills
// @Produce      json
// @Security     BearerAuth
// @Param        q     query string false "Free-text filter"
// @Param        page  query int    false "Page (default 1)"
// @Param        limit query int    false "Records per page (default 50)"
// @Success      200   {object} dto.BillListResponse
// @Router       /v1/bills [get]
func (h *BillsHandler) List(c *gin.Context) {
	var filter dto.BillFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.ListBills(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to list bills"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary      Get one bill by number
// @Tags         bills
// @Produce      json
// @Security     BearerAuth
// @Param        bill_no path string true "Bill number (BILL-xxxxxx)"
// @Success      200 {object} dto.BillResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/bills/{bill_no} [get]
func (h *BillsHandler) Get(c *gin.Context) {
	resp, err := h.svc.GetBill(c.Request.Context(), c.Param("bill_no"))
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("Bill not found"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary      Cancel a bill and restore stock
// @Description  Idempotent: cancelling an already-cancelled bill changes nothing.
// @Tags         bills
// @Produce      json
// @Security     BearerAuth
// @Param        bill_no path string true "Bill number (BILL-xxxxxx)"
// @Success      204
// @Failure      404 {object} apierror.APIError
// @Router       /v1/bills/{bill_no} [delete]
func (h *BillsHandler) Cancel(c *gin.Context) {
	if err := h.svc.CancelBill(c.Request.Context(), c.Param("bill_no")); err != nil {
		if errors.Is(err, service.ErrBillNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("Bill not found"))
			return
		}
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}

	claims := middleware.GetClaims(c)
	log.Info().
		Str("bill_no", c.Param("bill_no")).
		Str("cancelled_by", claims.Username).
		Msg("bill cancelled")

	c.Status(http.StatusNoContent)
}
