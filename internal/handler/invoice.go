package handler

import (
	"fmt"
	"net/http"

	"github.com/7666638403/rajgarande/internal/apierror"
	"github.com/7666638403/rajgarande/internal/infra"
	"github.com/7666638403/rajgarande/internal/repository"

	"github.com/gin-gonic/gin"
)

// InvoiceHandler streams the printable PDF invoice for a bill. Rendering is
// done per request from the stored bill snapshot, so the invoice works even
// when the async worker has not written a file yet.
type InvoiceHandler struct {
	bills     repository.BillRepository
	storeName string
}

func NewInvoiceHandler(bills repository.BillRepository, storeName string) *InvoiceHandler {
	return &InvoiceHandler{bills: bills, storeName: storeName}
}

// Download godoc
// @Summary      Download the PDF invoice for a bill
// @Tags         bills
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        bill_no path string true "Bill number (BILL-xxxxxx)"
// @Success      200
// @Failure      404 {object} apierror.APIError
// @Router       /v1/bills/{bill_no}/pdf [get]
func (h *InvoiceHandler) Download(c *gin.Context) {
	billNo := c.Param("bill_no")
	bill, err := h.bills.FindByBillNo(c.Request.Context(), billNo)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("Bill not found"))
		return
	}

	data, err := infra.RenderInvoicePDF(bill, h.storeName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to render invoice"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="invoice_%s.pdf"`, bill.BillNo))
	c.Data(http.StatusOK, "application/pdf", data)
}
