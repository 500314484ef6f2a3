package infra

// pdf.go — printable invoice generation using go-pdf/fpdf.
// Renders an A5 tax invoice with:
//   - Store name header
//   - Bill number, customer, mobile, timestamp
//   - Item table (product name, unit price, quantity, line total)
//   - Subtotal, CGST 9%, SGST 9%, bold grand total
//   - CANCELLED note when the bill has been voided

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/7666638403/rajgarande/internal/model"

	"github.com/go-pdf/fpdf"
)

// RenderInvoicePDF renders the invoice for a bill into memory, ready to be
// streamed as an HTTP response or written to disk.
func RenderInvoicePDF(bill *model.Bill, storeName string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, storeName, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Tax Invoice", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	// ── Bill meta ────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, bill.BillNo, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Customer: "+bill.CustomerName, "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, "Mobile: "+bill.Mobile, "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, bill.CreatedAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")

	if bill.IsCancelled {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(180, 0, 0)
		pdf.CellFormat(contentW, 6, "*** CANCELLED ***", "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(2)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.44 // product name
	col2 := contentW * 0.20 // unit price
	col3 := contentW * 0.12 // qty
	col4 := contentW * 0.24 // line total

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col3, 6, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col4, 6, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range bill.Items {
		// Truncate on runes so multi-byte names are never cut mid-character.
		name := item.ProductName
		if runes := []rune(name); len(runes) > 28 {
			name = string(runes[:27]) + "…"
		}
		pdf.CellFormat(col1, 6, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, item.Price.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(col3, 6, fmt.Sprintf("x%d", item.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(col4, 6, item.Total.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(12, pdf.GetY(), pageW-12, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(col1+col2+col3, 5, "Subtotal:", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 5, bill.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(col1+col2+col3, 5, "CGST (9%):", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 5, bill.CGST.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(col1+col2+col3, 5, "SGST (9%):", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 5, bill.SGST.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(col1+col2+col3, 8, "GRAND TOTAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 8, bill.GrandTotal.StringFixed(2), "", 1, "R", false, 0, "")

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 5, "Thank you for your purchase!", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteInvoicePDF renders the invoice and stores it under storagePath
// (created if needed). Returns the absolute path to the written file.
func WriteInvoicePDF(bill *model.Bill, storeName, storagePath string) (string, error) {
	data, err := RenderInvoicePDF(bill, storeName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("invoice_%s.pdf", bill.BillNo))
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
