package worker

// invoice_worker.go
// Processes invoice jobs from QueueInvoice: renders the PDF invoice for a
// finalized bill into PDF_STORAGE_PATH and, when the customer left an email
// address at checkout, chains an email job carrying the attachment path.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/7666638403/rajgarande/internal/infra"
	"github.com/7666638403/rajgarande/internal/repository"

	"github.com/rs/zerolog/log"
)

type InvoiceWorker struct {
	bills       repository.BillRepository
	dispatcher  *Dispatcher
	storeName   string
	storagePath string
}

func NewInvoiceWorker(bills repository.BillRepository, dispatcher *Dispatcher, storeName, storagePath string) *InvoiceWorker {
	return &InvoiceWorker{
		bills:       bills,
		dispatcher:  dispatcher,
		storeName:   storeName,
		storagePath: storagePath,
	}
}

// Process renders the invoice PDF. A non-nil return re-queues the job.
func (w *InvoiceWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload InvoiceJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("invoice_worker: invalid payload")
		return nil // malformed payloads cannot succeed on retry
	}

	bill, err := w.bills.FindByBillNo(ctx, payload.BillNo)
	if err != nil {
		return fmt.Errorf("invoice_worker: bill %s: %w", payload.BillNo, err)
	}

	pdfPath, err := infra.WriteInvoicePDF(bill, w.storeName, w.storagePath)
	if err != nil {
		return fmt.Errorf("invoice_worker: render %s: %w", payload.BillNo, err)
	}
	log.Info().Str("bill_no", bill.BillNo).Str("path", pdfPath).Msg("invoice_worker: PDF written")

	if payload.CustomerEmail != "" {
		emailJob := EmailJobPayload{
			ToEmail: payload.CustomerEmail,
			Subject: fmt.Sprintf("Your invoice %s", bill.BillNo),
			Body:    fmt.Sprintf("Thank you for shopping with us. Your invoice %s is attached.", bill.BillNo),
			PDFPath: pdfPath,
		}
		if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
			return fmt.Errorf("invoice_worker: enqueue email for %s: %w", bill.BillNo, err)
		}
	}
	return nil
}
