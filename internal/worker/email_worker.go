package worker

// email_worker.go
// Processes email jobs from QueueEmail: sends PDF invoices to customer
// email addresses via SMTP.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/7666638403/rajgarande/internal/infra"

	"github.com/rs/zerolog/log"
)

type EmailWorker struct {
	mailer *infra.Mailer
}

func NewEmailWorker(mailer *infra.Mailer) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

// Process sends an email with the PDF invoice as attachment.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email — skipping")
		return nil
	}

	if err := w.mailer.SendInvoice(payload.ToEmail, payload.Subject, payload.Body, payload.PDFPath); err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", payload.ToEmail, err)
	}
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: invoice sent")
	return nil
}
