package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/7666638403/rajgarande/internal/dto"
	"github.com/7666638403/rajgarande/internal/model"
	"github.com/7666638403/rajgarande/internal/repository"
	"github.com/7666638403/rajgarande/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// gstRate is one half of the GST split: CGST and SGST are each 9% of the
// subtotal, applied independently.
var gstRate = decimal.RequireFromString("0.09")

// billNoAttempts bounds the uniqueness retry loop for generated bill numbers.
const billNoAttempts = 5

var (
	ErrBillNotFound    = errors.New("bill not found")
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyCart       = errors.New("cart has no purchasable lines")
)

type BillingService interface {
	CreateBill(ctx context.Context, req dto.CreateBillRequest) (*dto.BillResponse, error)
	GetBill(ctx context.Context, billNo string) (*dto.BillResponse, error)
	CancelBill(ctx context.Context, billNo string) error
	ListBills(ctx context.Context, filter dto.BillFilter) (*dto.BillListResponse, error)
}

type billingService struct {
	bills      repository.BillRepository
	products   repository.ProductRepository
	dispatcher *worker.Dispatcher
}

func NewBillingService(
	bills repository.BillRepository,
	products repository.ProductRepository,
	dispatcher *worker.Dispatcher,
) BillingService {
	return &billingService{bills: bills, products: products, dispatcher: dispatcher}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── CreateBill ────────────────────────────────────────────────────────────────
// Checkout flow:
//   1. Resolve cart lines against the catalog, dropping quantity ≤ 0 lines
//   2. Compute subtotal, CGST (9%), SGST (9%), grand total in fixed-point
//   3. Generate a unique BILL-<6 hex> number (collision retry)
//   4. BEGIN TX: insert bill + items, decrement stock per line
//   5. COMMIT
//   6. (async) dispatch invoice job — PDF render, optional email

func (s *billingService) CreateBill(ctx context.Context, req dto.CreateBillRequest) (*dto.BillResponse, error) {
	type resolvedLine struct {
		productID uuid.UUID
		name      string
		price     decimal.Decimal
		quantity  int
		total     decimal.Decimal
	}

	var resolved []resolvedLine
	subtotal := decimal.Zero

	for _, line := range req.Items {
		if line.Quantity <= 0 {
			continue // blank quantity on the register form — not purchased
		}
		pid, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("invalid product_id %q: %w", line.ProductID, err)
		}
		p, err := s.products.FindByID(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
		}
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		resolved = append(resolved, resolvedLine{
			productID: p.ID,
			name:      p.Name,
			price:     p.Price,
			quantity:  line.Quantity,
			total:     lineTotal,
		})
	}

	if len(resolved) == 0 {
		return nil, ErrEmptyCart
	}

	cgst := subtotal.Mul(gstRate)
	sgst := subtotal.Mul(gstRate)
	grandTotal := subtotal.Add(cgst).Add(sgst)

	billNo, err := s.generateBillNo(ctx)
	if err != nil {
		return nil, err
	}

	bill := model.Bill{
		BillNo:       billNo,
		CustomerName: req.Customer,
		Mobile:       req.Mobile,
		Subtotal:     subtotal,
		CGST:         cgst,
		SGST:         sgst,
		GrandTotal:   grandTotal,
	}
	for _, r := range resolved {
		pid := r.productID
		bill.Items = append(bill.Items, model.BillItem{
			ProductID:   &pid,
			ProductName: r.name,
			Price:       r.price,
			Quantity:    r.quantity,
			Total:       r.total,
		})
	}

	txErr := runTx(ctx, s.bills.DB(), func(tx *gorm.DB) error {
		if err := s.bills.Create(ctx, tx, &bill); err != nil {
			return err
		}
		// Relative updates inside the same tx — concurrent checkouts cannot
		// lose decrements. Stock is allowed to go negative on oversell.
		for _, r := range resolved {
			if err := s.products.UpdateStockTx(tx, r.productID, -r.quantity); err != nil {
				return fmt.Errorf("decrement stock for %s: %w", r.name, err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// Async invoice job — best effort, never fails the checkout
	if s.dispatcher != nil {
		payload := worker.InvoiceJobPayload{BillNo: bill.BillNo}
		if req.CustomerEmail != nil && *req.CustomerEmail != "" {
			payload.CustomerEmail = *req.CustomerEmail
		}
		if err := s.dispatcher.EnqueueInvoice(ctx, payload); err != nil {
			log.Warn().Err(err).Str("bill_no", bill.BillNo).Msg("failed to enqueue invoice job")
		}
	}

	return billToResponse(&bill), nil
}

// generateBillNo produces BILL-<6 hex chars> and retries on collision.
// Six hex characters keep the number short enough to read over the counter;
// the existence check closes the collision window the random draw leaves open.
func (s *billingService) generateBillNo(ctx context.Context) (string, error) {
	for i := 0; i < billNoAttempts; i++ {
		hex := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
		billNo := "BILL-" + hex
		exists, err := s.bills.ExistsBillNo(ctx, billNo)
		if err != nil {
			return "", err
		}
		if !exists {
			return billNo, nil
		}
	}
	return "", errors.New("could not generate a unique bill number")
}

// ── CancelBill ────────────────────────────────────────────────────────────────

// CancelBill restores stock for every line of the bill and flips is_cancelled.
// Cancelling an already-cancelled bill is a no-op, so repeated calls leave
// stock unchanged. Lines whose product no longer resolves (deleted since the
// sale) are logged and skipped rather than aborting the whole restore.
func (s *billingService) CancelBill(ctx context.Context, billNo string) error {
	bill, err := s.bills.FindByBillNo(ctx, billNo)
	if err != nil {
		return ErrBillNotFound
	}
	if bill.IsCancelled {
		return nil
	}

	// The guarded mark goes first: it takes the row lock and fails for
	// whichever of two racing cancels arrives second, so stock is restored
	// exactly once.
	err = runTx(ctx, s.bills.DB(), func(tx *gorm.DB) error {
		if err := s.bills.MarkCancelledTx(tx, bill.ID); err != nil {
			return err
		}
		for _, item := range bill.Items {
			pid, ok := s.resolveProductID(ctx, item)
			if !ok {
				log.Warn().
					Str("bill_no", bill.BillNo).
					Str("product_name", item.ProductName).
					Msg("cancel: product no longer resolvable, stock not restored for line")
				continue
			}
			if err := s.products.UpdateStockTx(tx, pid, item.Quantity); err != nil {
				return fmt.Errorf("restore stock for %s: %w", item.ProductName, err)
			}
		}
		return nil
	})
	if errors.Is(err, repository.ErrAlreadyCancelled) {
		return nil
	}
	return err
}

// resolveProductID prefers the stable product reference captured at sale time
// and falls back to a name lookup for rows created before the reference
// existed. Name matches are ambiguous when names are not unique, which is why
// the ID is the primary path.
func (s *billingService) resolveProductID(ctx context.Context, item model.BillItem) (uuid.UUID, bool) {
	if item.ProductID != nil {
		if _, err := s.products.FindByID(ctx, *item.ProductID); err == nil {
			return *item.ProductID, true
		}
		return uuid.Nil, false
	}
	p, err := s.products.FindByName(ctx, item.ProductName)
	if err != nil {
		return uuid.Nil, false
	}
	return p.ID, true
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *billingService) GetBill(ctx context.Context, billNo string) (*dto.BillResponse, error) {
	bill, err := s.bills.FindByBillNo(ctx, billNo)
	if err != nil {
		return nil, ErrBillNotFound
	}
	return billToResponse(bill), nil
}

// ListBills returns a paginated bill history, newest first, optionally
// filtered by a free-text term against bill_no / customer_name / mobile.
func (s *billingService) ListBills(ctx context.Context, filter dto.BillFilter) (*dto.BillListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	bills, total, err := s.bills.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.BillResponse, 0, len(bills))
	for i := range bills {
		items = append(items, *billToResponse(&bills[i]))
	}
	return &dto.BillListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func billToResponse(b *model.Bill) *dto.BillResponse {
	items := make([]dto.BillItemResponse, 0, len(b.Items))
	for _, item := range b.Items {
		items = append(items, dto.BillItemResponse{
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Total:       item.Total,
		})
	}
	return &dto.BillResponse{
		ID:           b.ID.String(),
		BillNo:       b.BillNo,
		CustomerName: b.CustomerName,
		Mobile:       b.Mobile,
		Items:        items,
		Subtotal:     b.Subtotal,
		CGST:         b.CGST,
		SGST:         b.SGST,
		GrandTotal:   b.GrandTotal,
		IsCancelled:  b.IsCancelled,
		CreatedAt:    b.CreatedAt.UTC().Format(time.RFC3339),
	}
}
