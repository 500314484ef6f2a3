package service_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/7666638403/rajgarande/internal/dto"
	"github.com/7666638403/rajgarande/internal/model"
	"github.com/7666638403/rajgarande/internal/repository"
	"github.com/7666638403/rajgarande/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubProductRepo is an in-memory ProductRepository for testing.
type stubProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (r *stubProductRepo) FindByName(_ context.Context, name string) (*model.Product, error) {
	for _, p := range r.products {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *stubProductRepo) List(_ context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.products {
		if filter.Name == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Name)) {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return errors.New("not found")
	}
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) UpdateStockTx(_ *gorm.DB, id uuid.UUID, delta int) error {
	p, ok := r.products[id]
	if !ok {
		return errors.New("not found")
	}
	p.Stock += delta
	return nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// stubBillRepo is an in-memory BillRepository for testing.
type stubBillRepo struct {
	bills map[uuid.UUID]*model.Bill
	byNo  map[string]*model.Bill
	// collideFirst makes ExistsBillNo report a collision for the first N
	// generated numbers, exercising the uniqueness retry loop.
	collideFirst int
	// staleReads makes FindByBillNo return a copy that still looks
	// un-cancelled, simulating a second cancel racing past the service's
	// pre-check before the guarded update runs.
	staleReads bool
}

func newStubBillRepo() *stubBillRepo {
	return &stubBillRepo{
		bills: make(map[uuid.UUID]*model.Bill),
		byNo:  make(map[string]*model.Bill),
	}
}

func (r *stubBillRepo) Create(_ context.Context, _ *gorm.DB, b *model.Bill) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	for i := range b.Items {
		if b.Items[i].ID == uuid.Nil {
			b.Items[i].ID = uuid.New()
		}
		b.Items[i].BillID = b.ID
	}
	r.bills[b.ID] = b
	r.byNo[b.BillNo] = b
	return nil
}

func (r *stubBillRepo) FindByBillNo(_ context.Context, billNo string) (*model.Bill, error) {
	b, ok := r.byNo[billNo]
	if !ok {
		return nil, errors.New("not found")
	}
	if r.staleReads {
		stale := *b
		stale.IsCancelled = false
		return &stale, nil
	}
	return b, nil
}

func (r *stubBillRepo) ExistsBillNo(_ context.Context, billNo string) (bool, error) {
	if r.collideFirst > 0 {
		r.collideFirst--
		return true, nil
	}
	_, ok := r.byNo[billNo]
	return ok, nil
}

func (r *stubBillRepo) MarkCancelledTx(_ *gorm.DB, id uuid.UUID) error {
	b, ok := r.bills[id]
	if !ok {
		return errors.New("not found")
	}
	if b.IsCancelled {
		return repository.ErrAlreadyCancelled
	}
	b.IsCancelled = true
	return nil
}

func (r *stubBillRepo) List(_ context.Context, filter dto.BillFilter) ([]model.Bill, int64, error) {
	q := strings.ToLower(filter.Q)
	var out []model.Bill
	for _, b := range r.bills {
		if q == "" ||
			strings.Contains(strings.ToLower(b.BillNo), q) ||
			strings.Contains(strings.ToLower(b.CustomerName), q) ||
			strings.Contains(strings.ToLower(b.Mobile), q) {
			out = append(out, *b)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubBillRepo) DB() *gorm.DB { return nil }

var _ repository.BillRepository = (*stubBillRepo)(nil)

// ── Helpers ───────────────────────────────────────────────────────────────────

func seedProduct(repo *stubProductRepo, name, price string, stock int) *model.Product {
	p := &model.Product{
		ID:    uuid.New(),
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	repo.products[p.ID] = p
	return p
}

func buildBillingSvc() (service.BillingService, *stubBillRepo, *stubProductRepo) {
	billRepo := newStubBillRepo()
	productRepo := newStubProductRepo()
	svc := service.NewBillingService(billRepo, productRepo, nil)
	return svc, billRepo, productRepo
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)),
		"expected %s, got %s", want, got.String())
}

// ── CreateBill ────────────────────────────────────────────────────────────────

func TestCreateBill_Totals(t *testing.T) {
	svc, _, productRepo := buildBillingSvc()
	p1 := seedProduct(productRepo, "Basmati Rice 1kg", "10.00", 50)
	p2 := seedProduct(productRepo, "Toor Dal 500g", "5.00", 50)

	resp, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Asha",
		Mobile:   "9876543210",
		Items: []dto.CartLineRequest{
			{ProductID: p1.ID.String(), Quantity: 2},
			{ProductID: p2.ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)

	assertDecimal(t, "35.00", resp.Subtotal)
	assertDecimal(t, "3.15", resp.CGST)
	assertDecimal(t, "3.15", resp.SGST)
	assertDecimal(t, "41.30", resp.GrandTotal)
	assert.Len(t, resp.Items, 2)
	assert.False(t, resp.IsCancelled)
}

func TestCreateBill_BillNoFormat(t *testing.T) {
	svc, _, productRepo := buildBillingSvc()
	p := seedProduct(productRepo, "Sugar 1kg", "42.00", 10)

	resp, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Ravi",
		Mobile:   "9000000001",
		Items:    []dto.CartLineRequest{{ProductID: p.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^BILL-[0-9a-f]{6}$`), resp.BillNo)
}

func TestCreateBill_BillNoCollisionRetries(t *testing.T) {
	svc, billRepo, productRepo := buildBillingSvc()
	billRepo.collideFirst = 3 // first three draws "exist"
	p := seedProduct(productRepo, "Tea 250g", "120.00", 10)

	resp, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Meena",
		Mobile:   "9000000002",
		Items:    []dto.CartLineRequest{{ProductID: p.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.BillNo)
}

func TestCreateBill_DecrementsStock(t *testing.T) {
	svc, _, productRepo := buildBillingSvc()
	p := seedProduct(productRepo, "Atta 5kg", "250.00", 10)

	_, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Kiran",
		Mobile:   "9000000003",
		Items:    []dto.CartLineRequest{{ProductID: p.ID.String(), Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, productRepo.products[p.ID].Stock)
}

func TestCreateBill_OversellGoesNegative(t *testing.T) {
	svc, _, productRepo := buildBillingSvc()
	p := seedProduct(productRepo, "Ghee 1l", "600.00", 1)

	_, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Sunil",
		Mobile:   "9000000004",
		Items:    []dto.CartLineRequest{{ProductID: p.ID.String(), Quantity: 3}},
	})
	require.NoError(t, err)
	// Oversell is accepted; stock goes negative rather than blocking the sale.
	assert.Equal(t, -2, productRepo.products[p.ID].Stock)
}

func TestCreateBill_SkipsZeroQuantityLines(t *testing.T) {
	svc, _, productRepo := buildBillingSvc()
	p1 := seedProduct(productRepo, "Salt 1kg", "20.00", 10)
	p2 := seedProduct(productRepo, "Oil 1l", "180.00", 10)

	resp, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Devi",
		Mobile:   "9000000005",
		Items: []dto.CartLineRequest{
			{ProductID: p1.ID.String(), Quantity: 0},
			{ProductID: p2.ID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, "Oil 1l", resp.Items[0].ProductName)
	assert.Equal(t, 10, productRepo.products[p1.ID].Stock, "zero-quantity line must not touch stock")
}

func TestCreateBill_AllZeroQuantitiesRejected(t *testing.T) {
	svc, _, productRepo := buildBillingSvc()
	p := seedProduct(productRepo, "Jaggery 500g", "60.00", 10)

	_, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Anil",
		Mobile:   "9000000006",
		Items:    []dto.CartLineRequest{{ProductID: p.ID.String(), Quantity: 0}},
	})
	assert.ErrorIs(t, err, service.ErrEmptyCart)
}

func TestCreateBill_UnknownProduct(t *testing.T) {
	svc, _, _ := buildBillingSvc()

	_, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Nita",
		Mobile:   "9000000007",
		Items:    []dto.CartLineRequest{{ProductID: uuid.NewString(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, service.ErrProductNotFound)
}

func TestBillSnapshotSurvivesProductEdit(t *testing.T) {
	svc, _, productRepo := buildBillingSvc()
	p := seedProduct(productRepo, "Milk 1l", "30.00", 10)

	resp, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Pooja",
		Mobile:   "9000000008",
		Items:    []dto.CartLineRequest{{ProductID: p.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	// Later catalog edit — name and price both change
	p.Name = "Milk 1l (new pack)"
	p.Price = decimal.RequireFromString("45.00")

	fetched, err := svc.GetBill(context.Background(), resp.BillNo)
	require.NoError(t, err)
	assert.Equal(t, "Milk 1l", fetched.Items[0].ProductName)
	assertDecimal(t, "30.00", fetched.Items[0].Price)
}

// ── CancelBill ────────────────────────────────────────────────────────────────

func TestCancelBill_RestoresStock(t *testing.T) {
	svc, _, productRepo := buildBillingSvc()
	p := seedProduct(productRepo, "Biscuits", "25.00", 10)

	resp, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Raju",
		Mobile:   "9000000009",
		Items:    []dto.CartLineRequest{{ProductID: p.ID.String(), Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, 6, productRepo.products[p.ID].Stock)

	require.NoError(t, svc.CancelBill(context.Background(), resp.BillNo))
	assert.Equal(t, 10, productRepo.products[p.ID].Stock)

	fetched, err := svc.GetBill(context.Background(), resp.BillNo)
	require.NoError(t, err)
	assert.True(t, fetched.IsCancelled)
}

func TestCancelBill_TwiceIsNoOp(t *testing.T) {
	svc, _, productRepo := buildBillingSvc()
	p := seedProduct(productRepo, "Soap", "40.00", 10)

	resp, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Lata",
		Mobile:   "9000000010",
		Items:    []dto.CartLineRequest{{ProductID: p.ID.String(), Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.CancelBill(context.Background(), resp.BillNo))
	stockAfterFirst := productRepo.products[p.ID].Stock

	require.NoError(t, svc.CancelBill(context.Background(), resp.BillNo))
	assert.Equal(t, stockAfterFirst, productRepo.products[p.ID].Stock,
		"second cancel must not restore stock again")
}

func TestCancelBill_RacingCancelRestoresOnce(t *testing.T) {
	svc, billRepo, productRepo := buildBillingSvc()
	p := seedProduct(productRepo, "Ghee 500ml", "120.00", 10)

	resp, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Kiran",
		Mobile:   "9000000011",
		Items:    []dto.CartLineRequest{{ProductID: p.ID.String(), Quantity: 4}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.CancelBill(context.Background(), resp.BillNo))
	require.Equal(t, 10, productRepo.products[p.ID].Stock)

	// Second cancel reads a stale, still-active bill. The guarded cancelled
	// flag update catches it, so the restore must not run again.
	billRepo.staleReads = true
	require.NoError(t, svc.CancelBill(context.Background(), resp.BillNo))
	assert.Equal(t, 10, productRepo.products[p.ID].Stock,
		"racing cancel must not restore stock a second time")
}

func TestCancelBill_NotFound(t *testing.T) {
	svc, _, _ := buildBillingSvc()
	err := svc.CancelBill(context.Background(), "BILL-ffffff")
	assert.ErrorIs(t, err, service.ErrBillNotFound)
}

func TestCancelBill_DeletedProductSkipsLine(t *testing.T) {
	svc, _, productRepo := buildBillingSvc()
	p1 := seedProduct(productRepo, "Pickle 200g", "90.00", 5)
	p2 := seedProduct(productRepo, "Papad", "35.00", 5)

	resp, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Vijay",
		Mobile:   "9000000011",
		Items: []dto.CartLineRequest{
			{ProductID: p1.ID.String(), Quantity: 1},
			{ProductID: p2.ID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)

	// Product removed from the catalog after the sale
	delete(productRepo.products, p1.ID)

	require.NoError(t, svc.CancelBill(context.Background(), resp.BillNo))
	// The surviving line is restored; the missing one is skipped, not fatal.
	assert.Equal(t, 5, productRepo.products[p2.ID].Stock)
}

// ── ListBills ─────────────────────────────────────────────────────────────────

func TestGetBill_TimestampNormalizedToUTC(t *testing.T) {
	svc, billRepo, _ := buildBillingSvc()

	ist := time.FixedZone("IST", 5*3600+1800)
	bill := &model.Bill{
		ID:        uuid.New(),
		BillNo:    "BILL-0a1b2c",
		CreatedAt: time.Date(2026, 3, 14, 10, 30, 0, 0, ist),
	}
	billRepo.bills[bill.ID] = bill
	billRepo.byNo[bill.BillNo] = bill

	resp, err := svc.GetBill(context.Background(), bill.BillNo)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14T05:00:00Z", resp.CreatedAt,
		"response timestamps are reported in UTC")
}

func TestListBills_FilterByMobileSubstring(t *testing.T) {
	svc, _, productRepo := buildBillingSvc()
	p := seedProduct(productRepo, "Bread", "35.00", 50)

	_, err := svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Asha",
		Mobile:   "9876543210",
		Items:    []dto.CartLineRequest{{ProductID: p.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = svc.CreateBill(context.Background(), dto.CreateBillRequest{
		Customer: "Ravi",
		Mobile:   "8123456789",
		Items:    []dto.CartLineRequest{{ProductID: p.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	resp, err := svc.ListBills(context.Background(), dto.BillFilter{Q: "98765"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "9876543210", resp.Data[0].Mobile)
}
