package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/7666638403/rajgarande/internal/dto"
	"github.com/7666638403/rajgarande/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAlreadyCancelled is returned by MarkCancelledTx when another request
// cancelled the bill first.
var ErrAlreadyCancelled = errors.New("bill already cancelled")

// escapeLike escapes LIKE/ILIKE metacharacters so user-supplied search terms
// match literally. `98%` searches for the two digits followed by a percent
// sign, not a prefix pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

type BillRepository interface {
	Create(ctx context.Context, tx *gorm.DB, b *model.Bill) error
	FindByBillNo(ctx context.Context, billNo string) (*model.Bill, error)
	ExistsBillNo(ctx context.Context, billNo string) (bool, error)
	MarkCancelledTx(tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, filter dto.BillFilter) ([]model.Bill, int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type billRepo struct{ db *gorm.DB }

func NewBillRepository(db *gorm.DB) BillRepository { return &billRepo{db: db} }

func (r *billRepo) DB() *gorm.DB { return r.db }

func (r *billRepo) Create(ctx context.Context, tx *gorm.DB, b *model.Bill) error {
	return tx.WithContext(ctx).Create(b).Error
}

func (r *billRepo) FindByBillNo(ctx context.Context, billNo string) (*model.Bill, error) {
	var b model.Bill
	err := r.db.WithContext(ctx).Preload("Items").Where("bill_no = ?", billNo).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *billRepo) ExistsBillNo(ctx context.Context, billNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Bill{}).Where("bill_no = ?", billNo).Count(&count).Error
	return count > 0, err
}

// MarkCancelledTx flips is_cancelled with a guard so that two racing cancels
// cannot both succeed: the second update matches zero rows and reports
// ErrAlreadyCancelled, rolling its transaction back.
func (r *billRepo) MarkCancelledTx(tx *gorm.DB, id uuid.UUID) error {
	res := tx.Model(&model.Bill{}).
		Where("id = ? AND is_cancelled = false", id).
		Update("is_cancelled", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyCancelled
	}
	return nil
}

func (r *billRepo) List(ctx context.Context, filter dto.BillFilter) ([]model.Bill, int64, error) {
	var bills []model.Bill
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Bill{})
	if filter.Q != "" {
		term := "%" + escapeLike(filter.Q) + "%"
		q = q.Where("bill_no ILIKE ? OR customer_name ILIKE ? OR mobile ILIKE ?", term, term, term)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&bills).Error

	return bills, total, err
}
