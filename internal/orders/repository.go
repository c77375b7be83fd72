package order

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
)

// Repository defines persistence operations for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByOrderCode(ctx context.Context, code string) (*models.Order, error)
	List(ctx context.Context, status *enums.OrderStatus, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	UpdateDiscount(ctx context.Context, id uuid.UUID, promotionCode string, discountVND int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.Order) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var row models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByOrderCode(ctx context.Context, code string) (*models.Order, error) {
	var row models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&row, "order_code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) List(ctx context.Context, status *enums.OrderStatus, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Preload("Items").Order("created_at DESC").Limit(limit)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var rows []models.Order
	err := q.Find(&rows).Error
	return rows, err
}

// UpdateStatus transitions the order only when it is still in the expected
// state, so concurrent finalizations cannot double-apply.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateDiscount persists the discount and recomputed total on the order.
func (r *repository) UpdateDiscount(ctx context.Context, id uuid.UUID, promotionCode string, discountVND int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"promotion_code": promotionCode,
			"discount_vnd":   discountVND,
			"total_vnd":      gorm.Expr("subtotal_vnd - ?", discountVND),
		}).Error
}
