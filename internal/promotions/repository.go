package promotion

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, row *models.Promotion) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Update(ctx context.Context, row *models.Promotion) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Promotion{}, "id = ?", id).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var row models.Promotion
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Promotion, error) {
	var row models.Promotion
	err := r.db.WithContext(ctx).
		First(&row, "upper(code) = ?", strings.ToUpper(strings.TrimSpace(code))).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Promotion, error) {
	var rows []models.Promotion
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// IncrementUsage bumps the usage counter; the guard keeps the count from
// passing the configured limit under concurrent redemptions.
func (r *Repository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", id).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// InsertUsage records a redeemed promotion against an order. The unique
// index on (order_id, promotion_id) makes replays a no-op for the caller to
// detect via IsUniqueViolation.
func (r *Repository) InsertUsage(ctx context.Context, row *models.PromotionUsage) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) FindUsage(ctx context.Context, orderID, promotionID uuid.UUID) (*models.PromotionUsage, error) {
	var row models.PromotionUsage
	err := r.db.WithContext(ctx).
		First(&row, "order_id = ? AND promotion_id = ?", orderID, promotionID).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
