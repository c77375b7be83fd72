package location

import (
	"context"

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

func (r *Repository) Create(ctx context.Context, row *models.Location) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Update(ctx context.Context, row *models.Location) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	var row models.Location
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) ListActive(ctx context.Context) ([]models.Location, error) {
	var rows []models.Location
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Location{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}
