package vaccine

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
)

// Repository wires vaccine catalog persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, row *models.Vaccine) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Update(ctx context.Context, row *models.Vaccine) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vaccine, error) {
	var row models.Vaccine
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Vaccine, error) {
	var row models.Vaccine
	if err := r.db.WithContext(ctx).First(&row, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListActive returns catalog entries visible to customers.
func (r *Repository) ListActive(ctx context.Context) ([]models.Vaccine, error) {
	var rows []models.Vaccine
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

// ListByIDs loads the given vaccines in one query.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Vaccine, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Vaccine
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

// Deactivate hides a vaccine from the catalog without deleting history.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Vaccine{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}
