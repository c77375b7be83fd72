package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Vaccine represents a purchasable vaccination service in the catalog.
type Vaccine struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string         `gorm:"column:code;not null;uniqueIndex"`
	Name          string         `gorm:"column:name;not null"`
	Description   *string        `gorm:"column:description"`
	Manufacturer  *string        `gorm:"column:manufacturer"`
	PriceVND      int64          `gorm:"column:price_vnd;not null"`
	DosesRequired int            `gorm:"column:doses_required;not null;default:1"`
	MinAgeMonths  *int           `gorm:"column:min_age_months"`
	MaxAgeMonths  *int           `gorm:"column:max_age_months"`
	Diseases      pq.StringArray `gorm:"column:diseases;type:text[];not null;default:ARRAY[]::text[]"`
	ImageURL      *string        `gorm:"column:image_url"`
	IsActive      bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
