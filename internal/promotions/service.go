package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/vinavax/vinavax-backend/pkg/db"
	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
)

// Service exposes promotion management, code validation, and usage recording.
type Service interface {
	CreatePromotion(ctx context.Context, input CreatePromotionInput) (*PromotionDTO, error)
	UpdatePromotion(ctx context.Context, id uuid.UUID, input UpdatePromotionInput) (*PromotionDTO, error)
	DeletePromotion(ctx context.Context, id uuid.UUID) error
	GetPromotion(ctx context.Context, id uuid.UUID) (*PromotionDTO, error)
	ListPromotions(ctx context.Context) ([]PromotionDTO, error)
	ValidateCode(ctx context.Context, code string, subtotalVND int64) (*ValidateCodeResult, error)
	RecordUsage(ctx context.Context, input RecordUsageInput) (*UsageDTO, error)
}

// CreatePromotionInput holds the validated payload to create a code.
type CreatePromotionInput struct {
	Code          string
	Name          string
	Description   *string
	DiscountType  string
	DiscountValue int64
	MaxDiscount   *int64
	MinOrderValue *int64
	StartsAt      *time.Time
	EndsAt        *time.Time
	UsageLimit    *int
	IsActive      bool
}

// UpdatePromotionInput holds optional mutation values.
type UpdatePromotionInput struct {
	Name          *string
	Description   *string
	DiscountValue *int64
	MaxDiscount   *int64
	MinOrderValue *int64
	StartsAt      *time.Time
	EndsAt        *time.Time
	UsageLimit    *int
	IsActive      *bool
}

// RecordUsageInput links a redemption to an order.
type RecordUsageInput struct {
	OrderID     uuid.UUID
	Code        string
	DiscountVND int64
}

type promotionRepository interface {
	Create(ctx context.Context, row *models.Promotion) error
	Update(ctx context.Context, row *models.Promotion) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	FindByCode(ctx context.Context, code string) (*models.Promotion, error)
	List(ctx context.Context) ([]models.Promotion, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error)
	InsertUsage(ctx context.Context, row *models.PromotionUsage) error
	FindUsage(ctx context.Context, orderID, promotionID uuid.UUID) (*models.PromotionUsage, error)
}

type service struct {
	repo promotionRepository
	now  func() time.Time
}

// NewService constructs the promotion service.
func NewService(repo promotionRepository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) CreatePromotion(ctx context.Context, input CreatePromotionInput) (*PromotionDTO, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	discountType, err := parseDiscountType(input.DiscountType)
	if err != nil {
		return nil, err
	}
	if err := validateDiscountValues(discountType, input.DiscountValue, input.MaxDiscount, input.MinOrderValue); err != nil {
		return nil, err
	}
	if input.StartsAt != nil && input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ends_at cannot be before starts_at")
	}
	if input.UsageLimit != nil && *input.UsageLimit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage_limit must be positive")
	}

	row := &models.Promotion{
		Code:          code,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		DiscountType:  discountType,
		DiscountValue: input.DiscountValue,
		MaxDiscount:   input.MaxDiscount,
		MinOrderValue: input.MinOrderValue,
		StartsAt:      input.StartsAt,
		EndsAt:        input.EndsAt,
		UsageLimit:    input.UsageLimit,
		IsActive:      input.IsActive,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_promotions_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("promotion code %q already exists", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating promotion")
	}
	return toDTO(row), nil
}

func (s *service) UpdatePromotion(ctx context.Context, id uuid.UUID, input UpdatePromotionInput) (*PromotionDTO, error) {
	row, err := s.loadPromotion(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		row.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		row.Description = input.Description
	}
	if input.DiscountValue != nil {
		row.DiscountValue = *input.DiscountValue
	}
	if input.MaxDiscount != nil {
		row.MaxDiscount = input.MaxDiscount
	}
	if input.MinOrderValue != nil {
		row.MinOrderValue = input.MinOrderValue
	}
	if err := validateDiscountValues(row.DiscountType, row.DiscountValue, row.MaxDiscount, row.MinOrderValue); err != nil {
		return nil, err
	}
	if input.StartsAt != nil {
		row.StartsAt = input.StartsAt
	}
	if input.EndsAt != nil {
		row.EndsAt = input.EndsAt
	}
	if row.StartsAt != nil && row.EndsAt != nil && row.EndsAt.Before(*row.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ends_at cannot be before starts_at")
	}
	if input.UsageLimit != nil {
		if *input.UsageLimit <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage_limit must be positive")
		}
		row.UsageLimit = input.UsageLimit
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating promotion")
	}
	return toDTO(row), nil
}

func (s *service) DeletePromotion(ctx context.Context, id uuid.UUID) error {
	if _, err := s.loadPromotion(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting promotion")
	}
	return nil
}

func (s *service) GetPromotion(ctx context.Context, id uuid.UUID) (*PromotionDTO, error) {
	row, err := s.loadPromotion(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(row), nil
}

func (s *service) ListPromotions(ctx context.Context) ([]PromotionDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing promotions")
	}
	out := make([]PromotionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

// ValidateCode looks up an entered code, checks it is currently redeemable,
// and returns the discount it would yield on the subtotal.
func (s *service) ValidateCode(ctx context.Context, code string, subtotalVND int64) (*ValidateCodeResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if subtotalVND < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal cannot be negative")
	}

	row, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up promotion code")
	}
	if err := s.checkRedeemable(row); err != nil {
		return nil, err
	}

	eval, err := Evaluate(row, subtotalVND)
	if err != nil {
		if errors.Is(err, ErrBelowMinimum) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order subtotal below promotion minimum").
				WithDetails(map[string]any{"minOrderValue": *row.MinOrderValue, "subtotal": subtotalVND})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "evaluating promotion")
	}

	return &ValidateCodeResult{
		Promotion:   *toDTO(row),
		SubtotalVND: subtotalVND,
		DiscountVND: eval.DiscountVND,
		PayableVND:  eval.PayableVND,
	}, nil
}

// RecordUsage writes the redemption row and bumps the usage counter. A
// repeat call for the same order and code returns the existing record.
func (s *service) RecordUsage(ctx context.Context, input RecordUsageInput) (*UsageDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.DiscountVND < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
	}

	promo, err := s.repo.FindByCode(ctx, input.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up promotion code")
	}

	row := &models.PromotionUsage{
		OrderID:     input.OrderID,
		PromotionID: promo.ID,
		Code:        promo.Code,
		DiscountVND: input.DiscountVND,
	}
	if err := s.repo.InsertUsage(ctx, row); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_promotion_usages_order_promotion") {
			existing, findErr := s.repo.FindUsage(ctx, input.OrderID, promo.ID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, findErr, "loading existing usage")
			}
			return usageToDTO(existing), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording promotion usage")
	}

	bumped, err := s.repo.IncrementUsage(ctx, promo.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "incrementing promotion usage")
	}
	if !bumped {
		// Limit was exhausted between validation and redemption. The usage
		// row stays for auditing; the order keeps its discount.
		return usageToDTO(row), nil
	}
	return usageToDTO(row), nil
}

func (s *service) loadPromotion(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading promotion")
	}
	return row, nil
}

func (s *service) checkRedeemable(row *models.Promotion) error {
	if !row.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion code is not active")
	}
	now := s.now()
	if row.StartsAt != nil && now.Before(*row.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion has not started yet")
	}
	if row.EndsAt != nil && now.After(*row.EndsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion has expired")
	}
	if row.UsageLimit != nil && row.UsageCount >= *row.UsageLimit {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion usage limit reached")
	}
	return nil
}

func parseDiscountType(raw string) (enums.DiscountType, error) {
	parsed := enums.DiscountType(strings.ToUpper(strings.TrimSpace(raw)))
	if !parsed.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid discount type %q", raw))
	}
	return parsed, nil
}

func validateDiscountValues(discountType enums.DiscountType, value int64, maxDiscount, minOrderValue *int64) error {
	if value <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_value must be positive")
	}
	if discountType == enums.DiscountTypePercentage && value > 100 {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if maxDiscount != nil && *maxDiscount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "max_discount must be positive")
	}
	if minOrderValue != nil && *minOrderValue <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_order_value must be positive")
	}
	return nil
}
