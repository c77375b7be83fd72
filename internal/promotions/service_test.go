package promotion

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
)

type stubPromoRepo struct {
	byCode       map[string]*models.Promotion
	usages       []*models.PromotionUsage
	insertErr    error
	incrementOK  bool
	incrementErr error
}

func (s *stubPromoRepo) Create(_ context.Context, row *models.Promotion) error {
	row.ID = uuid.New()
	s.byCode[row.Code] = row
	return nil
}

func (s *stubPromoRepo) Update(_ context.Context, _ *models.Promotion) error { return nil }
func (s *stubPromoRepo) Delete(_ context.Context, _ uuid.UUID) error         { return nil }

func (s *stubPromoRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Promotion, error) {
	for _, row := range s.byCode {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPromoRepo) FindByCode(_ context.Context, code string) (*models.Promotion, error) {
	if row, ok := s.byCode[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPromoRepo) List(_ context.Context) ([]models.Promotion, error) { return nil, nil }

func (s *stubPromoRepo) IncrementUsage(_ context.Context, _ uuid.UUID) (bool, error) {
	return s.incrementOK, s.incrementErr
}

func (s *stubPromoRepo) InsertUsage(_ context.Context, row *models.PromotionUsage) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	row.ID = uuid.New()
	s.usages = append(s.usages, row)
	return nil
}

func (s *stubPromoRepo) FindUsage(_ context.Context, orderID, promotionID uuid.UUID) (*models.PromotionUsage, error) {
	for _, row := range s.usages {
		if row.OrderID == orderID && row.PromotionID == promotionID {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, repo *stubPromoRepo) Service {
	t.Helper()
	svc, err := NewService(repo, fixedNow)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func timePtr(v time.Time) *time.Time { return &v }
func intPtr(v int) *int              { return &v }

func salePromo() *models.Promotion {
	return &models.Promotion{
		ID:            uuid.New(),
		Code:          "SALE10",
		Name:          "Giam 10%",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: 10,
		IsActive:      true,
	}
}

func TestValidateCodeSuccess(t *testing.T) {
	repo := &stubPromoRepo{byCode: map[string]*models.Promotion{"SALE10": salePromo()}}
	svc := newTestService(t, repo)

	result, err := svc.ValidateCode(context.Background(), " sale10 ", 500000)
	if err != nil {
		t.Fatalf("validate code: %v", err)
	}
	if result.DiscountVND != 50000 || result.PayableVND != 450000 {
		t.Fatalf("unexpected evaluation: %+v", result)
	}
	if result.Promotion.Code != "SALE10" {
		t.Fatalf("unexpected promotion in result: %+v", result.Promotion)
	}
}

func TestValidateCodeRejections(t *testing.T) {
	inactive := salePromo()
	inactive.Code = "OFF"
	inactive.IsActive = false

	expired := salePromo()
	expired.Code = "OLD"
	expired.EndsAt = timePtr(fixedNow().Add(-time.Hour))

	future := salePromo()
	future.Code = "SOON"
	future.StartsAt = timePtr(fixedNow().Add(time.Hour))

	exhausted := salePromo()
	exhausted.Code = "FULL"
	exhausted.UsageLimit = intPtr(5)
	exhausted.UsageCount = 5

	gated := salePromo()
	gated.Code = "BIG"
	gated.MinOrderValue = int64Ptr(200000)

	repo := &stubPromoRepo{byCode: map[string]*models.Promotion{}}
	for _, p := range []*models.Promotion{inactive, expired, future, exhausted, gated} {
		repo.byCode[p.Code] = p
	}
	svc := newTestService(t, repo)

	cases := []struct {
		code     string
		expected pkgerrors.Code
	}{
		{"MISSING", pkgerrors.CodeNotFound},
		{"OFF", pkgerrors.CodeValidation},
		{"OLD", pkgerrors.CodeValidation},
		{"SOON", pkgerrors.CodeValidation},
		{"FULL", pkgerrors.CodeValidation},
		{"BIG", pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			_, err := svc.ValidateCode(context.Background(), tc.code, 100000)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != tc.expected {
				t.Fatalf("expected %s, got %v", tc.expected, err)
			}
		})
	}
}

func TestCreatePromotionValidation(t *testing.T) {
	repo := &stubPromoRepo{byCode: map[string]*models.Promotion{}}
	svc := newTestService(t, repo)

	valid := CreatePromotionInput{
		Code:          "tet2026",
		Name:          "Tet 2026",
		DiscountType:  "percentage",
		DiscountValue: 15,
		IsActive:      true,
	}
	dto, err := svc.CreatePromotion(context.Background(), valid)
	if err != nil {
		t.Fatalf("create promotion: %v", err)
	}
	if dto.Code != "TET2026" {
		t.Fatalf("expected normalized code, got %q", dto.Code)
	}

	bad := []CreatePromotionInput{
		{Name: "x", DiscountType: "PERCENTAGE", DiscountValue: 10},
		{Code: "X", DiscountType: "PERCENTAGE", DiscountValue: 10},
		{Code: "X", Name: "x", DiscountType: "BOGO", DiscountValue: 10},
		{Code: "X", Name: "x", DiscountType: "PERCENTAGE", DiscountValue: 0},
		{Code: "X", Name: "x", DiscountType: "PERCENTAGE", DiscountValue: 101},
	}
	for i, input := range bad {
		if _, err := svc.CreatePromotion(context.Background(), input); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestRecordUsageIdempotent(t *testing.T) {
	promo := salePromo()
	repo := &stubPromoRepo{byCode: map[string]*models.Promotion{"SALE10": promo}, incrementOK: true}
	svc := newTestService(t, repo)

	orderID := uuid.New()
	first, err := svc.RecordUsage(context.Background(), RecordUsageInput{OrderID: orderID, Code: "SALE10", DiscountVND: 50000})
	if err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if len(repo.usages) != 1 {
		t.Fatalf("expected one usage row, got %d", len(repo.usages))
	}

	// Replay hits the unique index; the existing row is returned.
	repo.insertErr = fmt.Errorf(`duplicate key value violates unique constraint "ux_promotion_usages_order_promotion"`)
	second, err := svc.RecordUsage(context.Background(), RecordUsageInput{OrderID: orderID, Code: "SALE10", DiscountVND: 50000})
	if err != nil {
		t.Fatalf("record usage replay: %v", err)
	}
	if len(repo.usages) != 1 {
		t.Fatalf("replay created a second usage row")
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same usage row, got %s and %s", first.ID, second.ID)
	}
}
