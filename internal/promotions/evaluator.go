package promotion

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
)

// ErrBelowMinimum signals that the subtotal does not meet the promotion's
// minimum order value. The caller must surface it and reset the entered code.
var ErrBelowMinimum = errors.New("subtotal below promotion minimum order value")

// ErrUnknownDiscountType signals a promotion row with an unrecognized type.
var ErrUnknownDiscountType = errors.New("unknown discount type")

// Evaluation is the outcome of applying a promotion to a subtotal.
type Evaluation struct {
	DiscountVND int64
	PayableVND  int64
}

var hundred = decimal.NewFromInt(100)

// Evaluate computes the discount a promotion yields on a subtotal. It is
// pure: same inputs always produce the same outcome.
//
// Percentage discounts are computed in decimal arithmetic and rounded down
// to a whole VND. The discount never exceeds the subtotal, and a configured
// max discount caps percentage discounts.
func Evaluate(promo *models.Promotion, subtotalVND int64) (Evaluation, error) {
	if promo == nil {
		return Evaluation{PayableVND: subtotalVND}, nil
	}
	if subtotalVND < 0 {
		subtotalVND = 0
	}
	if promo.MinOrderValue != nil && subtotalVND < *promo.MinOrderValue {
		return Evaluation{}, ErrBelowMinimum
	}

	var discount int64
	switch promo.DiscountType {
	case enums.DiscountTypePercentage:
		discount = decimal.NewFromInt(subtotalVND).
			Mul(decimal.NewFromInt(promo.DiscountValue)).
			Div(hundred).
			Floor().
			IntPart()
		if promo.MaxDiscount != nil && discount > *promo.MaxDiscount {
			discount = *promo.MaxDiscount
		}
	case enums.DiscountTypeFixedAmount:
		discount = promo.DiscountValue
	default:
		return Evaluation{}, ErrUnknownDiscountType
	}

	if discount < 0 {
		discount = 0
	}
	if discount > subtotalVND {
		discount = subtotalVND
	}

	return Evaluation{
		DiscountVND: discount,
		PayableVND:  subtotalVND - discount,
	}, nil
}
