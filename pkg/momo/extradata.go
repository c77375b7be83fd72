package momo

import (
	"net/url"
	"strconv"
	"strings"
)

// ExtraData carries the promotion metadata the gateway echoes back on the
// redirect. It travels as a URL-encoded parameter string inside the
// extraData field.
type ExtraData struct {
	PromotionCode     string
	DiscountAmountVND int64
}

// IsZero reports whether no promotion metadata is present.
func (e ExtraData) IsZero() bool {
	return e.PromotionCode == "" && e.DiscountAmountVND == 0
}

// Encode renders the metadata as a URL-encoded parameter string. An empty
// ExtraData encodes to the empty string.
func (e ExtraData) Encode() string {
	if e.IsZero() {
		return ""
	}
	values := url.Values{}
	values.Set("promotionCode", e.PromotionCode)
	values.Set("discountAmount", strconv.FormatInt(e.DiscountAmountVND, 10))
	return values.Encode()
}

// DecodeExtraData parses the URL-encoded extraData string. An empty or
// malformed string yields a zero ExtraData rather than an error so a
// missing gateway echo never blocks reconciliation.
func DecodeExtraData(raw string) ExtraData {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ExtraData{}
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ExtraData{}
	}
	out := ExtraData{PromotionCode: values.Get("promotionCode")}
	if amount, err := strconv.ParseInt(values.Get("discountAmount"), 10, 64); err == nil && amount > 0 {
		out.DiscountAmountVND = amount
	}
	return out
}
