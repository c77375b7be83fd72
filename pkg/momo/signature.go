package momo

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// signRaw computes the lowercase hex HMAC-SHA256 of the raw signature string.
func signRaw(secretKey, raw string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// createRawSignature builds the raw string for the create-payment request.
// MoMo requires the exact alphabetical field order below.
func createRawSignature(accessKey string, req CreateRequest) string {
	return fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		accessKey,
		req.Amount,
		req.ExtraData,
		req.IPNURL,
		req.OrderID,
		req.OrderInfo,
		req.PartnerCode,
		req.RedirectURL,
		req.RequestID,
		req.RequestType,
	)
}

// returnRawSignature builds the raw string for the redirect/IPN result.
func returnRawSignature(accessKey string, p ReturnParams) string {
	return fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%s",
		accessKey,
		p.Amount,
		p.ExtraData,
		p.Message,
		p.OrderID,
		p.OrderInfo,
		p.OrderType,
		p.PartnerCode,
		p.PayType,
		p.RequestID,
		p.ResponseTime,
		p.ResultCode,
		p.TransID,
	)
}

func signaturesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
