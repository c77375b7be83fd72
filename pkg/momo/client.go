package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vinavax/vinavax-backend/pkg/config"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
	"github.com/vinavax/vinavax-backend/pkg/logger"
)

// ResultCodeSuccess is the gateway result code for a settled payment.
const ResultCodeSuccess = 0

var (
	errPartnerCodeRequired = errors.New("momo partner code is required")
	errAccessKeyRequired   = errors.New("momo access key is required")
	errSecretKeyRequired   = errors.New("momo secret key is required")
	errEndpointRequired    = errors.New("momo endpoint is required")
	errLoggerRequired      = errors.New("momo logger is required")

	// ErrInvalidSignature signals a redirect whose signature does not match.
	ErrInvalidSignature = errors.New("momo signature mismatch")
)

// CreateRequest is the payload signed and posted to the create-payment API.
type CreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

// CreateResponse is the gateway's answer to a create-payment request.
type CreateResponse struct {
	PartnerCode  string `json:"partnerCode"`
	RequestID    string `json:"requestId"`
	OrderID      string `json:"orderId"`
	Amount       int64  `json:"amount"`
	ResponseTime int64  `json:"responseTime"`
	Message      string `json:"message"`
	ResultCode   int    `json:"resultCode"`
	PayURL       string `json:"payUrl"`
	Deeplink     string `json:"deeplink"`
	QRCodeURL    string `json:"qrCodeUrl"`
}

// ReturnParams are the query parameters the gateway appends to the redirect
// back into the application, plus the same fields delivered on the IPN.
type ReturnParams struct {
	PartnerCode  string
	OrderID      string
	RequestID    string
	Amount       int64
	OrderInfo    string
	OrderType    string
	TransID      string
	ResultCode   int
	Message      string
	PayType      string
	ResponseTime int64
	ExtraData    string
	Signature    string
}

// Succeeded reports whether the gateway settled the payment.
func (p ReturnParams) Succeeded() bool {
	return p.ResultCode == ResultCodeSuccess
}

// CreateParams carries the caller-facing inputs for a payment URL request.
type CreateParams struct {
	OrderID   string
	RequestID string
	AmountVND int64
	OrderInfo string
	ExtraData ExtraData
}

// Client wraps the MoMo v2 gateway API with signing, logging, and error
// mapping.
type Client struct {
	cfg        config.MoMoConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient validates the gateway credentials and returns a ready client.
func NewClient(cfg config.MoMoConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.PartnerCode) == "" {
		return nil, errPartnerCodeRequired
	}
	if strings.TrimSpace(cfg.AccessKey) == "" {
		return nil, errAccessKeyRequired
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errSecretKeyRequired
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errEndpointRequired
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logg,
	}, nil
}

// CreatePayment requests a payment URL from the gateway.
func (c *Client) CreatePayment(ctx context.Context, params CreateParams) (*CreateResponse, error) {
	req := CreateRequest{
		PartnerCode: c.cfg.PartnerCode,
		RequestID:   params.RequestID,
		Amount:      params.AmountVND,
		OrderID:     params.OrderID,
		OrderInfo:   params.OrderInfo,
		RedirectURL: c.cfg.RedirectURL,
		IPNURL:      c.cfg.IPNURL,
		RequestType: c.cfg.RequestType,
		ExtraData:   params.ExtraData.Encode(),
		Lang:        "vi",
	}
	req.Signature = signRaw(c.cfg.SecretKey, createRawSignature(c.cfg.AccessKey, req))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal momo create request")
	}

	c.log(ctx, "request", "create_payment", map[string]any{
		"order_id":   params.OrderID,
		"request_id": params.RequestID,
		"amount_vnd": params.AmountVND,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build momo create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "momo create payment failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "read momo response")
	}
	if resp.StatusCode != http.StatusOK {
		c.log(ctx, "error", "create_payment", map[string]any{"status": resp.StatusCode})
		return nil, pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("momo returned HTTP %d", resp.StatusCode))
	}

	var out CreateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode momo response")
	}
	if out.ResultCode != ResultCodeSuccess {
		c.log(ctx, "error", "create_payment", map[string]any{
			"result_code": out.ResultCode,
			"message":     out.Message,
		})
		return nil, pkgerrors.New(pkgerrors.CodeGateway, fmt.Sprintf("momo rejected payment request: %s", out.Message)).
			WithDetails(map[string]any{"resultCode": out.ResultCode})
	}

	c.log(ctx, "response", "create_payment", map[string]any{
		"order_id":    out.OrderID,
		"result_code": out.ResultCode,
	})
	return &out, nil
}

// ParseReturnParams decodes the redirect query string into typed params.
func ParseReturnParams(values url.Values) (ReturnParams, error) {
	amount, err := strconv.ParseInt(values.Get("amount"), 10, 64)
	if err != nil {
		return ReturnParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount on gateway return")
	}
	resultCode, err := strconv.Atoi(values.Get("resultCode"))
	if err != nil {
		return ReturnParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid resultCode on gateway return")
	}
	responseTime := int64(0)
	if raw := values.Get("responseTime"); raw != "" {
		if responseTime, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return ReturnParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid responseTime on gateway return")
		}
	}

	p := ReturnParams{
		PartnerCode:  values.Get("partnerCode"),
		OrderID:      values.Get("orderId"),
		RequestID:    values.Get("requestId"),
		Amount:       amount,
		OrderInfo:    values.Get("orderInfo"),
		OrderType:    values.Get("orderType"),
		TransID:      values.Get("transId"),
		ResultCode:   resultCode,
		Message:      values.Get("message"),
		PayType:      values.Get("payType"),
		ResponseTime: responseTime,
		ExtraData:    values.Get("extraData"),
		Signature:    values.Get("signature"),
	}
	if p.OrderID == "" || p.RequestID == "" {
		return ReturnParams{}, pkgerrors.New(pkgerrors.CodeValidation, "gateway return missing orderId or requestId")
	}
	return p, nil
}

// VerifyReturnSignature checks the redirect signature against our secret.
func (c *Client) VerifyReturnSignature(p ReturnParams) error {
	expected := signRaw(c.cfg.SecretKey, returnRawSignature(c.cfg.AccessKey, p))
	if !signaturesEqual(expected, p.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("momo %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("momo %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "signature", "token", "phone", "email"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
