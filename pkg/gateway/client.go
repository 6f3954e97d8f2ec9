package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrBadSignature  = errors.New("gateway: signature verification failed")
	ErrPaymentFailed = errors.New("gateway: payment not successful")
)

// Error is a non-success response from the gateway API.
type Error struct {
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: code=%s msg=%s", e.Code, e.Msg)
}

// Client talks to the YunGou payment API. It performs network calls only;
// persistence belongs to the caller.
type Client struct {
	mchID     string
	key       string
	baseURL   string
	notifyURL string
	http      *http.Client
}

func NewClient(mchID, key, baseURL, notifyURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		mchID:     mchID,
		key:       key,
		baseURL:   baseURL,
		notifyURL: notifyURL,
		http:      &http.Client{Timeout: timeout},
	}
}

type CreateRequest struct {
	OutTradeNo string
	Amount     decimal.Decimal // yuan
	Body       string
	Attach     string // opaque, round-tripped on callback
}

type CreateResult struct {
	PaymentURL string
	QRCode     string
	OutTradeNo string
}

type gatewayResponse struct {
	Code          string `json:"code"`
	Msg           string `json:"msg"`
	PaymentID     string `json:"paymentId"`
	PaymentURL    string `json:"paymentUrl"`
	QRCode        string `json:"qrCode"`
	TradeState    string `json:"trade_state"`
	TransactionID string `json:"transaction_id"`
	TotalFee      string `json:"total_fee"`
	TimeEnd       string `json:"time_end"`
	RefundID      string `json:"refund_id"`
}

// CreatePayment creates a native (QR) payment intent at the gateway. The
// amount crosses the boundary as integer fen.
func (c *Client) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	params := map[string]string{
		"mch_id":       c.mchID,
		"out_trade_no": req.OutTradeNo,
		"total_fee":    strconv.FormatInt(YuanToFen(req.Amount), 10),
		"body":         req.Body,
		"attach":       req.Attach,
		"notify_url":   c.notifyURL,
		"time_expire":  defaultExpireTime(),
		"nonce_str":    nonceStr(),
	}
	params["sign"] = Sign(params, c.key)

	resp, err := c.post(ctx, "/api/pay/wxpay/native", params)
	if err != nil {
		return nil, err
	}
	return &CreateResult{
		PaymentURL: resp.PaymentURL,
		QRCode:     resp.QRCode,
		OutTradeNo: req.OutTradeNo,
	}, nil
}

type QueryResult struct {
	TradeState    string
	TransactionID string
	TotalFee      int64
	TimeEnd       string
}

// QueryPayment fetches the current state of an intent. Callers use it to
// reconcile when a create call timed out or a callback never arrived.
func (c *Client) QueryPayment(ctx context.Context, outTradeNo string) (*QueryResult, error) {
	params := map[string]string{
		"mch_id":       c.mchID,
		"out_trade_no": outTradeNo,
		"nonce_str":    nonceStr(),
	}
	params["sign"] = Sign(params, c.key)

	resp, err := c.post(ctx, "/api/pay/query", params)
	if err != nil {
		return nil, err
	}
	fee, _ := strconv.ParseInt(resp.TotalFee, 10, 64)
	return &QueryResult{
		TradeState:    resp.TradeState,
		TransactionID: resp.TransactionID,
		TotalFee:      fee,
		TimeEnd:       resp.TimeEnd,
	}, nil
}

type RefundRequest struct {
	OutTradeNo   string
	OutRefundNo  string
	TotalAmount  decimal.Decimal // yuan, original order amount
	RefundAmount decimal.Decimal
	Reason       string
}

type RefundResult struct {
	RefundID    string
	OutRefundNo string
}

func (c *Client) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	reason := req.Reason
	if reason == "" {
		reason = "customer requested refund"
	}
	params := map[string]string{
		"mch_id":        c.mchID,
		"out_trade_no":  req.OutTradeNo,
		"out_refund_no": req.OutRefundNo,
		"total_fee":     strconv.FormatInt(YuanToFen(req.TotalAmount), 10),
		"refund_fee":    strconv.FormatInt(YuanToFen(req.RefundAmount), 10),
		"refund_desc":   reason,
		"nonce_str":     nonceStr(),
	}
	params["sign"] = Sign(params, c.key)

	resp, err := c.post(ctx, "/api/pay/refund", params)
	if err != nil {
		return nil, err
	}
	return &RefundResult{RefundID: resp.RefundID, OutRefundNo: req.OutRefundNo}, nil
}

// CallbackResult is the verified content of a gateway payment notification.
type CallbackResult struct {
	OutTradeNo    string
	TransactionID string
	TotalFee      int64 // fen
	TimeEnd       string
	Attach        string
}

// ParseCallback verifies the notification signature and extracts the payment
// result. Returns ErrBadSignature on verification failure and
// ErrPaymentFailed when the trade state is not SUCCESS; it never panics on
// malformed input.
func (c *Client) ParseCallback(params map[string]string) (*CallbackResult, error) {
	if !VerifySign(params, params["sign"], c.key) {
		return nil, ErrBadSignature
	}
	if params["trade_state"] != "SUCCESS" {
		return nil, fmt.Errorf("%w: trade_state=%s", ErrPaymentFailed, params["trade_state"])
	}
	fee, err := strconv.ParseInt(params["total_fee"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("gateway: bad total_fee %q: %w", params["total_fee"], err)
	}
	return &CallbackResult{
		OutTradeNo:    params["out_trade_no"],
		TransactionID: params["transaction_id"],
		TotalFee:      fee,
		TimeEnd:       params["time_end"],
		Attach:        params["attach"],
	}, nil
}

func (c *Client) post(ctx context.Context, path string, params map[string]string) (*gatewayResponse, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Code: strconv.Itoa(resp.StatusCode), Msg: "unexpected http status"}
	}
	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Code != "0" {
		log.Printf("[gateway] %s failed: code=%s msg=%s", path, out.Code, out.Msg)
		return nil, &Error{Code: out.Code, Msg: out.Msg}
	}
	return &out, nil
}

func nonceStr() string {
	return uuid.NewString()
}

// defaultExpireTime is 30 minutes from now in the gateway's compact format.
func defaultExpireTime() string {
	return time.Now().Add(30 * time.Minute).Format("20060102150405")
}
