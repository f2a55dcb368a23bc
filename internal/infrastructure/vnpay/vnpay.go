// Package vnpay signs payment links for the VNPay gateway and verifies its callbacks.
package vnpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	domain "github.com/Zhima-Mochi/readify/internal/domain/payment"
)

const (
	version   = "2.1.0"
	command   = "pay"
	currency  = "VND"
	orderType = "other"
	locale    = "vn"

	dateLayout = "20060102150405"

	paramSecureHash     = "vnp_SecureHash"
	paramSecureHashType = "vnp_SecureHashType"
)

// gmt7 is the gateway's wall clock; it has no DST so a fixed zone is exact.
var gmt7 = time.FixedZone("GMT+7", 7*60*60)

type Config struct {
	TmnCode     string
	SecretKey   string
	PayURL      string
	ReturnURL   string
	ExpireAfter time.Duration
}

type Gateway struct {
	cfg Config
}

var _ domain.Gateway = (*Gateway)(nil)

func New(cfg Config) *Gateway {
	if cfg.ExpireAfter <= 0 {
		cfg.ExpireAfter = 15 * time.Minute
	}
	return &Gateway{cfg: cfg}
}

func (g *Gateway) PaymentURL(_ context.Context, req domain.Request) (string, error) {
	if req.OrderID == "" || req.Amount <= 0 {
		return "", fmt.Errorf("vnpay: order id and positive amount are required")
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	ip := req.ClientIP
	if ip == "" {
		ip = "127.0.0.1"
	}
	params := map[string]string{
		"vnp_Version":    version,
		"vnp_Command":    command,
		"vnp_TmnCode":    g.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(req.Amount*100, 10),
		"vnp_CurrCode":   currency,
		"vnp_TxnRef":     req.OrderID,
		"vnp_OrderInfo":  "Thanh toan don hang " + req.OrderID,
		"vnp_OrderType":  orderType,
		"vnp_Locale":     locale,
		"vnp_ReturnUrl":  g.cfg.ReturnURL,
		"vnp_IpAddr":     ip,
		"vnp_CreateDate": FormatDate(now),
		"vnp_ExpireDate": FormatDate(now.Add(g.cfg.ExpireAfter)),
	}
	query := Canonical(params)
	return g.cfg.PayURL + "?" + query + "&" + paramSecureHash + "=" + Sign(query, g.cfg.SecretKey), nil
}

// Verify recomputes the signature over every vnp_ field but the hash itself.
func (g *Gateway) Verify(params map[string]string) bool {
	got := params[paramSecureHash]
	if got == "" {
		return false
	}
	signed := make(map[string]string, len(params))
	for k, v := range params {
		if k == paramSecureHash || k == paramSecureHashType || !strings.HasPrefix(k, "vnp_") {
			continue
		}
		signed[k] = v
	}
	want := Sign(Canonical(signed), g.cfg.SecretKey)
	return hmac.Equal([]byte(strings.ToLower(got)), []byte(want))
}

func (g *Gateway) ParseCallback(params map[string]string) (domain.Callback, error) {
	if !g.Verify(params) {
		return domain.Callback{}, domain.ErrInvalidSignature
	}
	cb := domain.Callback{
		OrderID:           params["vnp_TxnRef"],
		ResponseCode:      params["vnp_ResponseCode"],
		TransactionStatus: params["vnp_TransactionStatus"],
		TransactionNo:     params["vnp_TransactionNo"],
		BankCode:          params["vnp_BankCode"],
	}
	if cb.OrderID == "" {
		return domain.Callback{}, domain.ErrMalformed.Withf("vnp_TxnRef is missing")
	}
	raw, err := strconv.ParseInt(params["vnp_Amount"], 10, 64)
	if err != nil || raw < 0 {
		return domain.Callback{}, domain.ErrMalformed.Withf("vnp_Amount %q is not an integer", params["vnp_Amount"])
	}
	cb.Amount = raw / 100
	if s := params["vnp_PayDate"]; s != "" {
		if t, err := ParseDate(s); err == nil {
			cb.PayDate = &t
		}
	}
	return cb, nil
}

// Canonical sorts keys, skips empty values and query-escapes each value.
func Canonical(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

// Sign is the lowercase hex HMAC-SHA512 of data.
func Sign(data, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func FormatDate(t time.Time) string { return t.In(gmt7).Format(dateLayout) }

func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, gmt7)
	if err != nil {
		return time.Time{}, fmt.Errorf("vnpay: parse date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Disabled stands in for the gateway when no merchant credentials are configured.
type Disabled struct{}

func (Disabled) PaymentURL(context.Context, domain.Request) (string, error) {
	return "", domain.ErrUnavailable
}

func (Disabled) ParseCallback(map[string]string) (domain.Callback, error) {
	return domain.Callback{}, domain.ErrUnavailable
}
