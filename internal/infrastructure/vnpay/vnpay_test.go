package vnpay

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Zhima-Mochi/readify/internal/domain/payment"
)

const secret = "TESTSECRET"

func testGateway() *Gateway {
	return New(Config{
		TmnCode:   "TMN01",
		SecretKey: secret,
		PayURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL: "http://localhost:8080/payment/vnpay/return",
	})
}

func TestCanonicalSortsSkipsEmptyAndEscapes(t *testing.T) {
	got := Canonical(map[string]string{
		"vnp_TxnRef":    "o1",
		"vnp_Amount":    "10000000",
		"vnp_BankCode":  "",
		"vnp_OrderInfo": "Thanh toan don hang o1",
		"vnp_ReturnUrl": "http://x/y?a=1",
	})
	assert.Equal(t, "vnp_Amount=10000000&vnp_OrderInfo=Thanh+toan+don+hang+o1&vnp_ReturnUrl=http%3A%2F%2Fx%2Fy%3Fa%3D1&vnp_TxnRef=o1", got)
}

func TestSignIsHexSHA512(t *testing.T) {
	sig := Sign("a=1", secret)
	assert.Len(t, sig, 128)
	assert.Equal(t, sig, Sign("a=1", secret))
	assert.NotEqual(t, sig, Sign("a=2", secret))
}

func TestDatesUseGMT7(t *testing.T) {
	at := time.Date(2025, 3, 1, 17, 30, 5, 0, time.UTC)
	assert.Equal(t, "20250302003005", FormatDate(at))

	parsed, err := ParseDate("20250302003005")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(at))

	_, err = ParseDate("2025-03-02")
	assert.Error(t, err)
}

func TestPaymentURL(t *testing.T) {
	g := testGateway()
	now := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	raw, err := g.PaymentURL(context.Background(), domain.Request{OrderID: "o1", Amount: 150_000, ClientIP: "10.0.0.1", Now: now})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "sandbox.vnpayment.vn", u.Host)
	assert.Equal(t, "2.1.0", q.Get("vnp_Version"))
	assert.Equal(t, "pay", q.Get("vnp_Command"))
	assert.Equal(t, "TMN01", q.Get("vnp_TmnCode"))
	assert.Equal(t, "15000000", q.Get("vnp_Amount"))
	assert.Equal(t, "VND", q.Get("vnp_CurrCode"))
	assert.Equal(t, "o1", q.Get("vnp_TxnRef"))
	assert.Equal(t, "Thanh toan don hang o1", q.Get("vnp_OrderInfo"))
	assert.Equal(t, "10.0.0.1", q.Get("vnp_IpAddr"))
	assert.Equal(t, "20250301100000", q.Get("vnp_CreateDate"))
	assert.Equal(t, "20250301101500", q.Get("vnp_ExpireDate"))

	params := map[string]string{}
	for k := range q {
		params[k] = q.Get(k)
	}
	assert.True(t, g.Verify(params), "the gateway must accept its own link")
}

func TestPaymentURLRejectsEmptyOrder(t *testing.T) {
	_, err := testGateway().PaymentURL(context.Background(), domain.Request{Amount: 1})
	assert.Error(t, err)
}

func signedCallback(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	out[paramSecureHash] = Sign(Canonical(fields), secret)
	out[paramSecureHashType] = "HmacSHA512"
	return out
}

func TestParseCallback(t *testing.T) {
	g := testGateway()
	params := signedCallback(map[string]string{
		"vnp_TxnRef":            "o1",
		"vnp_Amount":            "15000000",
		"vnp_ResponseCode":      "00",
		"vnp_TransactionStatus": "00",
		"vnp_TransactionNo":     "14000001",
		"vnp_BankCode":          "NCB",
		"vnp_PayDate":           "20250301101010",
	})

	cb, err := g.ParseCallback(params)
	require.NoError(t, err)
	assert.Equal(t, "o1", cb.OrderID)
	assert.Equal(t, int64(150_000), cb.Amount)
	assert.True(t, cb.Succeeded())
	assert.Equal(t, "14000001", cb.TransactionNo)
	assert.Equal(t, "NCB", cb.BankCode)
	require.NotNil(t, cb.PayDate)
	assert.Equal(t, time.Date(2025, 3, 1, 3, 10, 10, 0, time.UTC), *cb.PayDate)
}

func TestParseCallbackRejectsTampering(t *testing.T) {
	g := testGateway()
	params := signedCallback(map[string]string{"vnp_TxnRef": "o1", "vnp_Amount": "100", "vnp_ResponseCode": "00"})
	params["vnp_Amount"] = "999999900"

	_, err := g.ParseCallback(params)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	delete(params, paramSecureHash)
	_, err = g.ParseCallback(params)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestParseCallbackMalformedAmount(t *testing.T) {
	params := signedCallback(map[string]string{"vnp_TxnRef": "o1", "vnp_Amount": "abc"})
	_, err := testGateway().ParseCallback(params)
	assert.ErrorIs(t, err, domain.ErrMalformed)
}
