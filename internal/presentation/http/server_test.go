package httppresentation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Zhima-Mochi/readify/internal/application/apptest"
	"github.com/Zhima-Mochi/readify/internal/bootstrap"
	"github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/domain/otp"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/id"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/security"
	"github.com/Zhima-Mochi/readify/internal/infrastructure/vnpay"
	"github.com/Zhima-Mochi/readify/internal/observability"
)

const vnpSecret = "HTTPTESTSECRET"

type testServer struct {
	store  *memory.Store
	hasher *security.BcryptHasher
	srv    *httptest.Server
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	store := memory.NewStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	tokens, err := security.NewTokenIssuer(security.TokenConfig{AccessSecret: "access", RefreshSecret: "refresh"})
	require.NoError(t, err)

	svc := bootstrap.NewServices(bootstrap.MemoryRepositories(store), bootstrap.Adapters{
		Hasher:    hasher,
		Tokens:    tokens,
		Revoker:   memory.NewTokenRevoker(),
		Mailer:    &apptest.Mailer{},
		IDs:       id.NewObjectIDGenerator(),
		Publisher: &apptest.Publisher{},
		Gateway: vnpay.New(vnpay.Config{
			TmnCode:   "TMN01",
			SecretKey: vnpSecret,
			PayURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
			ReturnURL: "http://localhost/payment/vnpay/return",
		}),
		OTPPolicy:  otp.DefaultPolicy(),
		PendingTTL: 15 * time.Minute,
	}, observability.Nop())

	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://shop.test"
	}
	if cfg.RateRPS == 0 {
		cfg.RateRPS = 1000
		cfg.RateBurst = 1000
	}
	srv := httptest.NewServer(NewHandler(svc, cfg, observability.Nop()).Router())
	t.Cleanup(srv.Close)
	return &testServer{store: store, hasher: hasher, srv: srv}
}

func (ts *testServer) seed(t *testing.T, email, password string, role account.Role) *account.Account {
	t.Helper()
	hash, err := ts.hasher.Hash(password)
	require.NoError(t, err)
	acc := account.New(id.NewObjectIDGenerator().NewID(), email, hash, account.Profile{FirstName: "Minh", LastName: "Tran"}, role, account.StatusActive)
	require.NoError(t, ts.store.Accounts().Insert(context.Background(), acc))
	return acc
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	res, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

type body struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	ErrorCode  string          `json:"errorCode"`
	Errors     []string        `json:"errors"`
	Data       json.RawMessage `json:"data"`
}

func decodeBody(t *testing.T, res *http.Response) body {
	t.Helper()
	var b body
	require.NoError(t, json.NewDecoder(res.Body).Decode(&b))
	return b
}

func (ts *testServer) login(t *testing.T, email, password string) loginDTO {
	t.Helper()
	res := ts.do(t, http.MethodPost, "/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var out loginDTO
	require.NoError(t, json.Unmarshal(decodeBody(t, res).Data, &out))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Config{})
	res := ts.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
	b := decodeBody(t, res)
	assert.True(t, b.Success)
	assert.JSONEq(t, `{"status":"ok"}`, string(b.Data))
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, Config{})
	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-123")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "req-123", res.Header.Get("X-Request-ID"))
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	ts := newTestServer(t, Config{})
	for _, token := range []string{"", "not-a-jwt"} {
		res := ts.do(t, http.MethodGet, "/accounts/me", token, "")
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		b := decodeBody(t, res)
		assert.False(t, b.Success)
		assert.Equal(t, "UNAUTHORIZED", b.ErrorCode)
		assert.NotNil(t, b.Errors)
	}
}

func TestLoginMeLogout(t *testing.T) {
	ts := newTestServer(t, Config{})
	acc := ts.seed(t, "minh@example.com", "secret1", account.RoleUser)

	res := ts.do(t, http.MethodPost, "/auth/login", "", `{"email":"minh@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	cookies := map[string]string{}
	for _, c := range res.Cookies() {
		cookies[c.Name] = c.Value
	}
	assert.NotEmpty(t, cookies[cookieAccessToken])
	assert.NotEmpty(t, cookies[cookieRefreshToken])
	var login loginDTO
	require.NoError(t, json.Unmarshal(decodeBody(t, res).Data, &login))
	assert.Equal(t, acc.ID, login.Account.ID)

	res = ts.do(t, http.MethodGet, "/accounts/me", login.AccessToken, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var me accountDTO
	require.NoError(t, json.Unmarshal(decodeBody(t, res).Data, &me))
	assert.Equal(t, "minh@example.com", me.Email)

	res = ts.do(t, http.MethodPost, "/auth/logout", login.AccessToken, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = ts.do(t, http.MethodGet, "/accounts/me", login.AccessToken, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.seed(t, "minh@example.com", "secret1", account.RoleUser)

	res := ts.do(t, http.MethodPost, "/auth/login", "", `{"email":"minh@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestValidationErrorsAreListed(t *testing.T) {
	ts := newTestServer(t, Config{})
	res := ts.do(t, http.MethodPost, "/accounts/register", "", `{"email":"not-an-email","password":"1"}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	b := decodeBody(t, res)
	assert.Equal(t, "VALIDATION_ERROR", b.ErrorCode)
	assert.Contains(t, b.Errors, "email must be a valid email")
	assert.Contains(t, b.Errors, "password must be at least 6")
	assert.Contains(t, b.Errors, "firstName is required")
}

func TestUnknownFieldsAreRejected(t *testing.T) {
	ts := newTestServer(t, Config{})
	res := ts.do(t, http.MethodPost, "/auth/login", "", `{"email":"a@b.co","password":"x","admin":true}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", decodeBody(t, res).ErrorCode)
}

func TestCustomerCannotReachAdminRoutes(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.seed(t, "buyer@example.com", "secret1", account.RoleUser)
	login := ts.login(t, "buyer@example.com", "secret1")

	res := ts.do(t, http.MethodGet, "/accounts", login.AccessToken, "")
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	res = ts.do(t, http.MethodPost, "/categories", login.AccessToken, `{"name":"Fiction"}`)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestAdminCreatesCategory(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.seed(t, "admin@example.com", "secret1", account.RoleAdmin)
	login := ts.login(t, "admin@example.com", "secret1")

	res := ts.do(t, http.MethodPost, "/categories", login.AccessToken, `{"name":"Fiction","description":"Novels"}`)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var created categoryDTO
	require.NoError(t, json.Unmarshal(decodeBody(t, res).Data, &created))
	assert.Equal(t, "Fiction", created.Name)

	res = ts.do(t, http.MethodGet, "/categories/"+created.ID, "", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = ts.do(t, http.MethodGet, "/categories?page=1&limit=10", "", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var list page[categoryDTO]
	require.NoError(t, json.Unmarshal(decodeBody(t, res).Data, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(1), list.Meta.Total)
}

func TestEmptyCartIsAnEmptyList(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.seed(t, "buyer@example.com", "secret1", account.RoleUser)
	login := ts.login(t, "buyer@example.com", "secret1")

	res := ts.do(t, http.MethodGet, "/cart", login.AccessToken, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var c cartDTO
	require.NoError(t, json.Unmarshal(decodeBody(t, res).Data, &c))
	assert.NotNil(t, c.Items)
	assert.Empty(t, c.Items)

	res = ts.do(t, http.MethodGet, "/cart/count", login.AccessToken, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"count":0}`, string(decodeBody(t, res).Data))
}

func TestRateLimitedRoutes(t *testing.T) {
	ts := newTestServer(t, Config{RateRPS: 0.001, RateBurst: 1})

	res := ts.do(t, http.MethodPost, "/otp/send", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = ts.do(t, http.MethodPost, "/otp/send", "", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decodeBody(t, res).ErrorCode)

	// unlimited routes are unaffected
	res = ts.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func signedQuery(fields map[string]string) string {
	q := url.Values{}
	for k, v := range fields {
		q.Set(k, v)
	}
	q.Set("vnp_SecureHash", vnpay.Sign(vnpay.Canonical(fields), vnpSecret))
	return q.Encode()
}

func TestPaymentIPNResponseCodes(t *testing.T) {
	ts := newTestServer(t, Config{})

	read := func(res *http.Response) ipnResponse {
		t.Helper()
		require.Equal(t, http.StatusOK, res.StatusCode)
		var out ipnResponse
		require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
		return out
	}

	out := read(ts.do(t, http.MethodGet, "/payment/vnpay/ipn?vnp_TxnRef=o1&vnp_Amount=100&vnp_SecureHash=bad", "", ""))
	assert.Equal(t, "97", out.RspCode)

	q := signedQuery(map[string]string{
		"vnp_TxnRef":       "6650f0c2a1b2c3d4e5f60718",
		"vnp_Amount":       "10000000",
		"vnp_ResponseCode": "00",
	})
	out = read(ts.do(t, http.MethodGet, "/payment/vnpay/ipn?"+q, "", ""))
	assert.Equal(t, "01", out.RspCode)
	assert.Equal(t, "Order not found", out.Message)
}

func TestPaymentReturnRedirectsToStorefront(t *testing.T) {
	ts := newTestServer(t, Config{FrontendURL: "http://shop.test/"})

	q := signedQuery(map[string]string{
		"vnp_TxnRef":       "6650f0c2a1b2c3d4e5f60718",
		"vnp_Amount":       "10000000",
		"vnp_ResponseCode": "00",
	})
	res := ts.do(t, http.MethodGet, "/payment/vnpay/return?"+q, "", "")
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "http://shop.test/payment/failed?orderId=6650f0c2a1b2c3d4e5f60718", res.Header.Get("Location"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "[::1]:443"
	assert.Equal(t, "::1", clientIP(r))
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=2&limit=5&sortBy=createdAt&sortOrder=asc&isRead=maybe&from=2025-01-02", nil)
	q := listQuery(r)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, "createdAt", q.Sort)
	assert.Equal(t, "asc", q.Order)

	_, err := queryBoolPtr(r, "isRead")
	assert.Error(t, err)
	from, err := queryTimePtr(r, "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), *from)
	missing, err := queryInt64Ptr(r, "minPrice")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderHistoryFiltersByQ(t *testing.T) {
	ts := newTestServer(t, Config{})
	acc := ts.seed(t, "buyer@example.com", "secret1", account.RoleUser)
	ids := id.NewObjectIDGenerator()
	for _, code := range []string{"ORD20250001", "ORD20250002"} {
		line, err := order.NewLine(ids.NewID(), "Mat Biec", 1, 45_000)
		require.NoError(t, err)
		o, err := order.New(ids.NewID(), code, acc.ID, []order.Line{line}, "12 Nguyen Hue, District 1", order.PaymentCOD, "", nil)
		require.NoError(t, err)
		require.NoError(t, ts.store.Orders().Insert(context.Background(), o))
	}
	token := ts.login(t, "buyer@example.com", "secret1").AccessToken

	res := ts.do(t, http.MethodGet, "/orders?q=ord20250002", token, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var got struct {
		Items []struct {
			OrderCode string `json:"orderCode"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(decodeBody(t, res).Data, &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "ORD20250002", got.Items[0].OrderCode)

	res = ts.do(t, http.MethodGet, "/orders", token, "")
	require.NoError(t, json.Unmarshal(decodeBody(t, res).Data, &got))
	assert.Len(t, got.Items, 2)
}
