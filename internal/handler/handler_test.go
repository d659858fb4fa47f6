package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiddenpay/backend/internal/contextkeys"
	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/internal/events"
	"github.com/hiddenpay/backend/internal/handler"
	"github.com/hiddenpay/backend/internal/service"
	"github.com/hiddenpay/backend/internal/store/memory"
	"github.com/hiddenpay/backend/pkg/address"
	"github.com/hiddenpay/backend/pkg/payment"
)

type env struct {
	ledger   *service.LedgerService
	accounts *service.AccountService
	router   chi.Router
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memory.New()
	ledger := service.NewLedgerService(st, payment.NewTokenGateway(), events.NewBus())
	accounts := service.NewAccountService(st)

	merchantH := handler.NewMerchantHandler(ledger)
	subscriptionH := handler.NewSubscriptionHandler(ledger)

	r := chi.NewRouter()
	r.Post("/api/merchants", merchantH.Create)
	r.Get("/api/merchants/{addr}", merchantH.Get)
	r.Get("/api/subscriptions/{addr}/verify", subscriptionH.Verify)
	r.Post("/api/subscriptions", subscriptionH.Create)

	return &env{ledger: ledger, accounts: accounts, router: r}
}

// do performs a request, optionally as an authenticated identity.
func (e *env) do(method, path, identity, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if identity != "" {
		ctx := context.WithValue(req.Context(), contextkeys.UserID, identity)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestMerchantCreateHandler(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.Initialize(context.Background(), "admin")
	require.NoError(t, err)

	rec := e.do(http.MethodPost, "/api/merchants", "auth-1", `{"name":"Acme"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var merchant domain.Merchant
	decodeBody(t, rec, &merchant)
	assert.Equal(t, address.Merchant("auth-1"), merchant.Address)
	assert.Equal(t, "Acme", merchant.Name)

	// Duplicate authority surfaces as a conflict.
	rec = e.do(http.MethodPost, "/api/merchants", "auth-1", `{"name":"Other"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// No identity in context means unauthorized.
	rec = e.do(http.MethodPost, "/api/merchants", "", `{"name":"Acme"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Malformed body is a bad request.
	rec = e.do(http.MethodPost, "/api/merchants", "auth-2", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMerchantGetHandler(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.Initialize(context.Background(), "admin")
	require.NoError(t, err)
	rec := e.do(http.MethodPost, "/api/merchants", "auth-1", `{"name":"Acme"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(http.MethodGet, "/api/merchants/"+string(address.Merchant("auth-1")), "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/api/merchants/"+string(address.Merchant("nobody")), "", "")
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "merchant not found", body["error"])
}

func TestSubscriptionVerifyHandler(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.ledger.Initialize(ctx, "admin")
	require.NoError(t, err)
	merchant, err := e.ledger.CreateMerchant(ctx, "auth-1", &domain.CreateMerchantRequest{Name: "Acme"})
	require.NoError(t, err)
	product, err := e.ledger.CreateProduct(ctx, "auth-1", &domain.CreateProductRequest{
		Merchant:     string(merchant.Address),
		Name:         "Pro",
		Price:        100,
		DurationDays: 30,
		Asset:        "usdc",
	})
	require.NoError(t, err)

	payer, err := e.accounts.OpenAccount(ctx, "user-1", &domain.OpenAccountRequest{Asset: "usdc"})
	require.NoError(t, err)
	_, err = e.accounts.Deposit(ctx, payer.Address, &domain.DepositRequest{Amount: 500})
	require.NoError(t, err)
	_, err = e.accounts.OpenAccount(ctx, "auth-1", &domain.OpenAccountRequest{Asset: "usdc"})
	require.NoError(t, err)

	rec := e.do(http.MethodPost, "/api/subscriptions", "user-1", `{"product":"`+string(product.Address)+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sub domain.Subscription
	decodeBody(t, rec, &sub)

	rec = e.do(http.MethodGet, "/api/subscriptions/"+string(sub.Address)+"/verify", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var verdict map[string]bool
	decodeBody(t, rec, &verdict)
	assert.True(t, verdict["valid"])

	rec = e.do(http.MethodGet, "/api/subscriptions/"+string(address.Subscription("ghost", product.Address))+"/verify", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
