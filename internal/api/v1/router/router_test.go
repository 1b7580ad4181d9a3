package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"marketplace/internal/api/v1/dto"
	"marketplace/internal/catalog"
	"marketplace/internal/config"
	"marketplace/internal/identity"
	"marketplace/internal/repository"
	"marketplace/internal/routing"
	"marketplace/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "router-secret"

type testServer struct {
	handler http.Handler
	now     time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}

	cfg := &config.Config{
		SessionCookieName:  "session",
		PlanSelectionPath:  "/pricing",
		CORSAllowedOrigins: []string{"*"},
		PlanRoutes: map[string]string{
			"/dashboard/supplier": "supplier",
			"/dashboard/trader":   "trader",
		},
	}
	plans := catalog.Default()
	routes, err := routing.NewPlanRoutes(cfg.PlanRoutes, plans)
	require.NoError(t, err)

	verifier, err := identity.NewJWTVerifier(secret)
	require.NoError(t, err)

	deps := &Dependencies{
		Entitlements: service.NewEntitlementService(repository.NewMemorySubscriptionRepo(), plans, zerolog.Nop(),
			service.WithClock(func() time.Time { return ts.now })),
		Routes:   routes,
		Verifier: verifier,
	}
	ts.handler = NewHandler(cfg, deps, zerolog.Nop())
	return ts
}

func (ts *testServer) request(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		tok, err := identity.IssueHS256(secret, user, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestListPlans(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/v1/plans", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	plans := decode[[]dto.PlanResponseDTO](t, rec)
	require.Len(t, plans, 3)
	assert.Equal(t, []string{"free", "supplier", "trader"}, []string{plans[0].ID, plans[1].ID, plans[2].ID})
	assert.Equal(t, 1, plans[1].TrialDays)
}

func TestSubscriptionEndpointsRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.request(t, http.MethodGet, "/v1/subscriptions/me", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, ts.request(t, http.MethodPost, "/v1/subscriptions/cancel", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, ts.request(t, http.MethodGet, "/dashboard/supplier", "", "").Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/v1/subscriptions/me", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[dto.SubscriptionResponseDTO](t, rec)
	assert.Equal(t, "free", me.PlanID)
	assert.Equal(t, "active", me.Status)
	assert.Equal(t, "pending", me.TrialStatus)

	rec = ts.request(t, http.MethodPost, "/v1/subscriptions/trial", "u1", `{"plan_id":"trader"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	me = decode[dto.SubscriptionResponseDTO](t, rec)
	assert.True(t, me.IsTrialActive)
	assert.Equal(t, int64(86400), me.TrialSecondsRemaining)

	rec = ts.request(t, http.MethodPost, "/v1/subscriptions/activate", "u1", `{"plan_id":"trader"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	me = decode[dto.SubscriptionResponseDTO](t, rec)
	assert.Equal(t, "active", me.Status)
	assert.NotNil(t, me.ActivatedAt)

	rec = ts.request(t, http.MethodPost, "/v1/subscriptions/cancel", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	me = decode[dto.SubscriptionResponseDTO](t, rec)
	assert.Equal(t, "free", me.PlanID)
	assert.Equal(t, "canceled", me.Status)
}

func TestStartTrialValidation(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, ts.request(t, http.MethodPost, "/v1/subscriptions/trial", "u1", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.request(t, http.MethodPost, "/v1/subscriptions/trial", "u1", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.request(t, http.MethodPost, "/v1/subscriptions/trial", "u1", `{"plan_id":"gold"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, ts.request(t, http.MethodPost, "/v1/subscriptions/trial", "u1", `{"plan_id":"free"}`).Code)
}

func TestOnboardThenTrialExpiresAndGateRedirects(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/v1/users/me/onboard", "seller", `{"plan_id":"supplier"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[dto.SubscriptionResponseDTO](t, rec).IsTrialActive)

	rec = ts.request(t, http.MethodGet, "/dashboard/supplier", "seller", "")
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[dto.DashboardResponseDTO](t, rec)
	assert.Equal(t, "supplier", dash.Area)
	assert.Equal(t, "supplier", dash.RequiredPlan)

	ts.now = ts.now.Add(26 * time.Hour)

	rec = ts.request(t, http.MethodGet, "/dashboard/supplier", "seller", "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/pricing", loc.Path)
	assert.Equal(t, "trial-expired", loc.Query().Get("reason"))
	assert.Equal(t, "supplier", loc.Query().Get("plan"))
	assert.Equal(t, "/dashboard/supplier", loc.Query().Get("redirect"))

	rec = ts.request(t, http.MethodGet, loc.RequestURI(), "seller", "")
	require.Equal(t, http.StatusOK, rec.Code)
	pricing := decode[dto.PricingResponseDTO](t, rec)
	assert.Len(t, pricing.Plans, 3)
	assert.Equal(t, "trial-expired", pricing.Reason)
	assert.Equal(t, "/dashboard/supplier", pricing.Redirect)
	require.NotNil(t, pricing.Current)
	assert.Equal(t, "expired", pricing.Current.Status)
}

func TestPricingDropsForeignRedirect(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/pricing?redirect=//evil.example&plan=trader", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	pricing := decode[dto.PricingResponseDTO](t, rec)
	assert.Empty(t, pricing.Redirect)
	assert.Equal(t, "trader", pricing.Plan)
	assert.Nil(t, pricing.Current)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusOK, ts.request(t, http.MethodGet, "/healthz", "", "").Code)

	ts.request(t, http.MethodGet, "/dashboard/trader", "window-shopper", "")
	rec := ts.request(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marketplace_gate_decisions_total")
}
