package billing

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumastudio/server/internal/model"
)

func newBillingRouter(t *testing.T, userID string) (*gin.Engine, *fakeRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	svc, repo, _ := newTestBillingService(t, now)
	provider := NewSimulatedProvider(SimulatedProviderConfig{}, zap.NewNop())
	handler := NewHandler(svc, provider, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
	})
	handler.RegisterRoutes(r.Group("/billing"))
	return r, repo
}

func TestGetSubscriptionNotFound(t *testing.T) {
	r, _ := newBillingRouter(t, "user-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/billing/subscription", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutFlow(t *testing.T) {
	r, repo := newBillingRouter(t, "user-1")

	body, _ := json.Marshal(CheckoutRequest{PriceID: "price_pro"})
	req := httptest.NewRequest(http.MethodPost, "/billing/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp CheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.URL)
	require.NotNil(t, resp.Subscription)
	assert.Equal(t, model.SubscriptionStateActive, resp.Subscription.Status)
	assert.Equal(t, "price_pro", resp.Subscription.PriceID)

	require.NotNil(t, repo.subs["user-1"])

	// The subscription endpoint now serves the record.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/billing/subscription", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckoutRequiresPriceID(t *testing.T) {
	r, _ := newBillingRouter(t, "user-1")

	req := httptest.NewRequest(http.MethodPost, "/billing/checkout", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelFlow(t *testing.T) {
	r, repo := newBillingRouter(t, "user-1")

	body, _ := json.Marshal(CheckoutRequest{PriceID: "price_pro"})
	req := httptest.NewRequest(http.MethodPost, "/billing/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	periodEnd := repo.subs["user-1"].CurrentPeriodEnd

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/billing/cancel", nil))
	require.Equal(t, http.StatusOK, w.Code)

	sub := repo.subs["user-1"]
	assert.Equal(t, model.SubscriptionStateCanceled, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)
	// Access runs until the period end recorded at checkout.
	assert.Equal(t, periodEnd.Unix(), sub.CurrentPeriodEnd.Unix())
}

func TestCancelWithoutSubscription(t *testing.T) {
	r, _ := newBillingRouter(t, "user-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/billing/cancel", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBillingRoutesRequireUser(t *testing.T) {
	r, _ := newBillingRouter(t, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/billing/subscription", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
