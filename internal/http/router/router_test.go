package router

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/offer-escrow/internal/config"
	"github.com/ignatzorin/offer-escrow/internal/http/handlers"
)

type stubDB struct{}

func (stubDB) PingContext(context.Context) error { return nil }
func (stubDB) Stats() sql.DBStats                { return sql.DBStats{} }

type rejectAll struct{}

func (rejectAll) ParseAccess(string) (uuid.UUID, string, error) {
	return uuid.Nil, "", assert.AnError
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: "test", RateLimitLimit: 100, RateLimitPeriod: time.Minute}
	h := Handlers{
		Offers:        handlers.NewOfferHandler(nil),
		Escrow:        handlers.NewEscrowHandler(nil),
		Delivery:      handlers.NewDeliveryHandler(nil),
		Postings:      handlers.NewPostingHandler(nil),
		Notifications: handlers.NewNotificationHandler(nil),
		Health:        handlers.NewHealthHandler(stubDB{}, false),
		WS:            handlers.NewWSHandler(nil, rejectAll{}, nil),
	}
	return SetupRouter(cfg, h, rejectAll{})
}

func TestRouter_PublicRoutes(t *testing.T) {
	r := newTestRouter()

	for _, path := range []string{"/health", "/metrics"} {
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	r := newTestRouter()
	id := uuid.NewString()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/notifications"},
		{http.MethodPost, "/api/postings/" + id + "/offers"},
		{http.MethodDelete, "/api/postings/" + id},
		{http.MethodGet, "/api/offers/" + id},
		{http.MethodPut, "/api/offers/" + id + "/amount"},
		{http.MethodPost, "/api/offers/" + id + "/hold"},
		{http.MethodPost, "/api/offers/" + id + "/hold/finalize"},
		{http.MethodPost, "/api/offers/" + id + "/delivery/accept"},
	}
	for _, route := range routes {
		req, _ := http.NewRequest(route.method, route.path, nil)
		req.Header.Set("Authorization", "Bearer whatever")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}
