package router

import (
	"net/http"
	"net/http/httptest"
	"pay-ledger-api/handler"
	"pay-ledger-api/logger"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

func TestRouter_Routing(t *testing.T) {
	r := NewRouter(nil, nil, &handler.TransactionHandler{})

	t.Run("health endpoint is public", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok","service":"pay-ledger-api"}`, rr.Body.String())
	})

	t.Run("transfer endpoint requires authentication", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/transfers", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown route is not found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/nope", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
