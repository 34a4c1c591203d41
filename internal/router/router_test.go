package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRegisterRoutes_Readiness(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, pinger{})
	assert.Equal(t, http.StatusOK, get(e, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(e, "/readyz").Code)

	down := echo.New()
	RegisterRoutes(down, pinger{err: errors.New("refused")})
	rec := get(down, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_READY")
}

func TestRegisterRoutes_NoDatabase(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, nil)
	assert.Equal(t, http.StatusNotFound, get(e, "/readyz").Code)
}
