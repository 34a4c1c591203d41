package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/condo-water-billing/internal/utils"
)

const testSecret = "test-secret"

func protectedEcho() *echo.Echo {
    e := echo.New()
    g := e.Group("/admin", JWTAuth(testSecret), RequireRole("ADMIN"))
    g.GET("", func(c echo.Context) error {
        return c.String(http.StatusOK, Actor(c))
    })
    return e
}

func doGet(e *echo.Echo, auth string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(http.MethodGet, "/admin", nil)
    if auth != "" {
        req.Header.Set("Authorization", auth)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func signed(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
    t.Helper()
    s, err := jwt.NewWithClaims(method, claims).SignedString(key)
    require.NoError(t, err)
    return s
}

func TestJWTAuth(t *testing.T) {
    e := protectedEcho()
    admin, err := utils.NewAccessToken(testSecret, "admin-7", "ADMIN", time.Hour)
    require.NoError(t, err)
    viewer, err := utils.NewAccessToken(testSecret, "viewer-1", "VIEWER", time.Hour)
    require.NoError(t, err)
    expired, err := utils.NewAccessToken(testSecret, "admin-7", "ADMIN", -time.Minute)
    require.NoError(t, err)
    foreign, err := utils.NewAccessToken("other-secret", "admin-7", "ADMIN", time.Hour)
    require.NoError(t, err)

    cases := []struct {
        name   string
        auth   string
        status int
        body   string
    }{
        {"admin passes", "Bearer " + admin.Token, http.StatusOK, "admin-7"},
        {"missing header", "", http.StatusUnauthorized, `"code":"AUTH_REQUIRED"`},
        {"wrong scheme", "Basic abc", http.StatusUnauthorized, `"code":"AUTH_REQUIRED"`},
        {"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, `"code":"INVALID_TOKEN"`},
        {"expired", "Bearer " + expired.Token, http.StatusUnauthorized, `"code":"INVALID_TOKEN"`},
        {"wrong secret", "Bearer " + foreign.Token, http.StatusUnauthorized, `"code":"INVALID_TOKEN"`},
        {"wrong role", "Bearer " + viewer.Token, http.StatusForbidden, `"code":"FORBIDDEN"`},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rec := doGet(e, tc.auth)
            assert.Equal(t, tc.status, rec.Code)
            assert.Contains(t, rec.Body.String(), tc.body)
        })
    }
}

func TestJWTAuth_RejectsOtherAlgorithms(t *testing.T) {
    e := protectedEcho()
    exp := time.Now().Add(time.Hour).Unix()
    hs512 := signed(t, jwt.MapClaims{"sub": "a", "role": "ADMIN", "exp": exp}, jwt.SigningMethodHS512, []byte(testSecret))
    rec := doGet(e, "Bearer "+hs512)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuth_NumericSubjectAndMissingExp(t *testing.T) {
    e := protectedEcho()
    exp := time.Now().Add(time.Hour).Unix()

    numeric := signed(t, jwt.MapClaims{"sub": 42, "role": "ADMIN", "exp": exp}, jwt.SigningMethodHS256, []byte(testSecret))
    rec := doGet(e, "Bearer "+numeric)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "42", rec.Body.String())

    noExp := signed(t, jwt.MapClaims{"sub": "a", "role": "ADMIN"}, jwt.SigningMethodHS256, []byte(testSecret))
    rec = doGet(e, "Bearer "+noExp)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestActorDefaultsToAnonymous(t *testing.T) {
    c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
    assert.Equal(t, Anonymous, Actor(c))
    c.Set(CtxUserID, "u1")
    assert.Equal(t, "u1", Actor(c))
}

func TestRequestID(t *testing.T) {
    e := echo.New()
    e.Use(RequestID())
    e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, c.Get(CtxRequestID).(string)) })

    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
    generated := rec.Header().Get(HeaderRequestID)
    assert.Len(t, generated, 36)
    assert.Equal(t, generated, rec.Body.String())

    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set(HeaderRequestID, "7f1a2c4e-8d0b-4a5e-9c3f-1b2d3e4f5a6b")
    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    assert.Equal(t, "7f1a2c4e-8d0b-4a5e-9c3f-1b2d3e4f5a6b", rec.Header().Get(HeaderRequestID))
}
