package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "fmt"
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
    CtxUserID = "user_id"
    CtxRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// issued by the auth provider and injects the token's subject and role
// claims into the request context.  The secret must match the provider's
// HS256 signing key.  Handlers read the caller through Actor(c) and
// c.Get("role").
func JWTAuth(secret string) echo.MiddlewareFunc {
    parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return errorJSON(c, http.StatusUnauthorized, "AUTH_REQUIRED", "Authentication required")
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            claims := jwt.MapClaims{}
            tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return errorJSON(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
            }

            sub := claimString(claims["sub"])
            if sub == "" {
                return errorJSON(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token has no subject")
            }
            c.Set(CtxUserID, sub)
            c.Set(CtxRole, claimString(claims["role"]))
            return next(c)
        }
    }
}

// claimString renders a string or numeric claim.  Numeric subjects arrive as
// float64 after JSON decoding.
func claimString(v any) string {
    switch t := v.(type) {
    case string:
        return t
    case float64:
        return fmt.Sprintf("%.0f", t)
    case nil:
        return ""
    default:
        return fmt.Sprint(t)
    }
}

func errorJSON(c echo.Context, status int, code, msg string) error {
    return c.JSON(status, echo.Map{"error": msg, "code": code})
}
