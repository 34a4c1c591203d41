package middleware

import "github.com/labstack/echo/v4"

// Anonymous is the actor of requests that carry no verified token.
const Anonymous = "anon"

// Actor returns the verified subject stored by JWTAuth, or Anonymous.
func Actor(c echo.Context) string {
    if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
        return s
    }
    return Anonymous
}
