package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "go.uber.org/zap"
)

const (
    HeaderRequestID = "X-Request-ID"
    CtxRequestID    = "request_id"
)

// RequestID sets X-Request-ID if missing or not a UUID, and propagates it in
// the response header and the echo context.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := c.Request().Header.Get(HeaderRequestID)
            if _, err := uuid.Parse(id); err != nil {
                id = uuid.NewString()
            }
            c.Set(CtxRequestID, id)
            c.Response().Header().Set(HeaderRequestID, id)
            return next(c)
        }
    }
}

// RequestLogger writes one structured access log line per request.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:    true,
        LogURI:       true,
        LogStatus:    true,
        LogLatency:   true,
        LogRemoteIP:  true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            fields := []zap.Field{
                zap.String("method", v.Method),
                zap.String("uri", v.URI),
                zap.Int("status", v.Status),
                zap.Duration("latency", v.Latency.Round(time.Microsecond)),
                zap.String("remote_ip", v.RemoteIP),
                zap.String("actor", Actor(c)),
            }
            if id, ok := c.Get(CtxRequestID).(string); ok {
                fields = append(fields, zap.String("request_id", id))
            }
            switch {
            case v.Error != nil:
                log.Error("request", append(fields, zap.Error(v.Error))...)
            case v.Status >= 500:
                log.Error("request", fields...)
            default:
                log.Info("request", fields...)
            }
            return nil
        },
    })
}
