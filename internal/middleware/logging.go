package middleware

import (
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/rs/zerolog"
)

// RequestLogger logs one line per request through log.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:    true,
        LogURIPath:   true,
        LogStatus:    true,
        LogLatency:   true,
        LogRemoteIP:  true,
        LogRequestID: true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            ev := log.Info()
            if v.Error != nil || v.Status >= 500 {
                ev = log.Error().Err(v.Error)
            }
            uid := currentUserID(c)
            ev.Str("method", v.Method).
                Str("path", v.URIPath).
                Int("status", v.Status).
                Dur("latency", v.Latency).
                Str("ip", v.RemoteIP).
                Str("request_id", v.RequestID).
                Str("user_id", uid).
                Msg("request")
            return nil
        },
    })
}
