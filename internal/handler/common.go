package handler // package handler contains the HTTP handlers of the gateway

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
)

// requestTimeout bounds store work done on behalf of one request.
const requestTimeout = 5 * time.Second

// noStore marks a response as private to the caller.
func noStore(c echo.Context) {
    c.Response().Header().Set("Cache-Control", "no-store")
}

// serverError logs err and writes a generic 500 body.
func serverError(c echo.Context, log zerolog.Logger, err error, msg string) error {
    log.Error().Err(err).Str("path", c.Path()).Msg(msg)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}
