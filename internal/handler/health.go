package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Health is a liveness endpoint for load balancers and monitors.
func Health(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"status": "ok", "time": time.Now().UTC()})
}
