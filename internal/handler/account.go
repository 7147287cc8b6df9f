package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/acp-gateway/internal/middleware"
    "github.com/iliyamo/acp-gateway/internal/service"
)

// AccountHandler serves the authenticated read routes.  All of them sit
// behind middleware.SessionAuth.
type AccountHandler struct {
    Accounts *service.AccountService
    Log      zerolog.Logger
}

func NewAccountHandler(a *service.AccountService, log zerolog.Logger) *AccountHandler {
    return &AccountHandler{Accounts: a, Log: log}
}

// Profile returns the resolved user.
func (h *AccountHandler) Profile(c echo.Context) error {
    u, ok := middleware.UserFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
    }
    noStore(c)
    return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// Cashbacks lists the caller's transactions, newest first.
func (h *AccountHandler) Cashbacks(c echo.Context) error {
    u, ok := middleware.UserFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    txs, err := h.Accounts.Cashbacks(ctx, u.ID)
    if err != nil {
        return serverError(c, h.Log, err, "load cashbacks failed")
    }
    noStore(c)
    return c.JSON(http.StatusOK, echo.Map{"cashbacks": txs})
}

// Summary returns totals by status next to the transactions.
func (h *AccountHandler) Summary(c echo.Context) error {
    u, ok := middleware.UserFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    summary, txs, err := h.Accounts.Summary(ctx, u.ID)
    if err != nil {
        return serverError(c, h.Log, err, "load cashback summary failed")
    }
    noStore(c)
    return c.JSON(http.StatusOK, echo.Map{
        "user_id":      u.ID,
        "summary":      summary,
        "transactions": txs,
    })
}
