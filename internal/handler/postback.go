package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/acp-gateway/internal/queue"
    "github.com/iliyamo/acp-gateway/internal/repository"
    "github.com/iliyamo/acp-gateway/internal/service"
)

// PostbackHandler receives affiliate conversion postbacks.  With Async set
// the conversion is queued for the cashback consumer; otherwise, or when
// publishing fails, it is credited inline.
type PostbackHandler struct {
    Accounts  *service.AccountService
    Publisher service.Publisher
    Async     bool
    Log       zerolog.Logger
}

func NewPostbackHandler(a *service.AccountService, p service.Publisher, async bool, log zerolog.Logger) *PostbackHandler {
    return &PostbackHandler{Accounts: a, Publisher: p, Async: async, Log: log}
}

type postbackReq struct {
    SubID        string          `json:"sub_id"`
    Amount       decimal.Decimal `json:"amount"`
    ConversionID string          `json:"conversion_id"`
    Description  string          `json:"description"`
}

// Postback: POST /postback
func (h *PostbackHandler) Postback(c echo.Context) error {
    var req postbackReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.SubID = strings.TrimSpace(req.SubID)
    if req.SubID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "sub_id is required"})
    }
    req.Amount = req.Amount.Round(2)
    if req.Amount.Sign() <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if h.Async {
        err := h.Publisher.PublishCashback(ctx, queue.CashbackEvent{
            UserID:       req.SubID,
            Amount:       req.Amount,
            ConversionID: req.ConversionID,
            Description:  req.Description,
            ReceivedAt:   time.Now().UTC(),
        })
        if err == nil {
            return c.JSON(http.StatusAccepted, echo.Map{"status": "queued"})
        }
        h.Log.Warn().Err(err).Msg("postback publish failed, crediting inline")
    }

    tx, err := h.Accounts.CreditCashback(ctx, service.CashbackCredit{
        UserID:       req.SubID,
        Amount:       req.Amount,
        ConversionID: req.ConversionID,
        Description:  req.Description,
    })
    switch {
    case err == nil:
        return c.JSON(http.StatusAccepted, echo.Map{"status": "credited", "transaction": tx})
    case errors.Is(err, service.ErrDuplicateCredit):
        return c.JSON(http.StatusOK, echo.Map{"status": "duplicate"})
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown sub_id"})
    default:
        return serverError(c, h.Log, err, "credit cashback failed")
    }
}
