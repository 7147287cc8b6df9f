package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/acp-gateway/internal/middleware"
    "github.com/iliyamo/acp-gateway/internal/model"
    "github.com/iliyamo/acp-gateway/internal/service"
    "github.com/iliyamo/acp-gateway/internal/utils"
)

// AuthHandler bundles dependencies for login, wallet linking and unlink.
type AuthHandler struct {
    Accounts *service.AccountService
    Sessions *service.SessionManager
    Log      zerolog.Logger
}

func NewAuthHandler(a *service.AccountService, s *service.SessionManager, log zerolog.Logger) *AuthHandler {
    return &AuthHandler{Accounts: a, Sessions: s, Log: log}
}

// ----- DTOs -----

type loginReq struct {
    Email string `json:"email"`
    Phone string `json:"phone"`
}

type linkWalletReq struct {
    WalletAddress string `json:"wallet_address"`
}

type unlinkReq struct {
    SessionToken string `json:"session_token"`
}

type loginResp struct {
    Message      string     `json:"message"`
    SessionToken string     `json:"session_token"`
    ExpiresAt    time.Time  `json:"expires_at"`
    User         model.User `json:"user"`
    IsNewUser    bool       `json:"is_new_user"`
}

// Login: find or create the user owning the email or phone and issue a
// session token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    email := strings.TrimSpace(req.Email)
    phone := utils.CompactPhone(req.Phone)

    var ident model.Identity
    switch {
    case email != "":
        if !utils.ValidEmail(email) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email format"})
        }
        ident.Email = email
    case phone != "":
        if !utils.ValidPhone(phone) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phone format"})
        }
        ident.Phone = phone
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email or phone is required"})
    }
    return h.login(c, ident)
}

// LinkWallet: log in by wallet address.
func (h *AuthHandler) LinkWallet(c echo.Context) error {
    var req linkWalletReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    wallet := strings.TrimSpace(req.WalletAddress)
    if wallet == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "wallet_address is required"})
    }
    if !utils.ValidWallet(wallet) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid wallet address format"})
    }
    return h.login(c, model.Identity{WalletAddress: wallet})
}

func (h *AuthHandler) login(c echo.Context, ident model.Identity) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Accounts.Login(ctx, ident)
    if err != nil {
        if errors.Is(err, service.ErrInvalidIdentity) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid identity"})
        }
        return serverError(c, h.Log, err, "login failed")
    }
    msg := "Login successful"
    if res.Created {
        msg = "Account created"
    }
    noStore(c)
    return c.JSON(http.StatusOK, loginResp{
        Message:      msg,
        SessionToken: res.Token.Token,
        ExpiresAt:    res.Token.Exp,
        User:         res.User,
        IsNewUser:    res.Created,
    })
}

// Unlink: revoke the presented session token.  Tokens that no longer
// verify are reported as unlinked too.
func (h *AuthHandler) Unlink(c echo.Context) error {
    token := middleware.RequestToken(c)
    if token == "" {
        var req unlinkReq
        _ = c.Bind(&req)
        token = strings.TrimSpace(req.SessionToken)
    }
    if token == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session_token"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if _, err := h.Sessions.Verify(ctx, token); err != nil {
        return c.JSON(http.StatusOK, echo.Map{"message": "Unlinked successfully", "status": "success"})
    }
    if err := h.Sessions.Revoke(ctx, token); err != nil {
        return serverError(c, h.Log, err, "revoke failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Unlinked successfully. Session terminated.", "status": "success"})
}
