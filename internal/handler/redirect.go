package handler

import (
    "context"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/acp-gateway/internal/middleware"
    "github.com/iliyamo/acp-gateway/internal/model"
    "github.com/iliyamo/acp-gateway/internal/queue"
    "github.com/iliyamo/acp-gateway/internal/service"
)

// RedirectHandler forwards shoppers to merchant links, tagging the link
// with the shopper's id for affiliate attribution.
type RedirectHandler struct {
    Sessions  middleware.Verifier
    Emails    middleware.EmailResolver
    Publisher service.Publisher
    Log       zerolog.Logger
}

func NewRedirectHandler(v middleware.Verifier, e middleware.EmailResolver, p service.Publisher, log zerolog.Logger) *RedirectHandler {
    return &RedirectHandler{Sessions: v, Emails: e, Publisher: p, Log: log}
}

// Redirect: GET /redirect?url=&session_token=|u=|user_email=
//
// Only users that exist in the store get a sub_id; an unverifiable
// credential or a reconstructed user still gets redirected, untagged.
func (h *RedirectHandler) Redirect(c echo.Context) error {
    raw := strings.TrimSpace(c.QueryParam("url"))
    if raw == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing target url"})
    }
    target, err := url.Parse(raw)
    if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid url"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    var userID string
    if u, ok := h.resolve(ctx, c); ok && !u.Reconstructed {
        userID = u.ID
        tag := "sub_id=" + url.QueryEscape(u.ID)
        if target.RawQuery == "" {
            target.RawQuery = tag
        } else {
            target.RawQuery += "&" + tag
        }
    }

    dest := target.String()
    ev := queue.ClickEvent{UserID: userID, TargetURL: dest, ClickedAt: time.Now().UTC(), IP: c.RealIP()}
    if err := h.Publisher.PublishClick(ctx, ev); err != nil {
        h.Log.Warn().Err(err).Msg("click event not published")
    }
    return c.Redirect(http.StatusFound, dest)
}

func (h *RedirectHandler) resolve(ctx context.Context, c echo.Context) (model.User, bool) {
    tok := middleware.RequestToken(c)
    if tok == "" {
        tok = strings.TrimSpace(c.QueryParam("u"))
    }
    if tok != "" {
        u, err := h.Sessions.Verify(ctx, tok)
        return u, err == nil
    }
    if email := strings.TrimSpace(c.QueryParam("user_email")); email != "" && h.Emails != nil {
        u, err := h.Emails.FindByEmail(ctx, email)
        return u, err == nil
    }
    return model.User{}, false
}
