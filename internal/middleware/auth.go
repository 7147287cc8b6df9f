package middleware // middleware provides shared request processing for handlers

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/acp-gateway/internal/model"
    "github.com/iliyamo/acp-gateway/internal/service"
)

// Context keys set by SessionAuth.
const (
    CtxUser   = "user"
    CtxUserID = "user_id"
    CtxToken  = "session_token"
    CtxEmail  = "user_email"
)

// Verifier resolves a session token to a user.
type Verifier interface {
    Verify(ctx context.Context, token string) (model.User, error)
}

// EmailResolver resolves the weaker user_email credential.
type EmailResolver interface {
    FindByEmail(ctx context.Context, email string) (model.User, error)
}

// AuthOptions tunes SessionAuth per route group.
//
// Optional lets anonymous requests through, but a presented token that
// fails verification is still rejected.  AllowEmail accepts the
// user_email query parameter when no token is presented.
type AuthOptions struct {
    Optional   bool
    AllowEmail bool
}

// SessionAuth resolves the caller from, in order, the Authorization bearer
// header, the session_token query parameter and (when allowed) the
// user_email query parameter.  On success the user, its id and the raw
// credential are stored in the context.
func SessionAuth(v Verifier, emails EmailResolver, opt AuthOptions) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ctx := c.Request().Context()
            if tok := RequestToken(c); tok != "" {
                u, err := v.Verify(ctx, tok)
                if err != nil {
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": sessionErrorMessage(err)})
                }
                setUser(c, u)
                c.Set(CtxToken, tok)
                return next(c)
            }

            if opt.AllowEmail && emails != nil {
                if email := strings.TrimSpace(c.QueryParam("user_email")); email != "" {
                    u, err := emails.FindByEmail(ctx, email)
                    if err != nil {
                        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user not found. please login first"})
                    }
                    setUser(c, u)
                    c.Set(CtxEmail, email)
                    return next(c)
                }
            }

            if opt.Optional {
                return next(c)
            }
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
        }
    }
}

// RequestToken returns the bearer token or the session_token query
// parameter, whichever comes first.
func RequestToken(c echo.Context) string {
    auth := c.Request().Header.Get("Authorization")
    if strings.HasPrefix(auth, "Bearer ") {
        if tok := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); tok != "" {
            return tok
        }
    }
    return strings.TrimSpace(c.QueryParam("session_token"))
}

func sessionErrorMessage(err error) string {
    switch {
    case errors.Is(err, service.ErrSessionExpired):
        return "Session expired. Please login again."
    case errors.Is(err, service.ErrSessionRevoked):
        return "Session revoked. Please login again."
    default:
        return "invalid session token"
    }
}

func setUser(c echo.Context, u model.User) {
    c.Set(CtxUser, u)
    c.Set(CtxUserID, u.ID)
}

// UserFrom returns the user SessionAuth resolved, if any.
func UserFrom(c echo.Context) (model.User, bool) {
    u, ok := c.Get(CtxUser).(model.User)
    return u, ok
}

// TokenFrom returns the raw session token the caller authenticated with.
func TokenFrom(c echo.Context) string {
    s, _ := c.Get(CtxToken).(string)
    return s
}

// EmailFrom returns the user_email the caller was resolved by.
func EmailFrom(c echo.Context) string {
    s, _ := c.Get(CtxEmail).(string)
    return s
}

func currentUserID(c echo.Context) string {
    if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
        return s
    }
    return "anon"
}
