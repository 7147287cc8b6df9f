package middleware

import (
    "crypto/subtle"
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireSharedKey rejects requests whose header does not carry key.  The
// comparison is constant time.  An empty key rejects everything.
func RequireSharedKey(header, key string) echo.MiddlewareFunc {
    want := []byte(key)
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            got := []byte(c.Request().Header.Get(header))
            if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid postback key"})
            }
            return next(c)
        }
    }
}
