package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/acp-gateway/internal/handler"
	"github.com/iliyamo/acp-gateway/internal/middleware"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth     *handler.AuthHandler
	Account  *handler.AccountHandler
	Search   *handler.SearchHandler
	Redirect *handler.RedirectHandler
	Image    *handler.ImageHandler
	Postback *handler.PostbackHandler // nil disables /postback
}

// Middleware holds the per-route middleware built by main.
type Middleware struct {
	Verifier    middleware.Verifier
	Emails      middleware.EmailResolver
	Cache       echo.MiddlewareFunc // response cache for search routes
	PostbackKey string
}

// RegisterRoutes exposes the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers login, wallet linking and unlink.  None of them
// need an existing session.
func RegisterAuth(e *echo.Echo, h Handlers) {
	e.POST("/login", h.Auth.Login)
	e.POST("/auth/login", h.Auth.Login)
	e.POST("/linkWallet", h.Auth.LinkWallet)
	e.POST("/unlink", h.Auth.Unlink)
}

// RegisterAccount registers the per-user read routes.  They accept a
// session token or, for chat clients that cannot hold one, user_email.
func RegisterAccount(e *echo.Echo, h Handlers, m Middleware) {
	auth := middleware.SessionAuth(m.Verifier, m.Emails, middleware.AuthOptions{AllowEmail: true})
	e.GET("/user/profile", h.Account.Profile, auth)
	e.GET("/user/cashback", h.Account.Cashbacks, auth)
	e.GET("/getCashback", h.Account.Summary, auth)
}

// RegisterSearch registers product search, gift suggestions and the
// link/image helpers search results point at.
func RegisterSearch(e *echo.Echo, h Handlers, m Middleware) {
	searchAuth := middleware.SessionAuth(m.Verifier, m.Emails, middleware.AuthOptions{Optional: true, AllowEmail: true})
	giftAuth := middleware.SessionAuth(m.Verifier, nil, middleware.AuthOptions{Optional: true})
	mws := []echo.MiddlewareFunc{searchAuth}
	if m.Cache != nil {
		mws = append(mws, m.Cache)
	}
	e.GET("/searchProducts", h.Search.SearchProducts, mws...)
	e.GET("/getGifts", h.Search.Gifts, giftAuth)
	e.GET("/redirect", h.Redirect.Redirect)
	e.GET("/image", h.Image.Image)
}

// RegisterPostback registers the affiliate conversion hook when a shared
// key is configured.
func RegisterPostback(e *echo.Echo, h Handlers, m Middleware) {
	if h.Postback == nil || m.PostbackKey == "" {
		return
	}
	e.POST("/postback", h.Postback.Postback, middleware.RequireSharedKey("X-Postback-Key", m.PostbackKey))
}

// Register wires every route group.
func Register(e *echo.Echo, h Handlers, m Middleware) {
	RegisterRoutes(e)
	RegisterAuth(e, h)
	RegisterAccount(e, h, m)
	RegisterSearch(e, h, m)
	RegisterPostback(e, h, m)
}
