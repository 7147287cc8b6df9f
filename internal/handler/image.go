package handler

import (
    "io"
    "net/http"
    "net/url"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
)

// maxImageBytes caps proxied image size.
const maxImageBytes = 10 << 20

// shopeeImageHosts are the only hosts /image will fetch from.
var shopeeImageHosts = map[string]bool{
    "cf.shopee.co.th":              true,
    "down-th.img.susercontent.com": true,
}

func isShopeeImage(raw string) bool {
    u, err := url.Parse(raw)
    if err != nil {
        return false
    }
    return (u.Scheme == "https" || u.Scheme == "http") && shopeeImageHosts[strings.ToLower(u.Hostname())]
}

// ImageHandler proxies allow-listed merchant CDN images so chat clients
// that only trust this domain can render them.
type ImageHandler struct {
    Client  *http.Client
    Allowed func(raw string) bool
    Log     zerolog.Logger
}

func NewImageHandler(client *http.Client, log zerolog.Logger) *ImageHandler {
    return &ImageHandler{Client: client, Allowed: isShopeeImage, Log: log}
}

// Image: GET /image?url=
func (h *ImageHandler) Image(c echo.Context) error {
    raw := c.QueryParam("url")
    if raw == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing url parameter"})
    }
    if !h.Allowed(raw) {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "only Shopee images are allowed"})
    }

    req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, raw, nil)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid url"})
    }
    req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; GoGoCashBot/1.0)")
    req.Header.Set("Accept", "image/*")

    res, err := h.Client.Do(req)
    if err != nil {
        h.Log.Warn().Err(err).Str("url", raw).Msg("image fetch failed")
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to fetch image"})
    }
    defer res.Body.Close()
    if res.StatusCode/100 != 2 {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to fetch image", "details": res.Status})
    }

    body, err := io.ReadAll(io.LimitReader(res.Body, maxImageBytes+1))
    if err != nil {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to fetch image"})
    }
    if len(body) > maxImageBytes {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "image too large"})
    }
    ct := res.Header.Get("Content-Type")
    if ct == "" {
        ct = "image/jpeg"
    }
    c.Response().Header().Set("Cache-Control", "public, max-age=86400")
    return c.Blob(http.StatusOK, ct, body)
}
