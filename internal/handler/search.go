package handler

import (
    "context"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/acp-gateway/internal/middleware"
    "github.com/iliyamo/acp-gateway/internal/model"
    "github.com/iliyamo/acp-gateway/internal/search"
)

// searchTimeout covers the whole merchant fan-out.
const searchTimeout = 20 * time.Second

// SearchHandler serves product search and gift suggestions.
type SearchHandler struct {
    Matcher *search.Matcher
    BaseURL string // public base URL used for /redirect and /image links
}

func NewSearchHandler(m *search.Matcher, baseURL string) *SearchHandler {
    return &SearchHandler{Matcher: m, BaseURL: strings.TrimRight(baseURL, "/")}
}

// productView is a product as returned to clients: links routed through
// /redirect and Shopee images through /image.
type productView struct {
    model.Product
    ImageURLOriginal string `json:"image_url_original,omitempty"`
}

type searchResp struct {
    Query        string        `json:"query"`
    TotalResults int           `json:"total_results"`
    Results      []productView `json:"results"`
    Source       string        `json:"source"`
    KeywordsUsed []string      `json:"keywords_used"`
    Timestamp    time.Time     `json:"timestamp"`
}

// SearchProducts: GET /searchProducts?query=&limit=
func (h *SearchHandler) SearchProducts(c echo.Context) error {
    query := strings.TrimSpace(c.QueryParam("query"))
    if query == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "query is required"})
    }
    limit := 0
    if s := c.QueryParam("limit"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a number"})
        }
        limit = n
    }
    return c.JSON(http.StatusOK, h.run(c, query, limit))
}

// Gifts: GET /getGifts?recipient=&budget=
func (h *SearchHandler) Gifts(c echo.Context) error {
    recipient := strings.TrimSpace(c.QueryParam("recipient"))
    if recipient == "" {
        recipient = "friend"
    }
    query := "Christmas gift for " + recipient
    if budget := strings.TrimSpace(c.QueryParam("budget")); budget != "" {
        query += " under " + budget
    }
    return c.JSON(http.StatusOK, h.run(c, query, search.DefaultLimit))
}

func (h *SearchHandler) run(c echo.Context, query string, limit int) searchResp {
    ctx, cancel := context.WithTimeout(c.Request().Context(), searchTimeout)
    defer cancel()

    res := h.Matcher.Search(ctx, query, limit)
    views := make([]productView, 0, len(res.Products))
    for _, p := range res.Products {
        views = append(views, h.decorate(c, p))
    }
    kw := res.Query.Keywords
    if len(kw) > 5 {
        kw = kw[:5]
    }
    if kw == nil {
        kw = []string{}
    }
    return searchResp{
        Query:        query,
        TotalResults: len(views),
        Results:      views,
        Source:       res.Source,
        KeywordsUsed: kw,
        Timestamp:    time.Now().UTC(),
    }
}

func (h *SearchHandler) decorate(c echo.Context, p model.Product) productView {
    v := productView{Product: p}

    link := p.AffiliateLink
    if link == "" {
        link = p.ProductURL
    }
    if link != "" && link != "#" {
        q := url.Values{"url": {link}}
        if tok := middleware.TokenFrom(c); tok != "" {
            q.Set("session_token", tok)
        } else if email := middleware.EmailFrom(c); email != "" {
            q.Set("user_email", email)
        } else if email := strings.TrimSpace(c.QueryParam("user_email")); email != "" {
            q.Set("user_email", email)
        }
        v.AffiliateLink = h.BaseURL + "/redirect?" + q.Encode()
    }

    if isShopeeImage(p.ImageURL) {
        v.ImageURLOriginal = p.ImageURL
        v.ImageURL = h.BaseURL + "/image?" + url.Values{"url": {p.ImageURL}}.Encode()
    }
    return v
}
