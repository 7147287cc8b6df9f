package merchant

import (
    "context"
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "sort"
    "strconv"
    "strings"
    "time"

    "github.com/iliyamo/acp-gateway/internal/model"
    "github.com/iliyamo/acp-gateway/internal/search"
)

const (
    lazadaLogo        = "https://laz-img-cdn.alicdn.com/images/ims-web/TB19672SXXXXXbcaXXXXXXXXXXX.png"
    lazadaPlaceholder = "https://via.placeholder.com/300?text=Lazada"
    lazadaFeedSize    = 50
)

// LazadaConfig holds the Lazada affiliate open API credentials.
type LazadaConfig struct {
    BaseURL   string
    AppKey    string
    AppSecret string
    UserToken string
}

// LazadaClient searches the Lazada affiliate product feed and converts the
// matches into tracking links.
type LazadaClient struct {
    cfg  LazadaConfig
    http *http.Client
    now  func() time.Time
}

func NewLazadaClient(cfg LazadaConfig, hc *http.Client) *LazadaClient {
    cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
    return &LazadaClient{cfg: cfg, http: hc, now: time.Now}
}

func (c *LazadaClient) Name() string { return "Lazada" }

// Sign computes the open platform signature: HMAC-SHA256 over the sorted
// key+value concatenation of params, upper-case hex.
func Sign(params map[string]string, secret string) string {
    keys := make([]string, 0, len(params))
    for k := range params {
        keys = append(keys, k)
    }
    sort.Strings(keys)
    var sb strings.Builder
    for _, k := range keys {
        sb.WriteString(k)
        sb.WriteString(params[k])
    }
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(sb.String()))
    return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

type lazadaEnvelope struct {
    Code    string          `json:"code"`
    Message string          `json:"message"`
    Data    json.RawMessage `json:"data"`
}

type lazadaFeedItem struct {
    ProductID           flexString `json:"productId"`
    ProductName         string     `json:"productName"`
    Pictures            pictures   `json:"pictures"`
    DiscountPrice       flexString `json:"discountPrice"`
    Currency            string     `json:"currency"`
    TotalCommissionRate flexString `json:"totalCommissionRate"`
    OutOfStock          bool       `json:"outOfStock"`
}

type lazadaLinks struct {
    List []struct {
        ProductID            flexString `json:"productId"`
        RegularPromotionLink string     `json:"regularPromotionLink"`
    } `json:"productBatchGetLinkInfoList"`
}

func (c *LazadaClient) call(ctx context.Context, path string, biz map[string]string, out any) error {
    params := map[string]string{
        "app_key":     c.cfg.AppKey,
        "timestamp":   strconv.FormatInt(c.now().UnixMilli(), 10),
        "sign_method": "sha256",
    }
    for k, v := range biz {
        params[k] = v
    }
    if c.cfg.AppSecret != "" {
        params["sign"] = Sign(params, c.cfg.AppSecret)
    }
    qs := url.Values{}
    for k, v := range params {
        qs.Set(k, v)
    }

    req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+qs.Encode(), nil)
    if err != nil {
        return err
    }
    res, err := c.http.Do(req)
    if err != nil {
        return fmt.Errorf("lazada %s: %w", path, err)
    }
    defer res.Body.Close()
    body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
    if err != nil {
        return fmt.Errorf("lazada %s: read body: %w", path, err)
    }
    if res.StatusCode/100 != 2 {
        return fmt.Errorf("lazada %s: status %d: %s", path, res.StatusCode, truncate(string(body), 200))
    }
    var env lazadaEnvelope
    if err := json.Unmarshal(body, &env); err != nil {
        return fmt.Errorf("lazada %s: decode: %w", path, err)
    }
    if env.Code != "" && env.Code != "0" {
        return fmt.Errorf("lazada %s: %s %s", path, env.Code, env.Message)
    }
    if len(env.Data) == 0 || string(env.Data) == "null" {
        return nil
    }
    return json.Unmarshal(env.Data, out)
}

// Search pulls one page of the regular-offer feed and keeps the items whose
// name contains the whole query, then items containing any query word, and
// finally the top of the feed as recommendations.
func (c *LazadaClient) Search(ctx context.Context, q search.Query, limit int) ([]model.Product, error) {
    var feed []lazadaFeedItem
    err := c.call(ctx, "/marketing/product/feed", map[string]string{
        "userToken": c.cfg.UserToken,
        "offerType": "1",
        "page":      "1",
        "limit":     strconv.Itoa(lazadaFeedSize),
    }, &feed)
    if err != nil {
        return nil, err
    }
    if len(feed) == 0 {
        return nil, nil
    }

    candidates := filterFeed(feed, q)
    if len(candidates) > limit {
        candidates = candidates[:limit]
    }

    ids := make([]string, len(candidates))
    for i, p := range candidates {
        ids[i] = p.ProductID.String()
    }
    var links lazadaLinks
    err = c.call(ctx, "/marketing/getlink", map[string]string{
        "userToken":  c.cfg.UserToken,
        "inputType":  "productId",
        "inputValue": strings.Join(ids, ","),
    }, &links)
    if err != nil {
        return nil, err
    }
    linkByID := make(map[string]string, len(links.List))
    for _, l := range links.List {
        if l.RegularPromotionLink != "" {
            linkByID[l.ProductID.String()] = l.RegularPromotionLink
        }
    }

    out := make([]model.Product, 0, len(candidates))
    for _, p := range candidates {
        out = append(out, c.toProduct(p, linkByID[p.ProductID.String()]))
    }
    return out, nil
}

func filterFeed(feed []lazadaFeedItem, q search.Query) []lazadaFeedItem {
    text := q.Text()
    if text != "" {
        var strict []lazadaFeedItem
        for _, p := range feed {
            if strings.Contains(strings.ToLower(p.ProductName), text) {
                strict = append(strict, p)
            }
        }
        if len(strict) > 0 {
            return strict
        }
    }

    var words []string
    for _, w := range q.Terms {
        if len([]rune(w)) > 2 {
            words = append(words, w)
        }
    }
    var fuzzy []lazadaFeedItem
    for _, p := range feed {
        name := strings.ToLower(p.ProductName)
        for _, w := range words {
            if strings.Contains(name, w) {
                fuzzy = append(fuzzy, p)
                break
            }
        }
    }
    if len(fuzzy) > 0 {
        return fuzzy
    }
    return feed
}

func (c *LazadaClient) toProduct(p lazadaFeedItem, link string) model.Product {
    price := p.DiscountPrice.Float()
    rate := normalizeRate(p.TotalCommissionRate.Float())
    img := lazadaPlaceholder
    if len(p.Pictures) > 0 && p.Pictures[0] != "" {
        img = p.Pictures[0]
    }
    currency := p.Currency
    if currency == "" {
        currency = "THB"
    }
    productURL := link
    if productURL == "" {
        productURL = "#"
    }
    return model.Product{
        ID:                "laz_" + p.ProductID.String(),
        Name:              p.ProductName,
        Price:             price,
        Currency:          currency,
        MerchantName:      "Lazada",
        MerchantLogo:      lazadaLogo,
        ImageURL:          img,
        ProductURL:        productURL,
        Rating:            4.5,
        ReviewsCount:      100,
        CashbackRate:      rate,
        EstimatedCashback: model.EstimateCashback(price, rate),
        AffiliateLink:     link,
        InStock:           !p.OutOfStock,
    }
}

func truncate(s string, n int) string {
    if len(s) <= n {
        return s
    }
    return s[:n] + "..."
}
