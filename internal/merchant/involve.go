package merchant

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "sync"
    "time"

    "golang.org/x/sync/errgroup"

    "github.com/iliyamo/acp-gateway/internal/model"
    "github.com/iliyamo/acp-gateway/internal/search"
)

const (
    involveTokenLife   = 7000 * time.Second
    involvePlaceholder = "https://via.placeholder.com/300"
)

// ErrInvolveAuth is returned when the network rejects the key/secret pair.
var ErrInvolveAuth = errors.New("involve asia: authentication failed")

// InvolveConfig holds the Involve Asia API credentials.
type InvolveConfig struct {
    BaseURL  string
    Key      string
    Secret   string
    CacheTTL time.Duration // how long the offers list is reused
}

// InvolveClient matches queries against Involve Asia offers and Shopee
// Commission Xtra shops.  The bearer token and the offers list are cached
// across calls.
type InvolveClient struct {
    cfg  InvolveConfig
    http *http.Client
    now  func() time.Time

    mu       sync.Mutex
    token    string
    tokenExp time.Time
    offers   []involveOffer
    offersAt time.Time
}

func NewInvolveClient(cfg InvolveConfig, hc *http.Client) *InvolveClient {
    cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
    if cfg.Key == "" {
        cfg.Key = "general"
    }
    return &InvolveClient{cfg: cfg, http: hc, now: time.Now}
}

func (c *InvolveClient) Name() string { return "Involve Asia" }

type involveEnvelope struct {
    Status  string          `json:"status"`
    Message string          `json:"message"`
    Data    json.RawMessage `json:"data"`
}

type involveOffer struct {
    OfferID      flexString `json:"offer_id"`
    OfferName    string     `json:"offer_name"`
    Categories   string     `json:"categories"`
    TrackingLink string     `json:"tracking_link"`
    PreviewURL   string     `json:"preview_url"`
    Logo         string     `json:"logo"`
    Currency     string     `json:"currency"`
}

type involveXtra struct {
    ShopID         flexString `json:"shop_id"`
    ShopName       string     `json:"shop_name"`
    OfferName      string     `json:"offer_name"`
    ShopType       string     `json:"shop_type"`
    ShopImage      string     `json:"shop_image"`
    ShopLink       string     `json:"shop_link"`
    TrackingLink   string     `json:"tracking_link"`
    CommissionRate flexString `json:"commission_rate"`
    Currency       string     `json:"currency"`
}

type involvePage[T any] struct {
    Data []T `json:"data"`
}

func (c *InvolveClient) do(req *http.Request) (json.RawMessage, error) {
    res, err := c.http.Do(req)
    if err != nil {
        return nil, err
    }
    defer res.Body.Close()
    body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
    if err != nil {
        return nil, err
    }
    if res.StatusCode/100 != 2 {
        return nil, fmt.Errorf("status %d: %s", res.StatusCode, truncate(string(body), 200))
    }
    var env involveEnvelope
    if err := json.Unmarshal(body, &env); err != nil {
        return nil, fmt.Errorf("decode: %w", err)
    }
    if env.Status != "success" {
        return nil, fmt.Errorf("status %q: %s", env.Status, env.Message)
    }
    return env.Data, nil
}

func (c *InvolveClient) authenticate(ctx context.Context) (string, error) {
    c.mu.Lock()
    if c.token != "" && c.now().Before(c.tokenExp) {
        tok := c.token
        c.mu.Unlock()
        return tok, nil
    }
    c.mu.Unlock()

    form := url.Values{"key": {c.cfg.Key}, "secret": {c.cfg.Secret}}
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/authenticate", strings.NewReader(form.Encode()))
    if err != nil {
        return "", err
    }
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    data, err := c.do(req)
    if err != nil {
        return "", fmt.Errorf("%w: %v", ErrInvolveAuth, err)
    }
    var auth struct {
        Token string `json:"token"`
    }
    if err := json.Unmarshal(data, &auth); err != nil || auth.Token == "" {
        return "", ErrInvolveAuth
    }

    c.mu.Lock()
    c.token, c.tokenExp = auth.Token, c.now().Add(involveTokenLife)
    c.mu.Unlock()
    return auth.Token, nil
}

func (c *InvolveClient) post(ctx context.Context, path, token string, payload any) (json.RawMessage, error) {
    body, err := json.Marshal(payload)
    if err != nil {
        return nil, err
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
    if err != nil {
        return nil, err
    }
    req.Header.Set("Authorization", "Bearer "+token)
    req.Header.Set("Content-Type", "application/json")
    data, err := c.do(req)
    if err != nil {
        return nil, fmt.Errorf("involve asia %s: %w", path, err)
    }
    return data, nil
}

func (c *InvolveClient) allOffers(ctx context.Context, token string) ([]involveOffer, error) {
    c.mu.Lock()
    if c.offers != nil && c.now().Sub(c.offersAt) < c.cfg.CacheTTL {
        offers := c.offers
        c.mu.Unlock()
        return offers, nil
    }
    c.mu.Unlock()

    data, err := c.post(ctx, "/offers/all", token, map[string]any{"page": 1})
    if err != nil {
        return nil, err
    }
    var page involvePage[involveOffer]
    if err := json.Unmarshal(data, &page); err != nil {
        return nil, fmt.Errorf("involve asia offers: %w", err)
    }
    c.mu.Lock()
    c.offers, c.offersAt = page.Data, c.now()
    c.mu.Unlock()
    return page.Data, nil
}

func (c *InvolveClient) shopeeXtra(ctx context.Context, token string) ([]involveXtra, error) {
    data, err := c.post(ctx, "/shopeextra/all", token, map[string]any{"page": 1, "sort": "high_commission"})
    if err != nil {
        return nil, err
    }
    var page involvePage[involveXtra]
    if err := json.Unmarshal(data, &page); err != nil {
        return nil, fmt.Errorf("involve asia shopeextra: %w", err)
    }
    return page.Data, nil
}

// Search fetches offers and Shopee Xtra shops concurrently and keeps those
// whose names or categories contain the query text.  Shopee Xtra matches
// come first.
func (c *InvolveClient) Search(ctx context.Context, q search.Query, limit int) ([]model.Product, error) {
    text := q.Text()
    if text == "" {
        return nil, nil
    }
    token, err := c.authenticate(ctx)
    if err != nil {
        return nil, err
    }

    var (
        offers []involveOffer
        xtra   []involveXtra
    )
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() (err error) {
        offers, err = c.allOffers(gctx, token)
        return err
    })
    g.Go(func() (err error) {
        xtra, err = c.shopeeXtra(gctx, token)
        return err
    })
    if err := g.Wait(); err != nil {
        return nil, err
    }

    var out []model.Product
    for _, s := range xtra {
        if containsFold(s.ShopName, text) || containsFold(s.OfferName, text) {
            out = append(out, xtraProduct(s))
        }
    }
    for _, o := range offers {
        if containsFold(o.OfferName, text) || containsFold(o.Categories, text) {
            out = append(out, offerProduct(o))
        }
    }
    if len(out) > 2*limit {
        out = out[:2*limit]
    }
    return out, nil
}

func containsFold(s, lowerSub string) bool {
    return s != "" && strings.Contains(strings.ToLower(s), lowerSub)
}

func offerProduct(o involveOffer) model.Product {
    currency := o.Currency
    if currency == "" {
        currency = "USD"
    }
    logo, img := o.Logo, o.Logo
    if logo == "" {
        logo, img = "https://via.placeholder.com/50", involvePlaceholder
    }
    return model.Product{
        ID:            "ia_" + o.OfferID.String(),
        Name:          "[Offer] " + o.OfferName,
        Currency:      currency,
        MerchantName:  o.OfferName,
        MerchantLogo:  logo,
        ImageURL:      img,
        ProductURL:    o.PreviewURL,
        Rating:        4.5,
        ReviewsCount:  100,
        CashbackRate:  0.05,
        AffiliateLink: o.TrackingLink,
        InStock:       true,
    }
}

func xtraProduct(s involveXtra) model.Product {
    currency := s.Currency
    if currency == "" {
        currency = "USD"
    }
    logo, img := s.ShopImage, s.ShopImage
    if logo == "" {
        logo, img = "https://via.placeholder.com/50", involvePlaceholder
    }
    return model.Product{
        ID:            "shopee_xtra_" + s.ShopID.String(),
        Name:          fmt.Sprintf("[Shopee Xtra] %s - %s", s.ShopName, s.OfferName),
        Currency:      currency,
        MerchantName:  fmt.Sprintf("Shopee (%s)", s.ShopType),
        MerchantLogo:  logo,
        ImageURL:      img,
        ProductURL:    s.ShopLink,
        Rating:        5,
        ReviewsCount:  500,
        CashbackRate:  s.CommissionRate.Float() / 100,
        AffiliateLink: s.TrackingLink,
        InStock:       true,
    }
}
