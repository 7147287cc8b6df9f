package search

import (
    "context"
    "fmt"
    "net/url"
    "sort"
    "strings"

    "github.com/rs/zerolog"
    "golang.org/x/sync/errgroup"

    "github.com/iliyamo/acp-gateway/internal/model"
)

// Result limits.
const (
    DefaultLimit = 5
    MaxLimit     = 50
)

// Result sources.
const (
    SourceCatalog      = "catalog"
    SourceShopeeSearch = "shopee_search"
)

// FallbackProductID identifies the placeholder returned when nothing matched.
const FallbackProductID = "search_link"

const (
    shopeeLogo  = "https://cf.shopee.co.th/file/38d3010b996b7d22f281e69974261899"
    shopeeImage = "https://cf.shopee.co.th/file/9ca36899f65dff9cc6ce62b92e70e567"
)

// Merchant is a product source.  Implementations get the parsed query and
// the requested result size and may return more or fewer items.
type Merchant interface {
    Name() string
    Search(ctx context.Context, q Query, limit int) ([]model.Product, error)
}

// Result is the outcome of Matcher.Search.
type Result struct {
    Query    Query
    Products []model.Product
    Source   string
}

// Matcher fans a query out to its merchants and ranks the union.
type Matcher struct {
    merchants []Merchant
    log       zerolog.Logger
}

// NewMatcher returns a matcher over merchants.  Registration order is the
// order candidates are concatenated in before ranking.
func NewMatcher(log zerolog.Logger, merchants ...Merchant) *Matcher {
    return &Matcher{merchants: merchants, log: log}
}

// NormalizeLimit clamps n into [1, MaxLimit]; non-positive values select
// DefaultLimit.
func NormalizeLimit(n int) int {
    switch {
    case n <= 0:
        return DefaultLimit
    case n > MaxLimit:
        return MaxLimit
    }
    return n
}

// Search never returns an empty product list: when no merchant produces a
// candidate the result holds a single link to the Shopee search page.
func (m *Matcher) Search(ctx context.Context, raw string, limit int) Result {
    limit = NormalizeLimit(limit)
    q := Parse(raw)

    var candidates []model.Product
    if len(q.Keywords) > 0 {
        candidates = m.collect(ctx, q, limit)
    }
    products := Rank(q, candidates, limit)
    if len(products) == 0 {
        return Result{Query: q, Products: []model.Product{Fallback(q)}, Source: SourceShopeeSearch}
    }
    return Result{Query: q, Products: products, Source: SourceCatalog}
}

func (m *Matcher) collect(ctx context.Context, q Query, limit int) []model.Product {
    perMerchant := make([][]model.Product, len(m.merchants))
    g, gctx := errgroup.WithContext(ctx)
    for i, mer := range m.merchants {
        g.Go(func() error {
            items, err := mer.Search(gctx, q, limit)
            if err != nil {
                // a failing merchant contributes nothing
                m.log.Warn().Err(err).Str("merchant", mer.Name()).Str("query", q.Raw).Msg("merchant search failed")
                return nil
            }
            perMerchant[i] = items
            return nil
        })
    }
    _ = g.Wait()

    var out []model.Product
    for _, items := range perMerchant {
        out = append(out, items...)
    }
    return out
}

// Rank applies the price bounds of q, falls back to the cheapest items when
// the bounds leave nothing, orders by rating and truncates to limit.
func Rank(q Query, candidates []model.Product, limit int) []model.Product {
    if len(candidates) == 0 {
        return nil
    }
    filtered := candidates
    if q.HasMin || q.HasMax {
        filtered = make([]model.Product, 0, len(candidates))
        for _, p := range candidates {
            if q.HasMax && p.Price > q.MaxPrice {
                continue
            }
            if q.HasMin && p.Price < q.MinPrice {
                continue
            }
            filtered = append(filtered, p)
        }
        if len(filtered) == 0 {
            filtered = cheapest(candidates, limit)
        }
    } else {
        filtered = append([]model.Product(nil), candidates...)
    }

    sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Rating > filtered[j].Rating })
    if len(filtered) > limit {
        filtered = filtered[:limit]
    }
    return filtered
}

func cheapest(items []model.Product, n int) []model.Product {
    out := append([]model.Product(nil), items...)
    sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
    if len(out) > n {
        out = out[:n]
    }
    return out
}

// Fallback builds the placeholder pointing at Shopee's own search page for
// the original query text.
func Fallback(q Query) model.Product {
    term := "product"
    if len(q.Keywords) > 0 {
        term = q.Keywords[0]
    }
    link := "https://shopee.co.th/search?keyword=" + url.QueryEscape(strings.TrimSpace(q.Raw))
    return model.Product{
        ID:            FallbackProductID,
        Name:          fmt.Sprintf("Search %q on Shopee", term),
        Currency:      "THB",
        MerchantName:  "Shopee",
        MerchantLogo:  shopeeLogo,
        ImageURL:      shopeeImage,
        ProductURL:    link,
        Rating:        5,
        CashbackRate:  0.05,
        AffiliateLink: link,
        InStock:       true,
    }
}
