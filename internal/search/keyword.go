package search

import (
    "context"
    "fmt"

    "github.com/iliyamo/acp-gateway/internal/model"
)

// Catalog looks up feed products tagged with a keyword.
type Catalog interface {
    ProductsByKeyword(ctx context.Context, keyword string, limit int) ([]model.Product, error)
}

// KeywordMerchant searches a product feed catalog one keyword at a time.
type KeywordMerchant struct {
    name    string
    catalog Catalog
}

func NewKeywordMerchant(name string, catalog Catalog) *KeywordMerchant {
    return &KeywordMerchant{name: name, catalog: catalog}
}

func (k *KeywordMerchant) Name() string { return k.name }

// Search queries the catalog for each keyword in order, dropping products
// already seen, and stops once 2*limit unique candidates are collected.
// A failing keyword is skipped; the error is only reported when no
// keyword produced anything.
func (k *KeywordMerchant) Search(ctx context.Context, q Query, limit int) ([]model.Product, error) {
    seen := make(map[string]struct{})
    var out []model.Product
    var firstErr error
    for _, kw := range q.Keywords {
        if len(out) >= 2*limit {
            break
        }
        items, err := k.catalog.ProductsByKeyword(ctx, kw, limit)
        if err != nil {
            if firstErr == nil {
                firstErr = fmt.Errorf("keyword %q: %w", kw, err)
            }
            continue
        }
        for _, p := range items {
            if _, dup := seen[p.ID]; dup {
                continue
            }
            seen[p.ID] = struct{}{}
            out = append(out, p)
        }
    }
    if len(out) == 0 && firstErr != nil {
        return nil, firstErr
    }
    return out, nil
}
