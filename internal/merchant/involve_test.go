package merchant

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/acp-gateway/internal/search"
)

type involveFake struct {
    auths, offers, xtra atomic.Int32
}

func (f *involveFake) handler(t *testing.T) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path == "/authenticate" {
            f.auths.Add(1)
            assert.NoError(t, r.ParseForm())
            if r.PostForm.Get("secret") != "sek" {
                _, _ = w.Write([]byte(`{"status":"error","message":"bad secret"}`))
                return
            }
            _, _ = w.Write([]byte(`{"status":"success","data":{"token":"tok"}}`))
            return
        }
        if r.Header.Get("Authorization") != "Bearer tok" {
            w.WriteHeader(http.StatusUnauthorized)
            return
        }
        var body map[string]any
        _ = json.NewDecoder(r.Body).Decode(&body)
        switch r.URL.Path {
        case "/offers/all":
            f.offers.Add(1)
            _, _ = w.Write([]byte(`{"status":"success","data":{"data":[
                {"offer_id":10,"offer_name":"Sneaker Hub","categories":"Fashion, Shoes","tracking_link":"https://invol.co/o10","preview_url":"https://sneakerhub.example","logo":"https://logo/10.png"},
                {"offer_id":"11","offer_name":"Gadget World","categories":"Electronics","tracking_link":"https://invol.co/o11"}]}}`))
        case "/shopeextra/all":
            f.xtra.Add(1)
            assert.Equal(t, "high_commission", body["sort"])
            _, _ = w.Write([]byte(`{"status":"success","data":{"data":[
                {"shop_id":99,"shop_name":"Shoes Official","offer_name":"Xtra 12%","shop_type":"Mall","commission_rate":"12","tracking_link":"https://invol.co/x99","shop_link":"https://shopee.co.th/shoes"}]}}`))
        default:
            http.NotFound(w, r)
        }
    })
}

func TestInvolveSearchMergesXtraThenOffers(t *testing.T) {
    fake := &involveFake{}
    srv := httptest.NewServer(fake.handler(t))
    defer srv.Close()

    c := NewInvolveClient(InvolveConfig{BaseURL: srv.URL, Secret: "sek", CacheTTL: time.Minute}, http.DefaultClient)
    got, err := c.Search(context.Background(), search.Parse("shoes"), 5)
    require.NoError(t, err)
    require.Len(t, got, 2)
    assert.Equal(t, "shopee_xtra_99", got[0].ID)
    assert.Equal(t, "Shopee (Mall)", got[0].MerchantName)
    assert.InDelta(t, 0.12, got[0].CashbackRate, 1e-9)
    assert.Equal(t, "https://invol.co/x99", got[0].AffiliateLink)
    assert.Equal(t, "ia_10", got[1].ID)
    assert.Equal(t, "[Offer] Sneaker Hub", got[1].Name)

    // token and offers are cached; shopee xtra is fetched every time
    _, err = c.Search(context.Background(), search.Parse("gadget"), 5)
    require.NoError(t, err)
    assert.Equal(t, int32(1), fake.auths.Load())
    assert.Equal(t, int32(1), fake.offers.Load())
    assert.Equal(t, int32(2), fake.xtra.Load())
}

func TestInvolveAuthFailure(t *testing.T) {
    fake := &involveFake{}
    srv := httptest.NewServer(fake.handler(t))
    defer srv.Close()

    c := NewInvolveClient(InvolveConfig{BaseURL: srv.URL, Secret: "wrong"}, http.DefaultClient)
    _, err := c.Search(context.Background(), search.Parse("shoes"), 5)
    assert.ErrorIs(t, err, ErrInvolveAuth)
}

func TestInvolveEmptyQuerySkipsUpstream(t *testing.T) {
    fake := &involveFake{}
    srv := httptest.NewServer(fake.handler(t))
    defer srv.Close()

    c := NewInvolveClient(InvolveConfig{BaseURL: srv.URL, Secret: "sek"}, http.DefaultClient)
    got, err := c.Search(context.Background(), search.Parse("the best"), 5)
    require.NoError(t, err)
    assert.Empty(t, got)
    assert.Zero(t, fake.auths.Load())
}
