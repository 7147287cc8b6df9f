package handler_test

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "net/url"
    "strings"
    "sync"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/acp-gateway/internal/handler"
    "github.com/iliyamo/acp-gateway/internal/model"
    "github.com/iliyamo/acp-gateway/internal/queue"
    "github.com/iliyamo/acp-gateway/internal/repository"
    "github.com/iliyamo/acp-gateway/internal/router"
    "github.com/iliyamo/acp-gateway/internal/search"
    "github.com/iliyamo/acp-gateway/internal/service"
)

const (
    testSecret  = "test-secret"
    postbackKey = "pb-key"
    baseURL     = "https://gw.example"
)

type recordingPublisher struct {
    mu        sync.Mutex
    clicks    []queue.ClickEvent
    cashbacks []queue.CashbackEvent
}

func (p *recordingPublisher) PublishClick(_ context.Context, ev queue.ClickEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.clicks = append(p.clicks, ev)
    return nil
}

func (p *recordingPublisher) PublishCashback(_ context.Context, ev queue.CashbackEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.cashbacks = append(p.cashbacks, ev)
    return nil
}

type app struct {
    e        *echo.Echo
    store    *repository.MemoryStore
    sessions *service.SessionManager
    pub      *recordingPublisher
    image    *handler.ImageHandler
}

func newApp(t *testing.T) *app {
    t.Helper()
    log := zerolog.Nop()
    store := repository.NewMemoryStore()
    sessions := service.NewSessionManager(testSecret, 0, store, store, repository.NewMemoryRevocations(), log)
    accounts := service.NewAccountService(store, store, sessions, log)
    pub := &recordingPublisher{}
    matcher := search.NewMatcher(log, search.NewKeywordMerchant("Shopee", store))
    image := handler.NewImageHandler(http.DefaultClient, log)

    e := echo.New()
    router.Register(e, router.Handlers{
        Auth:     handler.NewAuthHandler(accounts, sessions, log),
        Account:  handler.NewAccountHandler(accounts, log),
        Search:   handler.NewSearchHandler(matcher, baseURL+"/"),
        Redirect: handler.NewRedirectHandler(sessions, accounts, pub, log),
        Image:    image,
        Postback: handler.NewPostbackHandler(accounts, pub, false, log),
    }, router.Middleware{
        Verifier:    sessions,
        Emails:      accounts,
        PostbackKey: postbackKey,
    })
    return &app{e: e, store: store, sessions: sessions, pub: pub, image: image}
}

func (a *app) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, target, strings.NewReader(body))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    } else {
        req = httptest.NewRequest(method, target, nil)
    }
    for i := 0; i+1 < len(headers); i += 2 {
        req.Header.Set(headers[i], headers[i+1])
    }
    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, req)
    return rec
}

type loginBody struct {
    Message      string     `json:"message"`
    SessionToken string     `json:"session_token"`
    User         model.User `json:"user"`
    IsNewUser    bool       `json:"is_new_user"`
}

func (a *app) login(t *testing.T, body string) loginBody {
    t.Helper()
    rec := a.do(http.MethodPost, "/login", body)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    var out loginBody
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
    return out
}

func TestLogin_CreatesThenReuses(t *testing.T) {
    a := newApp(t)

    first := a.login(t, `{"email":"Alice@Example.com"}`)
    assert.True(t, first.IsNewUser)
    assert.Equal(t, "Account created", first.Message)
    assert.Equal(t, "alice@example.com", first.User.Email)
    assert.Equal(t, 100, first.User.GoPoints)
    assert.Equal(t, model.TierBronze, first.User.GoTier)
    assert.NotEmpty(t, first.SessionToken)

    second := a.login(t, `{"email":"alice@example.com"}`)
    assert.False(t, second.IsNewUser)
    assert.Equal(t, "Login successful", second.Message)
    assert.Equal(t, first.User.ID, second.User.ID)
}

func TestLogin_Validation(t *testing.T) {
    a := newApp(t)

    cases := map[string]string{
        "no identity":    `{}`,
        "bad email":      `{"email":"not-an-email"}`,
        "bad phone":      `{"phone":"12ab"}`,
        "malformed json": `{"email":`,
    }
    for name, body := range cases {
        t.Run(name, func(t *testing.T) {
            rec := a.do(http.MethodPost, "/login", body)
            assert.Equal(t, http.StatusBadRequest, rec.Code)
        })
    }
}

func TestLinkWallet(t *testing.T) {
    a := newApp(t)

    rec := a.do(http.MethodPost, "/linkWallet", `{"wallet_address":"0x123"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = a.do(http.MethodPost, "/linkWallet", `{"wallet_address":"0xAbCdEf0123456789abcdef0123456789ABCDEF01"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    var out loginBody
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
    assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", out.User.WalletAddress)
    assert.True(t, out.IsNewUser)

    rec = a.do(http.MethodPost, "/linkWallet", `{"wallet_address":"0xabcdef0123456789ABCDEF0123456789abcdef01"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    var again loginBody
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
    assert.Equal(t, out.User.ID, again.User.ID)
    assert.False(t, again.IsNewUser)
}

func TestProfile_TokenAndEmail(t *testing.T) {
    a := newApp(t)
    l := a.login(t, `{"email":"bob@example.com"}`)

    rec := a.do(http.MethodGet, "/user/profile", "", "Authorization", "Bearer "+l.SessionToken)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
    assert.Contains(t, rec.Body.String(), l.User.ID)

    rec = a.do(http.MethodGet, "/user/profile?user_email=bob@example.com", "")
    assert.Equal(t, http.StatusOK, rec.Code)

    rec = a.do(http.MethodGet, "/user/profile?user_email=nobody@example.com", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = a.do(http.MethodGet, "/user/profile", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = a.do(http.MethodGet, "/user/profile?session_token=garbage", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnlink_RevokesSession(t *testing.T) {
    a := newApp(t)
    l := a.login(t, `{"phone":"+66 81 234 5678"}`)

    rec := a.do(http.MethodPost, "/unlink", `{}`)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = a.do(http.MethodPost, "/unlink", `{"session_token":"`+l.SessionToken+`"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), "Session terminated")

    rec = a.do(http.MethodGet, "/user/profile", "", "Authorization", "Bearer "+l.SessionToken)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.Contains(t, rec.Body.String(), "revoked")

    rec = a.do(http.MethodPost, "/unlink", `{"session_token":"`+l.SessionToken+`"}`)
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRedirect_TagsStoredUser(t *testing.T) {
    a := newApp(t)
    l := a.login(t, `{"email":"carol@example.com"}`)

    target := url.QueryEscape("https://shop.example/item")
    rec := a.do(http.MethodGet, "/redirect?url="+target+"&session_token="+l.SessionToken, "")
    require.Equal(t, http.StatusFound, rec.Code)
    assert.Equal(t, "https://shop.example/item?sub_id="+l.User.ID, rec.Header().Get("Location"))

    rec = a.do(http.MethodGet, "/redirect?url="+target+"&u="+l.SessionToken, "")
    assert.Equal(t, "https://shop.example/item?sub_id="+l.User.ID, rec.Header().Get("Location"))

    rec = a.do(http.MethodGet, "/redirect?url="+target+"&user_email=carol@example.com", "")
    assert.Equal(t, "https://shop.example/item?sub_id="+l.User.ID, rec.Header().Get("Location"))

    require.Len(t, a.pub.clicks, 3)
    assert.Equal(t, l.User.ID, a.pub.clicks[0].UserID)
}

func TestRedirect_KeepsMerchantQueryVerbatim(t *testing.T) {
    a := newApp(t)
    l := a.login(t, `{"email":"frank@example.com"}`)

    target := url.QueryEscape("https://shop.example/item?z=1&cb=a;b&deeplink&q=a%20b")
    rec := a.do(http.MethodGet, "/redirect?url="+target+"&session_token="+l.SessionToken, "")
    require.Equal(t, http.StatusFound, rec.Code)
    assert.Equal(t, "https://shop.example/item?z=1&cb=a;b&deeplink&q=a%20b&sub_id="+l.User.ID, rec.Header().Get("Location"))
}

func TestRedirect_UntaggedWhenUnknown(t *testing.T) {
    a := newApp(t)
    tok, err := a.sessions.Issue(context.Background(), model.User{ID: "ghost", Email: "ghost@example.com"})
    require.NoError(t, err)

    target := url.QueryEscape("https://shop.example/item?a=1")
    for _, q := range []string{"", "&session_token=" + tok.Token, "&session_token=garbage"} {
        rec := a.do(http.MethodGet, "/redirect?url="+target+q, "")
        require.Equal(t, http.StatusFound, rec.Code)
        assert.Equal(t, "https://shop.example/item?a=1", rec.Header().Get("Location"))
    }
}

func TestRedirect_RejectsBadTargets(t *testing.T) {
    a := newApp(t)
    for _, q := range []string{"", "?url=", "?url=" + url.QueryEscape("javascript:alert(1)"), "?url=" + url.QueryEscape("/relative")} {
        rec := a.do(http.MethodGet, "/redirect"+q, "")
        assert.Equal(t, http.StatusBadRequest, rec.Code, q)
    }
}

func TestImage(t *testing.T) {
    upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        switch r.URL.Path {
        case "/missing":
            http.NotFound(w, r)
            return
        case "/huge":
            w.Header().Set("Content-Type", "image/jpeg")
            _, _ = w.Write(make([]byte, 10<<20+1))
            return
        }
        w.Header().Set("Content-Type", "image/png")
        _, _ = w.Write([]byte("PNG"))
    }))
    defer upstream.Close()

    a := newApp(t)

    rec := a.do(http.MethodGet, "/image", "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = a.do(http.MethodGet, "/image?url="+url.QueryEscape("https://evil.example/cf.shopee.co.th/x.jpg"), "")
    assert.Equal(t, http.StatusForbidden, rec.Code)

    a.image.Allowed = func(string) bool { return true }

    rec = a.do(http.MethodGet, "/image?url="+url.QueryEscape(upstream.URL+"/ok.png"), "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
    assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
    assert.Equal(t, "PNG", rec.Body.String())

    rec = a.do(http.MethodGet, "/image?url="+url.QueryEscape(upstream.URL+"/missing"), "")
    assert.Equal(t, http.StatusBadGateway, rec.Code)

    rec = a.do(http.MethodGet, "/image?url="+url.QueryEscape(upstream.URL+"/huge"), "")
    assert.Equal(t, http.StatusBadGateway, rec.Code)
    assert.Contains(t, rec.Body.String(), "too large")
}

func TestPostback(t *testing.T) {
    a := newApp(t)
    l := a.login(t, `{"email":"dave@example.com"}`)
    body := `{"sub_id":"` + l.User.ID + `","amount":12.5,"conversion_id":"conv-1"}`

    rec := a.do(http.MethodPost, "/postback", body)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = a.do(http.MethodPost, "/postback", body, "X-Postback-Key", postbackKey)
    require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

    rec = a.do(http.MethodPost, "/postback", body, "X-Postback-Key", postbackKey)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), "duplicate")

    rec = a.do(http.MethodPost, "/postback", `{"sub_id":"ghost","amount":1}`, "X-Postback-Key", postbackKey)
    assert.Equal(t, http.StatusNotFound, rec.Code)

    rec = a.do(http.MethodPost, "/postback", `{"sub_id":"`+l.User.ID+`","amount":0}`, "X-Postback-Key", postbackKey)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = a.do(http.MethodPost, "/postback", `{"sub_id":"`+l.User.ID+`","amount":0.004}`, "X-Postback-Key", postbackKey)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = a.do(http.MethodGet, "/getCashback", "", "Authorization", "Bearer "+l.SessionToken)
    require.Equal(t, http.StatusOK, rec.Code)
    var out struct {
        UserID  string `json:"user_id"`
        Summary struct {
            PendingAmount     float64 `json:"pending_amount"`
            TransactionsCount int     `json:"transactions_count"`
        } `json:"summary"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
    assert.Equal(t, l.User.ID, out.UserID)
    assert.InDelta(t, 12.5, out.Summary.PendingAmount, 0.001)
    assert.Equal(t, 1, out.Summary.TransactionsCount)

    rec = a.do(http.MethodGet, "/user/cashback", "", "Authorization", "Bearer "+l.SessionToken)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), "conv-1")
}

func TestSearchProducts(t *testing.T) {
    a := newApp(t)
    a.store.AddProduct(model.Product{
        ID:            "p1",
        Name:          "Mechanical Keyboard",
        Price:         1500,
        Rating:        4.8,
        ImageURL:      "https://cf.shopee.co.th/file/abc",
        AffiliateLink: "https://shopee.co.th/p1",
        InStock:       true,
    }, "keyboard")
    l := a.login(t, `{"email":"erin@example.com"}`)

    rec := a.do(http.MethodGet, "/searchProducts", "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = a.do(http.MethodGet, "/searchProducts?query=keyboard&limit=abc", "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = a.do(http.MethodGet, "/searchProducts?query=keyboard&session_token="+l.SessionToken, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var out struct {
        TotalResults int    `json:"total_results"`
        Source       string `json:"source"`
        Results      []struct {
            ID               string `json:"product_id"`
            AffiliateLink    string `json:"affiliate_link"`
            ImageURL         string `json:"image_url"`
            ImageURLOriginal string `json:"image_url_original"`
        } `json:"results"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
    require.Equal(t, 1, out.TotalResults)
    assert.Equal(t, search.SourceCatalog, out.Source)
    r := out.Results[0]
    assert.Equal(t, "p1", r.ID)
    assert.True(t, strings.HasPrefix(r.AffiliateLink, baseURL+"/redirect?"))
    link, err := url.Parse(r.AffiliateLink)
    require.NoError(t, err)
    assert.Equal(t, "https://shopee.co.th/p1", link.Query().Get("url"))
    assert.Equal(t, l.SessionToken, link.Query().Get("session_token"))
    assert.Equal(t, "https://cf.shopee.co.th/file/abc", r.ImageURLOriginal)
    assert.True(t, strings.HasPrefix(r.ImageURL, baseURL+"/image?url="))
}

func TestSearchProducts_FallbackLink(t *testing.T) {
    a := newApp(t)

    rec := a.do(http.MethodGet, "/searchProducts?query=unobtainium&user_email=x@example.com", "")
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = a.do(http.MethodGet, "/searchProducts?query=unobtainium", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), search.FallbackProductID)
    assert.Contains(t, rec.Body.String(), search.SourceShopeeSearch)
}

func TestGifts(t *testing.T) {
    a := newApp(t)
    rec := a.do(http.MethodGet, "/getGifts?recipient=mom&budget=1000", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), "Christmas gift for mom under 1000")
}

func TestHealth(t *testing.T) {
    a := newApp(t)
    rec := a.do(http.MethodGet, "/healthz", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
