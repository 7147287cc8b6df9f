package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/acp-gateway/internal/config"
	"github.com/iliyamo/acp-gateway/internal/database"
	"github.com/iliyamo/acp-gateway/internal/handler"
	"github.com/iliyamo/acp-gateway/internal/logging"
	"github.com/iliyamo/acp-gateway/internal/merchant"
	"github.com/iliyamo/acp-gateway/internal/middleware"
	"github.com/iliyamo/acp-gateway/internal/queue"
	"github.com/iliyamo/acp-gateway/internal/repository"
	"github.com/iliyamo/acp-gateway/internal/router"
	"github.com/iliyamo/acp-gateway/internal/search"
	"github.com/iliyamo/acp-gateway/internal/service"
)

// stores is the set of repositories selected by STORE_BACKEND.
type stores struct {
	users     repository.UserStore
	cashbacks repository.CashbackStore
	sessions  repository.SessionStore
	catalog   search.Catalog
	close     func()
}

func openStores(ctx context.Context, cfg config.Config, log zerolog.Logger) (stores, error) {
	switch cfg.StoreBackend {
	case config.BackendMySQL:
		db, err := database.Open(cfg.DB)
		if err != nil {
			return stores{}, err
		}
		return stores{
			users:     repository.NewUserRepo(db),
			cashbacks: repository.NewCashbackRepo(db),
			sessions:  repository.NewSessionRepo(db),
			catalog:   repository.NewProductRepo(db),
			close:     func() { closeSQL(db, log) },
		}, nil
	case config.BackendMongo:
		client, mdb, err := database.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return stores{}, err
		}
		ms := repository.NewMongoStore(mdb)
		if err := ms.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("mongo: ensure indexes failed")
		}
		return stores{
			users:     ms,
			cashbacks: ms,
			sessions:  ms,
			catalog:   ms,
			close:     func() { disconnectMongo(client, log) },
		}, nil
	default:
		mem := repository.NewMemoryStore()
		return stores{users: mem, cashbacks: mem, sessions: mem, catalog: mem, close: func() {}}, nil
	}
}

func closeSQL(db *sql.DB, log zerolog.Logger) {
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("mysql close")
	}
}

func disconnectMongo(c *mongo.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Disconnect(ctx); err != nil {
		log.Warn().Err(err).Msg("mongo disconnect")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("prod")
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("open store")
	}
	defer st.close()

	rdb := config.NewRedisClient(cfg.Redis)
	var revocations repository.RevocationStore = repository.NewMemoryRevocations()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		revocations = repository.NewRedisRevocations(rdb, "revoked")
	} else {
		log.Warn().Msg("redis unavailable: revocations are process-local, cache and rate limiting disabled")
	}

	sessions := service.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL, st.users, st.sessions, revocations, log)
	accounts := service.NewAccountService(st.users, st.cashbacks, sessions, log)

	var publisher service.Publisher = service.NopPublisher{}
	if cfg.AMQP.Enabled {
		amqpPub := service.NewAMQPPublisher(cfg.AMQP.URL, log)
		defer func() { _ = amqpPub.Close() }()
		publisher = amqpPub
		go func() {
			if err := queue.StartCashbackConsumer(ctx, cfg.AMQP.URL, accounts.HandleCashbackEvent, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("cashback consumer stopped")
			}
		}()
	}

	upstream := &http.Client{Timeout: cfg.Merchants.UpstreamTimeout}
	merchants := []search.Merchant{search.NewKeywordMerchant("Shopee", st.catalog)}
	if cfg.Merchants.LazadaEnabled() {
		merchants = append(merchants, merchant.NewLazadaClient(merchant.LazadaConfig{
			BaseURL:   cfg.Merchants.LazadaBaseURL,
			AppKey:    cfg.Merchants.LazadaAppKey,
			AppSecret: cfg.Merchants.LazadaAppSecret,
			UserToken: cfg.Merchants.LazadaUserToken,
		}, upstream))
	}
	if cfg.Merchants.InvolveEnabled() {
		merchants = append(merchants, merchant.NewInvolveClient(merchant.InvolveConfig{
			BaseURL:  cfg.Merchants.InvolveBaseURL,
			Key:      cfg.Merchants.InvolveKey,
			Secret:   cfg.Merchants.InvolveSecret,
			CacheTTL: cfg.Merchants.InvolveCacheTTL,
		}, upstream))
	}
	matcher := search.NewMatcher(log, merchants...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb, log))

	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(accounts, sessions, log),
		Account:  handler.NewAccountHandler(accounts, log),
		Search:   handler.NewSearchHandler(matcher, cfg.PublicBaseURL),
		Redirect: handler.NewRedirectHandler(sessions, accounts, publisher, log),
		Image:    handler.NewImageHandler(upstream, log),
		Postback: handler.NewPostbackHandler(accounts, publisher, cfg.AMQP.Enabled, log),
	}, router.Middleware{
		Verifier:    sessions,
		Emails:      accounts,
		Cache:       cacheMiddleware(cfg, rdb, log),
		PostbackKey: cfg.PostbackKey,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.StoreBackend).Int("merchants", len(merchants)).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}

func cacheMiddleware(cfg config.Config, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
	if rdb == nil || !cfg.Cache.Enabled {
		return nil
	}
	return middleware.NewRedisCache(cfg.Cache, rdb, log)
}
