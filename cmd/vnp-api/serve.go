package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/common/database"
	commonredis "github.com/VNP-Solutions/vnp-scraper-backend-sub000/common/redis"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/crypto"
	httpapi "github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/http"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/repository"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/service"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply schema before serving")
}

// repos 四个 Repository（Postgres 或内存实现）
type repos struct {
	properties    repository.PropertiesRepository
	subPortfolios repository.SubPortfoliosRepository
	portfolios    repository.PortfoliosRepository
	grants        repository.GrantsRepository
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var db *sql.DB
	if cfg.DBEnabled {
		d, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		} else {
			db = d
			defer database.Close(db)
			log.Info("DB enabled for vnp-api")
		}
	}

	var r repos
	var health *httpapi.HealthHandler
	if db != nil {
		if serveMigrate {
			if err := repository.Migrate(ctx, db, log); err != nil {
				return err
			}
		}
		r = repos{
			properties:    repository.NewPostgresPropertiesRepository(db, log),
			subPortfolios: repository.NewPostgresSubPortfoliosRepository(db, log),
			portfolios:    repository.NewPostgresPortfoliosRepository(db, log),
			grants:        repository.NewPostgresGrantsRepository(db, log),
		}
		health = httpapi.NewHealthHandler(db, log)
	} else {
		mem := repository.NewMemoryStore()
		r = repos{properties: mem, subPortfolios: mem, portfolios: mem, grants: mem}
		health = httpapi.NewHealthHandler(nil, log)
	}

	resolver := service.NewPermissionResolver(r.grants, r.properties, r.subPortfolios, log)
	grants := service.NewGrantService(r.grants, log)

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = commonredis.NewRedisClient(&cfg.Redis)
		defer commonredis.Close(redisClient)
		if err := commonredis.Ping(ctx, redisClient); err != nil {
			log.Warn("Redis ping failed, cache and activity stream will log errors", zap.Error(err))
		}
		if cfg.Access.CacheTTL > 0 {
			cache := service.NewRedisAccessCache(store.NewRedisKV(redisClient), cfg.Access.KeyPrefix, cfg.Access.CacheTTL, log)
			resolver.WithCache(cache)
			grants.WithCache(cache)
		}
		grants.WithPublisher(service.NewRedisActivityPublisher(redisClient, cfg.Activity.Stream))
	}

	cipher := crypto.NewCipher(cfg.EncryptionKey)
	if !cipher.Enabled() {
		log.Warn("ENCRYPTION_KEY not set, credentials endpoint is disabled")
	}

	listing := service.NewListingService(resolver, r.properties, r.subPortfolios, r.portfolios, log)
	checker := service.NewAccessChecker(r.grants, r.properties, r.subPortfolios, r.portfolios, log)
	props := service.NewPropertyService(checker, r.properties, cipher, service.NewScraperClient(cfg.Scraper, log), log)

	router := httpapi.NewRouter(log)
	router.RegisterPropertyRoutes(httpapi.NewPropertiesHandler(listing, props, checker, log))
	router.RegisterSubPortfolioRoutes(httpapi.NewSubPortfoliosHandler(listing, checker, log))
	router.RegisterPortfolioRoutes(httpapi.NewPortfoliosHandler(listing, checker, log))
	router.RegisterPermissionRoutes(httpapi.NewPermissionsHandler(grants, log))
	router.RegisterHealthRoutes(health)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx); err != nil {
		log.Error("HTTP server failed", zap.Error(err))
		return err
	}
	return nil
}
