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
	"github.com/sourcegraph/conc"

	"github.com/iliyamo/toll-settlement/internal/config"
	"github.com/iliyamo/toll-settlement/internal/database"
	"github.com/iliyamo/toll-settlement/internal/handler"
	"github.com/iliyamo/toll-settlement/internal/ingest"
	"github.com/iliyamo/toll-settlement/internal/logger"
	"github.com/iliyamo/toll-settlement/internal/middleware"
	"github.com/iliyamo/toll-settlement/internal/model"
	"github.com/iliyamo/toll-settlement/internal/queue"
	"github.com/iliyamo/toll-settlement/internal/repository"
	"github.com/iliyamo/toll-settlement/internal/reseed"
	"github.com/iliyamo/toll-settlement/internal/router"
	"github.com/iliyamo/toll-settlement/internal/settlement"
	"github.com/iliyamo/toll-settlement/internal/utils"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("database connection failed", err, map[string]interface{}{"db": database.Describe(cfg)})
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal("schema migration failed", err, nil)
		}
		log.Info("schema migrated", nil)
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable; cache, rate limiting and the shared import lock are disabled", nil)
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	if err := bootstrapAdmin(ctx, cfg, users); err != nil {
		log.Fatal("admin bootstrap failed", err, map[string]interface{}{"username": cfg.AdminUsername})
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.RabbitEnabled {
		publisher = queue.NewRabbitPublisher(cfg.RabbitURL, log)
	}

	var background conc.WaitGroup
	if cfg.RabbitEnabled && cfg.RabbitConsumer {
		consumer := &queue.Consumer{URL: cfg.RabbitURL, Dir: cfg.EventLogDir, Log: log}
		background.Go(func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", err, nil)
			}
		})
	}
	background.Go(func() { purgeTokens(ctx, tokens, log) })

	e := newServer(cfg, db, rdb, users, tokens, publisher, log)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", map[string]interface{}{"addr": addr, "env": cfg.Env})
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", err, nil)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", err, nil)
	}
	background.Wait()
	log.Info("stopped", nil)
}

// newServer wires repositories, engines and handlers into an echo instance.
func newServer(cfg config.Config, db *sql.DB, rdb *redis.Client, users *repository.UserRepo, tokens *repository.TokenRepo,
	publisher queue.Publisher, log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit(cfg.BodyLimit))

	cacheCfg := config.LoadCacheConfig()
	stations := repository.NewStationRepo(db)

	engine := settlement.NewEngine(repository.NewSettlementRepo(db), cfg.ReportTimeout)
	pipeline := &ingest.Pipeline{
		Writer:    repository.NewPassRepo(db),
		Workers:   cfg.ImportWorkers,
		HasHeader: true,
		Logger:    log,
	}
	controller := reseed.NewController(repository.NewReseedRepo(db), cfg.StationsFile, cfg.ImportTimeout, log)

	guards := router.Guards{
		Auth:        middleware.TokenAuth(tokens),
		LoginLimit:  middleware.NewRateLimit(config.LoadLoginRateLimitConfig(), rdb),
		ReportLimit: middleware.NewRateLimit(config.LoadReportRateLimitConfig(), rdb),
		AdminLimit:  middleware.NewRateLimit(config.LoadAdminRateLimitConfig(), rdb),
		Cache:       middleware.NewRedisCache(cacheCfg, rdb),
		ImportLock:  middleware.NewImportLock(rdb, cfg.ImportLockTTL),
	}

	router.RegisterRoutes(e)
	api := e.Group("/api", middleware.NewRateLimit(config.LoadRateLimitConfig(), rdb))
	router.RegisterAuth(api, handler.NewAuthHandler(users, tokens, cfg.TokenTTL), guards)
	router.RegisterReports(api, handler.NewSettlementHandler(engine), guards)
	router.RegisterCatalog(api, &handler.CatalogHandler{
		CompanyRepo: repository.NewCompanyRepo(db),
		StationRepo: stations,
	})
	router.RegisterAdmin(api, &handler.AdminHandler{
		Ingest:        pipeline,
		Reseed:        controller,
		Users:         users,
		Events:        publisher,
		Cache:         middleware.NewCacheInvalidator(cacheCfg, rdb),
		PassesFile:    cfg.PassesFile,
		ImportTimeout: cfg.ImportTimeout,
		BcryptCost:    cfg.BcryptCost,
		Log:           log.WithComponent("admin"),
	}, &handler.HealthHandler{
		Repo:         repository.NewHealthRepo(db),
		DBConnection: database.Describe(cfg),
	}, guards)
	return e
}

// bootstrapAdmin creates or refreshes the ADMIN_USERNAME account so a fresh
// deployment can log in and load reference data.
func bootstrapAdmin(ctx context.Context, cfg config.Config, users *repository.UserRepo) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return users.Upsert(ctx, cfg.AdminUsername, hash, model.RoleAdmin, "")
}

// purgeTokens deletes expired auth tokens once an hour.
func purgeTokens(ctx context.Context, tokens *repository.TokenRepo, log *logger.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := tokens.PurgeExpired(pctx)
			cancel()
			if err != nil {
				log.Warn("token purge failed", map[string]interface{}{"error": err.Error()})
			} else if n > 0 {
				log.Debug("expired tokens purged", map[string]interface{}{"count": n})
			}
		}
	}
}
