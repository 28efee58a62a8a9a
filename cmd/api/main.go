package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-apotek-pos/internal/cache"
	"go-apotek-pos/internal/config"
	"go-apotek-pos/internal/events"
	"go-apotek-pos/internal/kafka"
	"go-apotek-pos/internal/metrics"
	"go-apotek-pos/internal/model"
	"go-apotek-pos/internal/repository"
	"go-apotek-pos/internal/service"
	"go-apotek-pos/internal/ws"
	"go-apotek-pos/pkg/database"
	"go-apotek-pos/pkg/jwt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Default categories every fresh install starts with.
var seedCategories = []string{"Obat Bebas", "Obat Keras", "Suplemen"}

func main() {
	// 1. Config & logger
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Database
	db, err := database.Connect(cfg.DSN(), logger)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Error("failed to migrate database", "err", err)
			os.Exit(1)
		}
	}

	// 3. Optional report cache
	var reportCache *cache.ReportCache
	if cfg.RedisAddr != "" {
		var client *redis.Client
		client, err = cache.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("report cache disabled", "addr", cfg.RedisAddr, "err", err)
		} else {
			defer client.Close()
			reportCache = cache.NewReportCache(client, cfg.ReportCacheTTL)
			logger.Info("report cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.ReportCacheTTL)
		}
	}

	// 4. Event fan-out: websocket clients, plus kafka when configured
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub(logger)
	go hub.Run(hubCtx)

	publisher := events.Multi{hub}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, 5, logger)
		if err != nil {
			logger.Warn("kafka event stream disabled", "err", err)
		} else {
			defer producer.Close()
			publisher = append(publisher, producer)
		}
	}

	// 5. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// 6. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	supplierRepo := repository.NewSupplierRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	userRepo := repository.NewUserRepo(db)

	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	deps := dependencies{
		cfg:      cfg,
		tokens:   tokens,
		userRepo: userRepo,
		hub:      hub,
		registry: registry,
		auth:     service.NewAuthService(userRepo, tokens, publisher, logger),
		catalog: service.NewCatalogService(productRepo, categoryRepo, supplierRepo, publisher, reportCache,
			service.ParseDeletePolicy(cfg.ProductDeletePolicy), logger),
		imports: service.NewImportService(productRepo, categoryRepo, supplierRepo, publisher, reportCache, m, logger),
		sales:   service.NewSaleService(saleRepo, nil, publisher, reportCache, m, logger),
		reports: service.NewReportService(productRepo, saleRepo, reportCache, m,
			cfg.LowStockThreshold, cfg.ExpiryMonths, nil, logger),
	}

	// 7. Seed admin user and default categories
	seed(ctx, logger, cfg, deps.auth, service.NewIdentityResolver(categoryRepo, supplierRepo, nil, "system", logger))

	// 8. HTTP server
	app := newApp(deps)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("server forced to shutdown", "err", err)
	}
	stopHub()
	logger.Info("server exited")
}

// seed creates the admin account and the default categories if they are missing.
func seed(ctx context.Context, logger *slog.Logger, cfg *config.Config, auth service.AuthService, resolver *service.IdentityResolver) {
	admin, err := auth.EnsureUser(ctx, cfg.AdminEmail, cfg.AdminPassword, "Administrator", model.RoleAdmin)
	if err != nil {
		logger.Warn("failed to seed admin user", "email", cfg.AdminEmail, "err", err)
	} else {
		logger.Info("admin user ready", "email", admin.Email)
	}

	for _, name := range seedCategories {
		if _, err := resolver.Resolve(ctx, model.KindCategory, name); err != nil && !errors.Is(err, service.ErrDuplicateName) {
			logger.Warn("failed to seed category", "name", name, "err", err)
		}
	}
}
