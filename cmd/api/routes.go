package main

import (
	"time"

	"go-apotek-pos/internal/config"
	"go-apotek-pos/internal/handler"
	"go-apotek-pos/internal/middleware"
	"go-apotek-pos/internal/model"
	"go-apotek-pos/internal/repository"
	"go-apotek-pos/internal/service"
	"go-apotek-pos/internal/ws"
	"go-apotek-pos/pkg/jwt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"
)

type dependencies struct {
	cfg      *config.Config
	tokens   *jwt.Manager
	userRepo repository.UserRepository
	hub      *ws.Hub
	registry *prometheus.Registry

	auth    service.AuthService
	catalog service.CatalogService
	imports service.ImportService
	sales   service.SaleService
	reports service.ReportService
}

func newApp(d dependencies) *fiber.App {
	authHandler := handler.NewAuthHandler(d.auth)
	productHandler := handler.NewProductHandler(d.catalog, d.imports, d.reports)
	catalogHandler := handler.NewCatalogHandler(d.catalog)
	saleHandler := handler.NewSaleHandler(d.sales, d.reports)
	dashHandler := handler.NewDashboardHandler(d.reports)

	app := fiber.New(fiber.Config{
		AppName:   d.cfg.AppName,
		BodyLimit: 16 * 1024 * 1024, // CSV uploads
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS
	app.Use(adaptor.HTTPMiddleware(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}).Handler))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	requireAuth := middleware.RequireAuth(d.tokens, d.userRepo)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", limiter.New(limiter.Config{Max: 10, Expiration: time.Minute}), authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)
	auth.Post("/heartbeat", requireAuth, authHandler.Heartbeat)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	protected.Get("/dashboard/stats", dashHandler.GetDashboardStats)

	// Products: static paths before /:id
	protected.Get("/products", productHandler.GetProducts)
	protected.Get("/products/low-stock", productHandler.GetLowStock)
	protected.Get("/products/expiring", productHandler.GetExpiring)
	protected.Get("/products/statistics", productHandler.GetStatistics)
	protected.Get("/products/:id", productHandler.GetProduct)
	protected.Post("/products", adminOnly, productHandler.CreateProduct)
	protected.Post("/products/bulk-import", adminOnly, productHandler.BulkImport)
	protected.Post("/products/import/csv", adminOnly, productHandler.ImportCSV)
	protected.Put("/products/:id", adminOnly, productHandler.UpdateProduct)
	protected.Delete("/products/:id", adminOnly, productHandler.DeleteProduct)

	protected.Get("/categories", catalogHandler.GetCategories)
	protected.Post("/categories", adminOnly, catalogHandler.CreateCategory)
	protected.Delete("/categories/:id", adminOnly, catalogHandler.DeleteCategory)

	protected.Get("/suppliers", catalogHandler.GetSuppliers)
	protected.Post("/suppliers", adminOnly, catalogHandler.CreateSupplier)
	protected.Delete("/suppliers/:id", adminOnly, catalogHandler.DeleteSupplier)

	// Transactions: any authenticated cashier or admin
	protected.Get("/transactions", saleHandler.GetSales)
	protected.Get("/transactions/statistics", saleHandler.GetStatistics)
	protected.Get("/transactions/:id", saleHandler.GetSale)
	protected.Post("/transactions", saleHandler.CreateSale)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		if !d.hub.Attach(c) {
			return
		}
		defer d.hub.Detach(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	return app
}
