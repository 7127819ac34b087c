package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/utils"

	"tokoku_backend/internals/configs"
	database "tokoku_backend/internals/databases"
	"tokoku_backend/internals/features/payment/gateway"
	scheduler "tokoku_backend/internals/features/payment/reconciliation/scheduler"
	middlewares "tokoku_backend/internals/middlewares"
	routes "tokoku_backend/internals/route"
)

func main() {
	configs.LoadEnv()
	cfg := configs.LoadPaymentConfig()

	app := fiber.New(fiber.Config{
		// 🚀 JSON super cepat
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage: true,
		ProxyHeader:           fiber.HeaderXForwardedFor,
		// X-Forwarded-For hanya dipercaya dari proxy di TRUSTED_PROXIES;
		// default kosong supaya IP allow-list webhook tidak bisa dispoof
		EnableTrustedProxyCheck: true,
		TrustedProxies:          configs.TrustedProxies(),
	})

	// ⚙️ middleware dasar + performa
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())

	// 🔎 Request-ID + timing (observability ringan)
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUID()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)
		start := time.Now()
		err := c.Next()
		dur := time.Since(start)
		log.Printf("[REQ] id=%s %s %s status=%d dur=%s", id, c.Method(), c.OriginalURL(), c.Response().StatusCode(), dur)
		return err
	})

	middlewares.SetupMiddlewares(app)

	// 🔌 DB connect + pool + migrasi + warm-up
	database.ConnectDB()
	database.TunePool()
	database.MigrateModels()
	database.WarmUpQueries()

	// ✅ Gateway client (verify + initialize)
	gatewayClient := gateway.NewClient(cfg)

	// ❤️ Health check (anti-cold start)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	// ✅ Routes + wiring engine
	sweeper := routes.SetupRoutes(app, database.DB, cfg, gatewayClient)

	// ⏱ sweep rekonsiliasi berjalan berdampingan dengan traffic webhook;
	// balapan di reference yang sama diselesaikan oleh state machine
	schedCtx, stopSched := context.WithCancel(context.Background())
	scheduler.StartReconciliationScheduler(schedCtx, sweeper, cfg.SweepInterval)

	// 🔒 Keep-Alive & timeout koneksi server
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	// Start server non-blocking
	go func() {
		log.Printf("✅ Listening on :%s", port)
		if err := app.Listen("0.0.0.0:" + port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown + tutup pool DB
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stopSched()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	if sqlDB, err := database.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
