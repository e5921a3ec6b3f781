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

	"smart_attendance_backend/internals/configs"
	database "smart_attendance_backend/internals/databases"
	middlewares "smart_attendance_backend/internals/middlewares"
	routes "smart_attendance_backend/internals/route"
	"smart_attendance_backend/internals/seeds"
)

func main() {
	configs.LoadEnv()
	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}

	app := fiber.New(fiber.Config{
		// 🚀 fast JSON
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
		ReadTimeout:             cfg.Server.ReadTimeout,
		WriteTimeout:            cfg.Server.WriteTimeout,
		IdleTimeout:             cfg.Server.IdleTimeout,
	})

	middlewares.SetupMiddlewares(app, cfg)

	// 🔌 DB connect + pool + schema + warm-up
	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	database.TunePool(db, cfg.Database)
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("❌ %v", err)
	}
	database.WarmUpQueries(db)

	if cfg.Seed.Run {
		if err := seeds.RunAllSeeds(db, cfg.Seed.RosterPath); err != nil {
			log.Fatalf("❌ seeds: %v", err)
		}
	}

	// ✅ Routes
	routes.SetupRoutes(app, db, cfg)

	// Start server non-blocking
	go func() {
		log.Printf("✅ Listening on :%s", cfg.Server.Port)
		if err := app.Listen("0.0.0.0:" + cfg.Server.Port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown: drain in-flight stops before closing the pool
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Engine.ReconcileTimeout+5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	if err := database.Close(db); err != nil {
		log.Printf("db close: %v", err)
	}
}
