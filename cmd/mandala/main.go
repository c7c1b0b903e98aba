package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"mandala-magic/internal/common/config"
	"mandala-magic/internal/common/middleware"
	"mandala-magic/internal/mandala/discovery"
	"mandala-magic/internal/mandala/engine"
	"mandala-magic/internal/mandala/events"
	"mandala-magic/internal/mandala/handlers"
	"mandala-magic/internal/mandala/raster"
	"mandala-magic/internal/mandala/repository"
	"mandala-magic/internal/mandala/service"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Mandala Service
// ============================================================

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background(), cfg.MigrationsPath); err != nil {
		log.Fatalf("init db: %v", err)
	}

	if err := engine.ValidateSettings(cfg.Drawing.Settings); err != nil {
		log.Fatalf("invalid drawing settings: %v", err)
	}
	if _, err := raster.NewCanvasWithLimit(cfg.CanvasWidth, cfg.CanvasHeight, cfg.MaxCanvasSide); err != nil {
		log.Fatalf("invalid default canvas: %v", err)
	}

	hub := events.NewHub()
	sessionManager := service.NewSessionManager(hub, cfg.Drawing.Settings, cfg.Drawing.PreviewWidth, cfg.Drawing.PreviewHeight)
	sessionManager.SetMaxCanvasSide(cfg.MaxCanvasSide)
	fileStorage := service.NewFileStorage(cfg.ExportDir)
	if cfg.ConfigFile != "" {
		err := config.WatchDrawing(context.Background(), cfg.ConfigFile, func(d config.DrawingConfig) {
			if err := engine.ValidateSettings(d.Settings); err != nil {
				log.Printf("[CONFIG] rejected settings from %s: %v", cfg.ConfigFile, err)
				return
			}
			sessionManager.SetDefaults(d.Settings)
		})
		if err != nil {
			log.Printf("[CONFIG] hot reload disabled: %v", err)
		}
	}
	mandalaHandler := handlers.NewMandalaHandler(repo, sessionManager, fileStorage, cfg.CanvasWidth, cfg.CanvasHeight)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Mandala Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use(middleware.Logger(cfg.Environment, cfg.Environment == "production"))

	// ============================================================
	// Routes
	// ============================================================

	handlers.Register(app, mandalaHandler, repo)

	// ============================================================
	// WebSocket Listener
	// ============================================================

	wsAddr := fmt.Sprintf(":%s", cfg.WSPort)
	wsServer := &http.Server{
		Addr:              wsAddr,
		Handler:           events.Routes(hub, events.NewFrameIngest(sessionManager)),
		ReadHeaderTimeout: time.Duration(cfg.ReadTimeout) * time.Second,
	}
	go func() {
		log.Printf("[EVENTS] WebSocket listener on %s", wsAddr)
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start WebSocket listener: %v", err)
		}
	}()

	// ============================================================
	// Discovery
	// ============================================================

	if cfg.MDNSEnabled {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil {
			log.Fatalf("invalid PORT for mDNS: %v", err)
		}
		server, err := discovery.Advertise(cfg.MDNSInstance, port, cfg.WSPort)
		if err != nil {
			log.Printf("[MDNS] advertise failed: %v", err)
		} else {
			defer server.Shutdown()
		}
	}

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Mandala Service on %s (env: %s, canvas %dx%d)", addr, cfg.Environment, cfg.CanvasWidth, cfg.CanvasHeight)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
