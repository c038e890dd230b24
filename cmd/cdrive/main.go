package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"cdrive/internal/api"
	"cdrive/internal/config"
	"cdrive/internal/http/handlers"
	applog "cdrive/internal/log"
	"cdrive/internal/pkg/clock"
	"cdrive/internal/services"
	"cdrive/internal/storage"
)

type rootStore interface {
	storage.Store
	Close() error
}

func openStore(cfg config.Config) (rootStore, error) {
	if cfg.StoreBackend == "redis" {
		return storage.OpenRedis(cfg.RedisURL)
	}
	return storage.OpenSQLite(cfg.DBDSN)
}

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.New(cfg.APIBaseURL, cfg.HTTPTimeout)
	deps := services.Deps{
		Store:        store,
		API:          client,
		Clock:        clock.RealClock{},
		PromptTTL:    cfg.LoginPromptTTL,
		PollInterval: cfg.AdminPollInterval,
		NoticeTTL:    cfg.NoticeTTL,
	}
	profiles := handlers.NewProfiles(ctx, func(ctx context.Context, sid string) *services.Storefront {
		return services.NewStorefront(ctx, sid, deps)
	}, handlers.WithMaxProfiles(cfg.MaxProfiles), handlers.WithProfileIdle(cfg.ProfileIdle))
	defer profiles.Close()

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	// Global body size guard; admin uploads carry an image
	app.Server().MaxRequestBodySize = 6 << 20

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/healthz"
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "header:X-Csrf-Token",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"header": c.Get("X-Csrf-Token") != ""})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Security check failed. Please refresh and try again."})
		},
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "profiles": profiles.Len()})
	})

	handlers.NewDeps(profiles).Mount(app)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Page not found"})
	})

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	log.Printf("[server] listening on :%s (api %s, store %s)", cfg.Port, client.BaseURL(), cfg.StoreBackend)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("[server] %v", err)
	}
}
