package stub

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/locker-client/internal/config"
)

// NewServer assembles the stub locker API: the same surface the real backend
// exposes, served from memory so the client can be exercised end-to-end
// without any infrastructure.
func NewServer(cfg config.StubConfig, logger *zap.Logger) *fiber.App {
	store := newMemoryStore(cfg.BcryptCost, cfg.OTPTTL(), cfg.RatePerHour)
	h := &handlers{
		store:  store,
		tokens: NewTokenManager(cfg),
		logger: logger,
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(requestLogger(logger))

	app.Post("/login", h.Login)
	app.Post("/signup", h.Signup)
	app.Post("/refresh", h.Refresh)

	authed := app.Group("", h.requireAuth)
	authed.Get("/me", h.Me)
	authed.Get("/states", h.States)
	authed.Get("/lockers", h.Lockers)
	authed.Post("/items", h.StoreItem)
	authed.Get("/items", h.MyItems)
	authed.Get("/transactions", h.Transactions)
	authed.Post("/lockers/:id/request-otp", h.RequestOTP)
	authed.Post("/lockers/:id/collect", h.Collect)

	admin := authed.Group("", h.requireAdmin)
	admin.Post("/lockers", h.CreateLocker)
	admin.Put("/lockers/:id", h.UpdateLocker)
	admin.Delete("/lockers/:id/force-clear", h.ForceClearLocker)
	admin.Delete("/lockers/:id", h.DeleteLocker)

	return app
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
		return err
	}
}
