package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// ============================================================
// Logger Middleware
// ============================================================

const (
	devFormat  = "[HTTP] ${time} ${status} - ${latency} ${method} ${path} | Content-Type: ${reqHeader:Content-Type}\n"
	prodFormat = "[HTTP] ${time} ${status} ${method} ${path} ${latency}\n"
)

// Logger возвращает middleware логирования запросов; в production формат короче.
// Кадры детектора идут потоком, поэтому путь /frames можно пропустить через skipFrames.
func Logger(environment string, skipFrames bool) fiber.Handler {
	format := devFormat
	if environment == "production" {
		format = prodFormat
	}
	return logger.New(logger.Config{
		Format:     format,
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
		Next: func(c fiber.Ctx) bool {
			return skipFrames && isFramePath(c.Path())
		},
	})
}

func isFramePath(path string) bool {
	const suffix = "/frames"
	return len(path) >= len(suffix) && path[len(path)-len(suffix):] == suffix
}
