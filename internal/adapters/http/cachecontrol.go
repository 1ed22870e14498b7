package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CacheControlMiddleware sets Cache-Control when the handler did not.
// Map analytics are recomputed on every call and must never be served
// from an intermediary cache.
func CacheControlMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		path := c.Path()
		switch {
		case strings.HasPrefix(path, "/maps"), path == "/graphql":
			c.Set(fiber.HeaderCacheControl, "no-store")
		case path == "/health" || path == "/ready" || path == "/metrics":
			c.Set(fiber.HeaderCacheControl, "no-cache")
		case strings.HasPrefix(path, "/docs"):
			c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
		}
		return err
	}
}
