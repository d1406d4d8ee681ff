package middleware

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const defaultAllowOrigins = "*"

// NewCORSMiddleware admits the browser client. Origins come from
// CORS_ALLOW_ORIGINS as a comma separated list, "*" when unset.
func NewCORSMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:  allowOrigins(),
		AllowMethods:  strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, " + RequestIDKey,
		ExposeHeaders: RequestIDKey,
		MaxAge:        600,
	})
}

func allowOrigins() string {
	raw := os.Getenv("CORS_ALLOW_ORIGINS")
	if strings.TrimSpace(raw) == "" {
		return defaultAllowOrigins
	}

	origins := make([]string, 0)
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return defaultAllowOrigins
	}
	return strings.Join(origins, ",")
}
