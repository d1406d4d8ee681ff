package middleware

import (
	"ProctorGolang/pkg/utils"
	"time"

	"github.com/gofiber/fiber/v2"
)

const RequestIDKey = "X-Request-ID"

const maxRequestIDLen = 64

// NewRequestIDMiddleware reuses the caller's X-Request-ID when it is a short
// printable token, otherwise issues a ULID. The id is echoed on the response.
func NewRequestIDMiddleware() fiber.Handler {
	ids := utils.New()

	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDKey)
		if !acceptableRequestID(requestID) {
			issued, err := ids.NewULIDFromTimestamp(time.Now())
			if err != nil {
				return err
			}
			requestID = issued
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)

		return c.Next()
	}
}

// acceptableRequestID accepts non-empty printable ASCII without spaces, up to
// maxRequestIDLen bytes.
func acceptableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
