package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/adamrozichner-star/dpo-saas/internal/pkg/env"
)

// RequireCronSecret authenticates scheduled-job triggers with a bearer shared
// secret. Fails closed: an unset CRON_SECRET rejects every request.
func RequireCronSecret(c *fiber.Ctx) error {
	secret := strings.TrimSpace(env.GetEnv("CRON_SECRET", ""))
	if secret == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "cron secret not configured",
		})
	}

	auth := strings.TrimSpace(c.Get("Authorization"))
	token := ""
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		token = strings.TrimSpace(auth[7:])
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "invalid cron secret",
		})
	}
	return c.Next()
}
