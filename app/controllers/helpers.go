package controllers

import "github.com/gofiber/fiber/v2"

// csrfToken reads the token the CSRF middleware stored for this request.
// Routes outside the CSRF group get an empty string.
func csrfToken(c *fiber.Ctx) string {
	if v, ok := c.Locals("csrf").(string); ok {
		return v
	}
	return ""
}
