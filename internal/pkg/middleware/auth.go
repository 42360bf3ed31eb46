package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/adamrozichner-star/dpo-saas/internal/pkg/usercontext"
)

// RequireAuth ensures a logged-in web session; redirects to /login if missing.
func RequireAuth(c *fiber.Ctx) error {
	v := c.Locals(usercontext.KeyFromProtected)
	loggedIn := false
	if b, ok := v.(bool); ok {
		loggedIn = b
	}
	if !loggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireStaff ensures a logged-in dpo or admin; redirects otherwise.
func RequireStaff(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	if !uc.IsStaff() {
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireStaffAPI is the JSON variant of RequireStaff.
func RequireStaffAPI(c *fiber.Ctx) error {
	if !usercontext.GetUserContext(c).IsStaff() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "staff role required",
		})
	}
	return c.Next()
}

// RequireAPISessionAuth ensures a logged-in session for API routes and returns JSON 401 instead of redirect.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}
