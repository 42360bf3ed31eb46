package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/adamrozichner-star/dpo-saas/app/models"
)

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID         uint   `json:"user_id"`
	Username       string `json:"username"`
	Role           string `json:"role"`
	OrganizationID uint   `json:"organization_id"`
	IsLoggedIn     bool   `json:"is_logged_in"`
}

// IsStaff reports whether the user may access the internal DPO dashboard.
func (u UserContext) IsStaff() bool {
	return u.Role == models.RoleDPO || u.Role == models.RoleAdmin
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals("USER_CONTEXT"); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// GetOrganizationID returns the current user's organization ID, or 0.
func GetOrganizationID(c *fiber.Ctx) uint {
	return GetUserContext(c).OrganizationID
}
