package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/app/repository"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/session"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/usercontext"
)

func HandleAuthLogin(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		fm := fiber.Map{
			"type": "error",
		}

		// notice: in production you should not inform the user
		// with detailed messages about login failures
		userRepo := repository.GetGlobalFactory().GetUserRepository()
		user, err := userRepo.GetByEmail(strings.TrimSpace(c.FormValue("email")))
		if err != nil {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if !models.CheckPasswordHash(c.FormValue("password"), user.Password) {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if user.Status != models.UserStatusActive {
			fm["message"] = "Account is not active"

			return flash.WithError(c, fm).Redirect("/login")
		}

		sess, err := session.GetSessionStore().Get(c)
		if err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect("/login")
		}

		sess.Set(usercontext.AuthKey, true)
		sess.Set(usercontext.KeyUserID, user.ID)
		sess.Set(usercontext.KeyUsername, user.Name)
		sess.Set(usercontext.KeyRole, user.Role)

		if err := sess.Save(); err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect("/login")
		}

		_ = userRepo.TouchLastLogin(user.ID, time.Now())

		fm = fiber.Map{
			"type":    "success",
			"message": "התחברת בהצלחה",
		}

		return flash.WithSuccess(c, fm).Redirect("/dashboard")
	}

	return c.Render("auth/login", fiber.Map{
		"Title":     "התחברות",
		"Flash":     flash.Get(c),
		"CSRFToken": csrfToken(c),
	}, "layouts/main")
}

func HandleAuthRegister(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		user, err := models.CreateUser(
			strings.TrimSpace(c.FormValue("name")),
			strings.TrimSpace(c.FormValue("email")),
			c.FormValue("password"),
		)
		if err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		if err := repository.GetGlobalFactory().GetUserRepository().Create(user); err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		fm := fiber.Map{
			"type":    "success",
			"message": "נרשמת בהצלחה! אפשר להתחבר",
		}

		return flash.WithSuccess(c, fm).Redirect("/login")
	}

	return c.Render("auth/register", fiber.Map{
		"Title":     "הרשמה",
		"Flash":     flash.Get(c),
		"CSRFToken": csrfToken(c),
	}, "layouts/main")
}

func HandleAuthLogout(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = "logged out (no sess)"

		return flash.WithError(c, fm).Redirect("/login")
	}

	if err := sess.Destroy(); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/login")
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "התנתקת מהמערכת",
	}

	c.Locals(usercontext.KeyFromProtected, false)

	return flash.WithSuccess(c, fm).Redirect("/login")
}
