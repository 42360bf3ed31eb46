package controllers

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/app/repository"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/usercontext"
)

// Israeli company/business registration numbers are 9 digits.
var businessIDPattern = regexp.MustCompile(`^\d{9}$`)

// HandleOnboarding shows and processes the organization questionnaire. The
// onboarding answers are authoritative: they replace the placeholder business
// profile created by a payment-first checkout.
func HandleOnboarding(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	if c.Method() == fiber.MethodPost {
		name := strings.TrimSpace(c.FormValue("org_name"))
		businessID := strings.TrimSpace(c.FormValue("business_id"))
		industry := strings.TrimSpace(c.FormValue("industry"))

		fm := fiber.Map{"type": "error"}

		if name == "" {
			fm["message"] = "יש להזין שם ארגון"
			return flash.WithError(c, fm).Redirect("/onboarding")
		}
		if !businessIDPattern.MatchString(businessID) {
			fm["message"] = "מספר ח.פ חייב להכיל 9 ספרות"
			return flash.WithError(c, fm).Redirect("/onboarding")
		}

		// Reuse the checkout-created placeholder when one exists; the unique
		// owner index guarantees a single row either way.
		org, err := repos.Organization.CreateIfAbsentForOwner(
			models.NewPlaceholderOrganization(uc.UserID, name))
		if err != nil {
			fm["message"] = "שמירת הארגון נכשלה"
			return flash.WithError(c, fm).Redirect("/onboarding")
		}

		if err := repos.Organization.CompleteOnboarding(org.ID, businessID, name, industry); err != nil {
			fm["message"] = "שמירת הפרטים נכשלה"
			return flash.WithError(c, fm).Redirect("/onboarding")
		}

		return flash.WithSuccess(c, fiber.Map{
			"type":    "success",
			"message": "פרטי הארגון נשמרו",
		}).Redirect("/dashboard")
	}

	data := fiber.Map{
		"Title":     "שאלון הצטרפות",
		"Flash":     flash.Get(c),
		"CSRFToken": csrfToken(c),
	}
	org, err := repos.Organization.GetByOwner(uc.UserID)
	if err == nil {
		data["Organization"] = org
		if org.HasPlaceholderBusinessID() {
			data["BusinessID"] = ""
		} else {
			data["BusinessID"] = org.BusinessID
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load organization")
	}

	return c.Render("onboarding", data, "layouts/main")
}
