package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/app/repository"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/plans"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/usercontext"
)

func HandleStart(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{
		"Title":      "שירות ממונה הגנת פרטיות",
		"IsLoggedIn": usercontext.IsLoggedIn(c),
		"Flash":      flash.Get(c),
	}, "layouts/main")
}

func HandlePricing(c *fiber.Ctx) error {
	return c.Render("pricing", fiber.Map{
		"Title":           "מסלולים ומחירים",
		"IsLoggedIn":      usercontext.IsLoggedIn(c),
		"CSRFToken":       csrfToken(c),
		"BasicMonthly":    plans.MonthlyPrice(plans.TierBasic),
		"BasicAnnual":     plans.Price(plans.TierBasic, true),
		"ExtendedMonthly": plans.MonthlyPrice(plans.TierExtended),
		"ExtendedAnnual":  plans.Price(plans.TierExtended, true),
	}, "layouts/main")
}

func HandleDashboard(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	data := fiber.Map{
		"Title":    "לוח בקרה",
		"Username": uc.Username,
		"Flash":    flash.Get(c),
	}

	org, err := repos.Organization.GetByOwner(uc.UserID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load organization")
		}
		data["HasOrganization"] = false
		return c.Render("dashboard", data, "layouts/main")
	}

	data["HasOrganization"] = true
	data["Organization"] = org
	data["NeedsOnboarding"] = org.LifecycleStatus == models.OrgLifecycleOnboarding || org.HasPlaceholderBusinessID()

	if sub, err := repos.Subscription.GetByOrg(org.ID); err == nil {
		data["Subscription"] = sub
	}
	if docs, err := repos.Document.ListByOrg(org.ID); err == nil {
		data["Documents"] = docs
	}
	if txns, err := repos.Transaction.ListByOrg(org.ID, 10); err == nil {
		data["Transactions"] = txns
	}

	return c.Render("dashboard", data, "layouts/main")
}
