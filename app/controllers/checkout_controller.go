package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/app/repository"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/env"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/payments"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/plans"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/usercontext"
)

// HandleCheckoutStart opens a payment session at the chosen gateway and
// redirects the owner to its hosted payment page.
func HandleCheckoutStart(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	tier := strings.ToLower(strings.TrimSpace(c.FormValue("tier")))
	providerName := strings.ToLower(strings.TrimSpace(c.FormValue("provider")))
	annual := c.FormValue("billing") == "annual"

	if !plans.IsValid(tier) {
		return flash.WithError(c, fiber.Map{
			"type":    "error",
			"message": "מסלול לא מוכר",
		}).Redirect("/pricing")
	}
	if !payments.IsKnown(providerName) {
		return flash.WithError(c, fiber.Map{
			"type":    "error",
			"message": "ספק סליקה לא נתמך",
		}).Redirect("/pricing")
	}

	user, err := repos.User.GetByID(uc.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load user")
	}

	// Payment-first signups get a placeholder organization; the unique owner
	// index collapses concurrent attempts into one row.
	orgName := strings.TrimSpace(c.FormValue("org_name"))
	if orgName == "" {
		orgName = user.Name
	}
	org, err := repos.Organization.CreateIfAbsentForOwner(
		models.NewPlaceholderOrganization(uc.UserID, orgName))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to prepare organization")
	}

	normalized := plans.Normalize(tier)
	amount := plans.Price(normalized, annual)
	now := time.Now()

	txn := &models.PaymentTransaction{
		ID:             models.NewTransactionID(org.ID, now),
		OrganizationID: org.ID,
		UserID:         uc.UserID,
		Amount:         amount,
		Plan:           tier,
		AnnualBilling:  annual,
		Provider:       providerName,
		Status:         models.TxnStatusPending,
	}
	if err := repos.Transaction.Create(txn); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create transaction")
	}

	provider, err := payments.New(providerName)
	if err != nil {
		log.Errorf("[Checkout] provider %s not configured: %v", providerName, err)
		return fiber.NewError(fiber.StatusInternalServerError, "payment provider is not configured")
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	sess, err := provider.CreateCheckout(c.Context(), payments.CheckoutRequest{
		TransactionID: txn.ID,
		OrgUUID:       org.UUID,
		Tier:          string(normalized),
		Annual:        annual,
		Amount:        amount,
		CustomerEmail: user.Email,
		CustomerName:  user.Name,
		SuccessURL:    base + "/billing/success",
		FailureURL:    base + "/billing/failure",
		CallbackURL:   base + "/webhooks/" + providerName,
	})
	if err != nil {
		log.Errorf("[Checkout] session creation failed at %s: %v", providerName, err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to open payment session")
	}

	if sess.CorrelationCode != "" {
		if err := repos.Transaction.SetCorrelationCode(txn.ID, sess.CorrelationCode); err != nil {
			log.Errorf("[Checkout] failed to store correlation code for %s: %v", txn.ID, err)
		}
	}

	return c.Redirect(sess.RedirectURL, fiber.StatusSeeOther)
}

// HandleCheckoutSuccess is the browser return page; activation itself happens
// on the server-to-server webhook.
func HandleCheckoutSuccess(c *fiber.Ctx) error {
	return c.Render("billing/success", fiber.Map{
		"Title": "התשלום התקבל",
	}, "layouts/main")
}

func HandleCheckoutFailure(c *fiber.Ctx) error {
	return c.Render("billing/failure", fiber.Map{
		"Title": "התשלום נכשל",
	}, "layouts/main")
}
