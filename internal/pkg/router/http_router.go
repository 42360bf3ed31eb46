package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/adamrozichner-star/dpo-saas/app/controllers"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/env"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/middleware"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/session"
)

type HttpRouter struct {
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func loggedInMiddleware(c *fiber.Ctx) error {
	// UserContextMiddleware already set all user context; this is a marker
	// for routes that render differently for members and guests.
	return c.Next()
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/pricing", loggedInMiddleware, controllers.HandlePricing)

	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Payment gateway webhooks (no CSRF, signature-verified in controller,
	// always answered with HTTP 200)
	app.Post("/webhooks/cardcom", controllers.HandleCardcomWebhook)
	app.Post("/webhooks/tranzila", controllers.HandleTranzilaWebhook)
	app.Post("/webhooks/hyp", controllers.HandleHYPWebhook)
	app.Post("/webhooks/lemonsqueezy", controllers.HandleLemonSqueezyWebhook)

	// Scheduled-job triggers, bearer-secret authenticated
	cron := app.Group("/cron", middleware.RequireCronSecret)
	cron.Post("/billing-sweep", controllers.HandleCronBillingSweep)
	cron.Get("/queue-stats", controllers.HandleCronQueueStats)
}

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", loggedInMiddleware, controllers.HandleStart)
	group.Get("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Get("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)

	group.Get("/dashboard", middleware.RequireAuth, controllers.HandleDashboard)

	group.Get("/onboarding", middleware.RequireAuth, controllers.HandleOnboarding)
	group.Post("/onboarding", middleware.RequireAuth, controllers.HandleOnboarding)

	group.Post("/checkout", middleware.RequireAuth, controllers.HandleCheckoutStart)
	group.Get("/billing/success", loggedInMiddleware, controllers.HandleCheckoutSuccess)
	group.Get("/billing/failure", loggedInMiddleware, controllers.HandleCheckoutFailure)

	group.Get("/documents", middleware.RequireAuth, controllers.HandleDocumentList)
	group.Post("/documents/generate", middleware.RequireAuth, controllers.HandleDocumentGenerate)
	group.Get("/documents/:uuid", middleware.RequireAuth, controllers.HandleDocumentView)
}
