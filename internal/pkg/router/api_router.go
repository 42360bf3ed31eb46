package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/adamrozichner-star/dpo-saas/app/controllers"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/middleware"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	// LLM calls can be slow; cap the route instead of the whole app.
	api.Post("/qa", middleware.RequireAPISessionAuth,
		timeout.NewWithContext(controllers.HandleQAAsk, 60*time.Second))

	dpo := api.Group("/dpo", middleware.RequireAPISessionAuth, middleware.RequireStaffAPI)
	dpo.Get("/tasks", controllers.HandleDPOTaskList)
	dpo.Post("/tasks/:id/claim", controllers.HandleDPOTaskClaim)
	dpo.Post("/tasks/:id/resolve", controllers.HandleDPOTaskResolve)
	dpo.Post("/tasks/:id/escalate", controllers.HandleDPOTaskEscalate)
}
