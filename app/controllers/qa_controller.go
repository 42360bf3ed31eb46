package controllers

import (
	"errors"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/repository"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/database"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/qa"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/usercontext"
)

var (
	qaService *qa.Service
	qaOnce    sync.Once
)

func getQAService() *qa.Service {
	qaOnce.Do(func() {
		qaService = qa.NewService(database.GetDB(), qa.NewLLMClientFromEnv())
	})
	return qaService
}

// HandleQAAsk answers one Amendment-13 question as JSON. The route carries a
// 60s timeout so a slow LLM upstream cannot hold the connection open.
func HandleQAAsk(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	var req struct {
		Question string `json:"question"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "question is required",
		})
	}

	org, err := repository.GetGlobalRepositories().Organization.GetByOwner(uc.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "no organization; complete onboarding first",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load organization",
		})
	}

	answer, err := getQAService().Ask(c.Context(), org, uc.UserID, req.Question)
	if err != nil {
		if errors.Is(err, qa.ErrQuotaExceeded) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "question quota exceeded for this billing cycle",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to answer question",
		})
	}

	return c.JSON(answer)
}
