package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/app/repository"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/usercontext"
)

// Internal review queue endpoints. Staff-only (dpo/admin), JSON in and out;
// the dashboard frontend polls these.

func HandleDPOTaskList(c *fiber.Ctx) error {
	tasks, err := repository.GetGlobalRepositories().DPOQueue.ListOpen(c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load tasks",
		})
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

func HandleDPOTaskClaim(c *fiber.Ctx) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid task id"})
	}

	claimed, err := repository.GetGlobalRepositories().DPOQueue.Claim(taskID, usercontext.GetUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to claim task"})
	}
	if !claimed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "task is no longer open"})
	}
	return c.JSON(fiber.Map{"status": "claimed"})
}

func HandleDPOTaskResolve(c *fiber.Ctx) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid task id"})
	}

	var req struct {
		Resolution string `json:"resolution"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Resolution) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "resolution is required"})
	}

	resolved, err := repository.GetGlobalRepositories().DPOQueue.Resolve(
		taskID, usercontext.GetUserID(c), strings.TrimSpace(req.Resolution))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to resolve task"})
	}
	if !resolved {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "task is not claimed by you"})
	}
	return c.JSON(fiber.Map{"status": "resolved"})
}

func HandleDPOTaskEscalate(c *fiber.Ctx) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid task id"})
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Reason) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reason is required"})
	}

	repos := repository.GetGlobalRepositories()
	if _, err := repos.DPOQueue.GetByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load task"})
	}

	if err := repos.DPOQueue.Escalate(taskID, usercontext.GetUserID(c), strings.TrimSpace(req.Reason)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to escalate task"})
	}
	return c.JSON(fiber.Map{"status": "escalated"})
}

func parseTaskID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid task id")
	}
	return uint(id), nil
}
