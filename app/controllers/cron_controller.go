package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/adamrozichner-star/dpo-saas/internal/pkg/jobqueue"
)

// HandleCronBillingSweep is the scheduled-job trigger for the recurring
// billing pass. Auth is enforced by the cron secret middleware; the sweep
// itself runs on the job queue so the HTTP call returns immediately.
func HandleCronBillingSweep(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()
	job, err := queue.EnqueueJob(jobqueue.JobTypeBillingSweep, jobqueue.BillingSweepJobPayload{
		TriggeredBy: "cron",
	}.ToMap())
	if err != nil {
		log.Errorf("[Cron] failed to enqueue billing sweep: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to enqueue billing sweep",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "enqueued",
		"job_id": job.ID,
	})
}

// HandleCronQueueStats reports job queue statistics for monitoring.
func HandleCronQueueStats(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()
	stats, err := queue.GetJobStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read queue stats",
		})
	}
	pending, _ := queue.GetQueueSize(c.Context())
	processing, _ := queue.GetProcessingSize(c.Context())

	return c.JSON(fiber.Map{
		"stats":      stats,
		"pending":    pending,
		"processing": processing,
	})
}
