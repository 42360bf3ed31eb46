package controllers

import (
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/adamrozichner-star/dpo-saas/app/models"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/database"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/jobqueue"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/payments"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/reconcile"
)

var (
	reconcileService *reconcile.Service
	reconcileOnce    sync.Once
)

func getReconcileService() *reconcile.Service {
	reconcileOnce.Do(func() {
		notifier := jobqueue.NewQueueNotifier(jobqueue.GetManager().GetQueue())
		reconcileService = reconcile.NewServiceFromDB(database.GetDB(), notifier)
	})
	return reconcileService
}

// Webhook endpoints answer HTTP 200 no matter what: gateways treat anything
// else as a delivery failure and retry-storm the endpoint. Errors are carried
// in the JSON body instead.

func HandleCardcomWebhook(c *fiber.Ctx) error {
	return handleGatewayWebhook(c, models.ProviderCardcom)
}

func HandleTranzilaWebhook(c *fiber.Ctx) error {
	return handleGatewayWebhook(c, models.ProviderTranzila)
}

func HandleHYPWebhook(c *fiber.Ctx) error {
	return handleGatewayWebhook(c, models.ProviderHYP)
}

func HandleLemonSqueezyWebhook(c *fiber.Ctx) error {
	return handleGatewayWebhook(c, models.ProviderLemonSqueezy)
}

func handleGatewayWebhook(c *fiber.Ctx, providerName string) error {
	svc := getReconcileService()
	body := c.Body()

	provider, err := payments.New(providerName)
	if err != nil {
		log.Errorf("[Webhook] %s not configured: %v", providerName, err)
		return webhookError(c, "provider not configured")
	}

	res, err := provider.ParseCallback(c.Context(), payments.Callback{
		Body:   append([]byte(nil), body...),
		Header: func(key string) string { return c.Get(key) },
	})
	if err != nil {
		log.Warnf("[Webhook] %s payload rejected: %v", providerName, err)
		// Persist malformed deliveries for forensics before acknowledging.
		if created, event, recErr := svc.RecordWebhookEvent(c.Context(), reconcile.WebhookEventInput{
			Provider:    providerName,
			PayloadJSON: string(body),
		}); recErr == nil && created {
			_ = svc.MarkWebhookProcessed(c.Context(), event.ID, err)
		}
		return webhookError(c, "invalid payload")
	}

	created, event, err := svc.RecordWebhookEvent(c.Context(), reconcile.WebhookEventInput{
		Provider:        res.Provider,
		ProviderEventID: res.EventID,
		EventType:       res.EventType,
		PayloadJSON:     res.RawPayload,
		SignatureValid:  res.SignatureValid,
	})
	if err != nil {
		log.Errorf("[Webhook] %s event persistence failed: %v", providerName, err)
		return webhookError(c, "internal error")
	}
	if !created {
		// Same provider event id seen before; acknowledge without reapplying.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "duplicate": true})
	}

	if !res.SignatureValid {
		sigErr := errors.New("signature verification failed")
		_ = svc.MarkWebhookProcessed(c.Context(), event.ID, sigErr)
		log.Warnf("[Webhook] %s delivery with invalid signature", providerName)
		return webhookError(c, "invalid signature")
	}

	report, err := svc.HandleCallback(c.Context(), res)
	if err != nil {
		_ = svc.MarkWebhookProcessed(c.Context(), event.ID, err)
		if errors.Is(err, reconcile.ErrTransactionNotFound) {
			return webhookError(c, "Payment not found")
		}
		log.Errorf("[Webhook] %s reconciliation failed: %v", providerName, err)
		return webhookError(c, "internal error")
	}

	_ = svc.MarkWebhookProcessed(c.Context(), event.ID, nil)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":     true,
		"transaction": report.TransactionID,
		"duplicate":   report.Duplicate,
	})
}

func webhookError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
