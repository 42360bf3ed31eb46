package reconcile

import (
	"testing"
	"time"

	"github.com/adamrozichner-star/dpo-saas/app/models"
)

func TestTerminalTransactionUpdatesSuccess(t *testing.T) {
	now := time.Now()
	txn := &models.PaymentTransaction{ID: "TXN-1-1"}

	updates := terminalTransactionUpdates(txn, TransactionOutcome{
		Success:         true,
		CorrelationCode: "lp-123",
		CardMask:        "****4242",
	}, now)

	if updates["status"] != models.TxnStatusCompleted {
		t.Fatalf("status = %v, want completed", updates["status"])
	}
	if _, ok := updates["completed_at"]; !ok {
		t.Fatalf("completed_at missing on success")
	}
	if updates["card_mask"] != "****4242" {
		t.Fatalf("card_mask = %v", updates["card_mask"])
	}
	if updates["correlation_code"] != "lp-123" {
		t.Fatalf("correlation code not backfilled")
	}
}

func TestTerminalTransactionUpdatesFailureLeavesCompletedAtUnset(t *testing.T) {
	txn := &models.PaymentTransaction{ID: "TXN-1-2"}

	updates := terminalTransactionUpdates(txn, TransactionOutcome{
		Success:   false,
		ErrorText: "card declined",
	}, time.Now())

	if updates["status"] != models.TxnStatusFailed {
		t.Fatalf("status = %v, want failed", updates["status"])
	}
	if _, ok := updates["completed_at"]; ok {
		t.Fatalf("completed_at set on a failed transaction")
	}
	if updates["gateway_error"] != "card declined" {
		t.Fatalf("gateway_error = %v", updates["gateway_error"])
	}
	if _, ok := updates["card_mask"]; ok {
		t.Fatalf("empty card mask written")
	}
}

func TestTerminalTransactionUpdatesKeepsExistingCorrelation(t *testing.T) {
	txn := &models.PaymentTransaction{ID: "TXN-1-3", CorrelationCode: "lp-original"}

	updates := terminalTransactionUpdates(txn, TransactionOutcome{
		Success:         true,
		CorrelationCode: "lp-other",
	}, time.Now())

	if _, ok := updates["correlation_code"]; ok {
		t.Fatalf("existing correlation code overwritten")
	}
}
