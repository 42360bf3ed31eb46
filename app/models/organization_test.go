package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPlaceholderOrganization(t *testing.T) {
	org := NewPlaceholderOrganization(42, "מאפיית הכפר")

	assert.Equal(t, uint(42), org.OwnerUserID)
	assert.Equal(t, OrgLifecycleOnboarding, org.LifecycleStatus)
	assert.NotEmpty(t, org.UUID)
	assert.True(t, org.HasPlaceholderBusinessID())
}

func TestHasPlaceholderBusinessID(t *testing.T) {
	org := &Organization{BusinessID: "512345678"}
	assert.False(t, org.HasPlaceholderBusinessID())

	org.BusinessID = ""
	assert.False(t, org.HasPlaceholderBusinessID())
}

func TestNewTransactionID(t *testing.T) {
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "TXN-7-1773568800", NewTransactionID(7, at))
}
