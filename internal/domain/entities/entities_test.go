package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBloodType(t *testing.T) {
	bt, err := ParseBloodType(" ab+ ")
	require.NoError(t, err)
	assert.Equal(t, BloodTypeABPositive, bt)

	_, err = ParseBloodType("C+")
	assert.Error(t, err)
	assert.Len(t, AllBloodTypes, 8)
}

func TestParseUrgency_Aliases(t *testing.T) {
	tests := map[string]Urgency{
		"low":      UrgencyLow,
		"normal":   UrgencyMedium,
		"Medium":   UrgencyMedium,
		"urgent":   UrgencyHigh,
		"high":     UrgencyHigh,
		"CRITICAL": UrgencyCritical,
	}
	for in, want := range tests {
		got, err := ParseUrgency(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseUrgency("asap")
	assert.Error(t, err)
}

func TestUrgency_Rank(t *testing.T) {
	assert.Equal(t, 3, UrgencyCritical.Rank())
	assert.Equal(t, 2, UrgencyHigh.Rank())
	assert.Equal(t, 1, UrgencyMedium.Rank())
	assert.Equal(t, 1, UrgencyLow.Rank())
}

func TestReferralStatus(t *testing.T) {
	assert.True(t, ReferralStatusCompleted.IsTerminal())
	assert.True(t, ReferralStatusCancelled.IsTerminal())
	assert.False(t, ReferralStatusScheduled.IsTerminal())

	_, err := ParseReferralStatus("archived")
	assert.Error(t, err)
}

func TestSlotDate(t *testing.T) {
	in := time.Date(2024, 3, 9, 17, 45, 0, 0, time.FixedZone("x", 3600))
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), SlotDate(in))
}

func TestHospital_Serves(t *testing.T) {
	h := &Hospital{BloodTypes: []BloodType{BloodTypeONegative, BloodTypeAPositive}}
	assert.True(t, h.Serves(BloodTypeONegative))
	assert.False(t, h.Serves(BloodTypeBPositive))
}
