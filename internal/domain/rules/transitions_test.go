package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to entities.ReferralStatus
		want     bool
	}{
		{entities.ReferralStatusPending, entities.ReferralStatusMatched, true},
		{entities.ReferralStatusPending, entities.ReferralStatusScheduled, true},
		{entities.ReferralStatusPending, entities.ReferralStatusCompleted, true},
		{entities.ReferralStatusPending, entities.ReferralStatusCancelled, true},
		{entities.ReferralStatusPending, entities.ReferralStatusPending, false},
		{entities.ReferralStatusMatched, entities.ReferralStatusScheduled, true},
		{entities.ReferralStatusMatched, entities.ReferralStatusPending, false},
		{entities.ReferralStatusScheduled, entities.ReferralStatusCompleted, true},
		{entities.ReferralStatusScheduled, entities.ReferralStatusMatched, false},
		{entities.ReferralStatusPending, "archived", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCanTransition_TerminalStatesAreAbsorbing(t *testing.T) {
	for _, from := range []entities.ReferralStatus{entities.ReferralStatusCompleted, entities.ReferralStatusCancelled} {
		for _, to := range []entities.ReferralStatus{
			entities.ReferralStatusPending, entities.ReferralStatusMatched, entities.ReferralStatusScheduled,
			entities.ReferralStatusCompleted, entities.ReferralStatusCancelled,
		} {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}
