package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

func TestScore(t *testing.T) {
	recent := refNow.AddDate(0, -1, 0)
	old := refNow.AddDate(-1, 0, 0)

	tests := []struct {
		name      string
		donor     entities.Donor
		recipient entities.Recipient
		want      int
	}{
		{"baseline", entities.Donor{BloodType: "O-"}, entities.Recipient{BloodType: "A+", Urgency: entities.UrgencyLow}, 70},
		{"exact match", entities.Donor{BloodType: "A+"}, entities.Recipient{BloodType: "A+", Urgency: entities.UrgencyMedium}, 85},
		{"high urgency", entities.Donor{BloodType: "O-"}, entities.Recipient{BloodType: "B+", Urgency: entities.UrgencyHigh}, 85},
		{"critical urgency", entities.Donor{BloodType: "O-"}, entities.Recipient{BloodType: "B+", Urgency: entities.UrgencyCritical}, 95},
		{"exact and critical clamps", entities.Donor{BloodType: "O-"}, entities.Recipient{BloodType: "O-", Urgency: entities.UrgencyCritical}, 100},
		{"recent donation penalty", entities.Donor{BloodType: "O-", LastDonationDate: &recent}, entities.Recipient{BloodType: "A+"}, 60},
		{"old donation no penalty", entities.Donor{BloodType: "O-", LastDonationDate: &old}, entities.Recipient{BloodType: "A+"}, 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(&tt.donor, &tt.recipient, refNow))
		})
	}
}

func TestScore_AlwaysInRange(t *testing.T) {
	recent := refNow.AddDate(0, 0, -3)
	urgencies := []entities.Urgency{entities.UrgencyLow, entities.UrgencyMedium, entities.UrgencyHigh, entities.UrgencyCritical, ""}

	for _, d := range entities.AllBloodTypes {
		for _, r := range entities.AllBloodTypes {
			for _, u := range urgencies {
				for _, donor := range []*entities.Donor{{BloodType: d}, {BloodType: d, LastDonationDate: &recent}} {
					s := Score(donor, &entities.Recipient{BloodType: r, Urgency: u}, refNow)
					assert.GreaterOrEqual(t, s, 0)
					assert.LessOrEqual(t, s, 100)
				}
			}
		}
	}
}
