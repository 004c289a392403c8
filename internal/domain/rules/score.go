package rules

import (
	"time"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

const (
	scoreBaseline        = 70
	scoreExactMatchBonus = 15
	scoreCriticalBonus   = 25
	scoreHighBonus       = 15
	scoreRecentPenalty   = 10
)

// Score ranks a donor/recipient pair on a 0-100 scale. It orders compatible
// candidates and is not itself a compatibility check.
func Score(donor *entities.Donor, recipient *entities.Recipient, now time.Time) int {
	score := scoreBaseline

	if donor.BloodType == recipient.BloodType {
		score += scoreExactMatchBonus
	}

	switch recipient.Urgency {
	case entities.UrgencyCritical:
		score += scoreCriticalBonus
	case entities.UrgencyHigh:
		score += scoreHighBonus
	}

	if !ComputeAvailability(donor.LastDonationDate, now) {
		score -= scoreRecentPenalty
	}

	return clamp(score, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
