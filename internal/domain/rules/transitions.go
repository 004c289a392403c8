package rules

import "github.com/zatekoja/bloodlink/internal/domain/entities"

// referralTransitions lists the statuses reachable from each non-terminal
// status. Terminal statuses have no entry.
var referralTransitions = map[entities.ReferralStatus][]entities.ReferralStatus{
	entities.ReferralStatusPending: {
		entities.ReferralStatusMatched,
		entities.ReferralStatusScheduled,
		entities.ReferralStatusCompleted,
		entities.ReferralStatusCancelled,
	},
	entities.ReferralStatusMatched: {
		entities.ReferralStatusScheduled,
		entities.ReferralStatusCompleted,
		entities.ReferralStatusCancelled,
	},
	entities.ReferralStatusScheduled: {
		entities.ReferralStatusCompleted,
		entities.ReferralStatusCancelled,
	},
}

// CanTransition reports whether a referral may move from one status to
// another. Lifecycle moves forward only; completed and cancelled are final.
func CanTransition(from, to entities.ReferralStatus) bool {
	for _, next := range referralTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
