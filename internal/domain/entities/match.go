package entities

// MatchCandidate is a compatible donor/recipient pair proposed to administrators
type MatchCandidate struct {
	Donor              *Donor         `json:"donor"`
	Recipient          *Recipient     `json:"recipient"`
	CompatibilityScore int            `json:"compatibility_score"`
	Status             ReferralStatus `json:"status"`
}
