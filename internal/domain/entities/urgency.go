package entities

import (
	"fmt"
	"strings"
)

// Urgency is the canonical recipient urgency scale: low < medium < high < critical.
// "normal" and "urgent" are accepted on input as aliases of medium and high.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ParseUrgency maps both urgency vocabularies onto the canonical scale
func ParseUrgency(s string) (Urgency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return UrgencyLow, nil
	case "medium", "normal":
		return UrgencyMedium, nil
	case "high", "urgent":
		return UrgencyHigh, nil
	case "critical":
		return UrgencyCritical, nil
	}
	return "", fmt.Errorf("invalid urgency %q", s)
}

// Rank orders recipients for matching: critical 3, high 2, anything else 1
func (u Urgency) Rank() int {
	switch u {
	case UrgencyCritical:
		return 3
	case UrgencyHigh:
		return 2
	default:
		return 1
	}
}
