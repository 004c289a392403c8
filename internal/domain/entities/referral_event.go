package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ReferralEventType represents the type of referral event
type ReferralEventType string

const (
	ReferralEventCreated       ReferralEventType = "referral_created"
	ReferralEventStatusChanged ReferralEventType = "referral_status_changed"
	DonorEventAvailability     ReferralEventType = "donor_availability_changed"
	DonorEventUpdated          ReferralEventType = "donor_updated"
	RecipientEventUpdated      ReferralEventType = "recipient_updated"
)

// ReferralEvent is published after a referral or donor change has been committed
type ReferralEvent struct {
	ID          string            `json:"id"`
	EventType   ReferralEventType `json:"event_type"`
	ReferralID  string            `json:"referral_id,omitempty"`
	DonorID     string            `json:"donor_id,omitempty"`
	RecipientID string            `json:"recipient_id,omitempty"`
	Status      ReferralStatus    `json:"status,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewReferralEvent builds an event for a referral in its current state
func NewReferralEvent(eventType ReferralEventType, referral *Referral, at time.Time) *ReferralEvent {
	return &ReferralEvent{
		ID:          generateEventID(at),
		EventType:   eventType,
		ReferralID:  referral.ID,
		DonorID:     referral.DonorID,
		RecipientID: referral.RecipientID,
		Status:      referral.Status,
		Timestamp:   at,
	}
}

// NewDonorEvent builds a profile or availability change event for a donor
func NewDonorEvent(eventType ReferralEventType, donorID string, at time.Time) *ReferralEvent {
	return &ReferralEvent{
		ID:        generateEventID(at),
		EventType: eventType,
		DonorID:   donorID,
		Timestamp: at,
	}
}

// NewRecipientEvent builds a profile change event for a recipient
func NewRecipientEvent(recipientID string, at time.Time) *ReferralEvent {
	return &ReferralEvent{
		ID:          generateEventID(at),
		EventType:   RecipientEventUpdated,
		RecipientID: recipientID,
		Timestamp:   at,
	}
}

func generateEventID(at time.Time) string {
	return at.UTC().Format("20060102150405") + "-" + randomString(8)
}

func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
