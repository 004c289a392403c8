package repositories

import "context"

// Store groups the entity repositories behind a single unit of work.
// Atomic runs fn against a transactional view of the store; if fn returns an
// error nothing it wrote is persisted.
type Store interface {
	Users() UserRepository
	Donors() DonorRepository
	Recipients() RecipientRepository
	Hospitals() HospitalRepository
	Referrals() ReferralRepository
	Appointments() AppointmentRepository
	Notifications() NotificationRepository

	// Atomic executes fn inside a transaction
	Atomic(ctx context.Context, fn func(tx Store) error) error
}
