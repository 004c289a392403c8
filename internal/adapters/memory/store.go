// Package memory implements the repositories on process memory. It backs
// tests and single-node development runs; records are copied on every read
// and write so callers never share state with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
)

type dataset struct {
	users         map[string]entities.User
	donors        map[string]entities.Donor
	recipients    map[string]entities.Recipient
	hospitals     map[string]entities.Hospital
	referrals     map[string]entities.Referral
	appointments  map[string]entities.Appointment
	notifications map[string]entities.Notification
}

func newDataset() *dataset {
	return &dataset{
		users:         make(map[string]entities.User),
		donors:        make(map[string]entities.Donor),
		recipients:    make(map[string]entities.Recipient),
		hospitals:     make(map[string]entities.Hospital),
		referrals:     make(map[string]entities.Referral),
		appointments:  make(map[string]entities.Appointment),
		notifications: make(map[string]entities.Notification),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.donors {
		c.donors[k] = cloneDonor(v)
	}
	for k, v := range d.recipients {
		c.recipients[k] = v
	}
	for k, v := range d.hospitals {
		c.hospitals[k] = cloneHospital(v)
	}
	for k, v := range d.referrals {
		c.referrals[k] = cloneReferral(v)
	}
	for k, v := range d.appointments {
		c.appointments[k] = v
	}
	for k, v := range d.notifications {
		c.notifications[k] = cloneNotification(v)
	}
	return c
}

// Store is an in-memory repositories.Store
type Store struct {
	mu   sync.Locker
	data *dataset
	now  func() time.Time
	inTx bool
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the time source used for CreatedAt and UpdatedAt stamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty in-memory store
func NewStore(opts ...Option) *Store {
	s := &Store{
		mu:   &sync.Mutex{},
		data: newDataset(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repositories.Store = (*Store)(nil)

func (s *Store) Users() repositories.UserRepository { return userRepo{s} }

func (s *Store) Donors() repositories.DonorRepository { return donorRepo{s} }

func (s *Store) Recipients() repositories.RecipientRepository { return recipientRepo{s} }

func (s *Store) Hospitals() repositories.HospitalRepository { return hospitalRepo{s} }

func (s *Store) Referrals() repositories.ReferralRepository { return referralRepo{s} }

func (s *Store) Appointments() repositories.AppointmentRepository { return appointmentRepo{s} }

func (s *Store) Notifications() repositories.NotificationRepository { return notificationRepo{s} }

// Atomic runs fn against a private copy of the data and swaps it in only
// when fn succeeds. Atomic sections are serialized with every other access.
func (s *Store) Atomic(ctx context.Context, fn func(tx repositories.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{
		mu:   noopLocker{},
		data: s.data.clone(),
		now:  s.now,
		inTx: true,
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *Store) newID() string {
	return uuid.New().String()
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneDonor(d entities.Donor) entities.Donor {
	d.LastDonationDate = cloneTime(d.LastDonationDate)
	return d
}

func cloneHospital(h entities.Hospital) entities.Hospital {
	if h.BloodTypes != nil {
		types := make([]entities.BloodType, len(h.BloodTypes))
		copy(types, h.BloodTypes)
		h.BloodTypes = types
	}
	return h
}

func cloneReferral(r entities.Referral) entities.Referral {
	if r.TransfusionDetails != nil {
		details := *r.TransfusionDetails
		r.TransfusionDetails = &details
	}
	return r
}

func cloneNotification(n entities.Notification) entities.Notification {
	if n.Metadata != nil {
		meta := make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			meta[k] = v
		}
		n.Metadata = meta
	}
	return n
}

// sortByCreated orders records oldest first with ID as tie breaker
func sortByCreated[T any](items []*T, created func(*T) time.Time, id func(*T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return id(items[i]) < id(items[j])
	})
}
