package records

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

// Dump is the legacy export: one array of untyped objects per collection
type Dump struct {
	Users         []json.RawMessage `json:"users"`
	Donors        []json.RawMessage `json:"donors"`
	Recipients    []json.RawMessage `json:"recipients"`
	Hospitals     []json.RawMessage `json:"hospitals"`
	Referrals     []json.RawMessage `json:"referrals"`
	Appointments  []json.RawMessage `json:"appointments"`
	Notifications []json.RawMessage `json:"notifications"`
}

// Rejection describes a record that failed to decode
type Rejection struct {
	Collection string
	Index      int
	Err        error
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s[%d]: %v", r.Collection, r.Index, r.Err)
}

// Dataset holds the typed entities decoded from a dump
type Dataset struct {
	Users         []*entities.User
	Donors        []*entities.Donor
	Recipients    []*entities.Recipient
	Hospitals     []*entities.Hospital
	Referrals     []*entities.Referral
	Appointments  []*entities.Appointment
	Notifications []*entities.Notification
	Rejected      []Rejection
}

// Decode reads a dump and decodes every collection. Only a dump that is not
// valid JSON fails as a whole; bad records are logged and listed in Rejected.
func Decode(r io.Reader, now time.Time) (*Dataset, error) {
	var dump Dump
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}

	ds := &Dataset{}
	ds.Users = decodeAll(ds, "users", dump.Users, now, DecodeUser)
	ds.Donors = decodeAll(ds, "donors", dump.Donors, now, DecodeDonor)
	ds.Recipients = decodeAll(ds, "recipients", dump.Recipients, now, DecodeRecipient)
	ds.Hospitals = decodeAll(ds, "hospitals", dump.Hospitals, now, DecodeHospital)
	ds.Referrals = decodeAll(ds, "referrals", dump.Referrals, now, DecodeReferral)
	ds.Appointments = decodeAll(ds, "appointments", dump.Appointments, now, DecodeAppointment)
	ds.Notifications = decodeAll(ds, "notifications", dump.Notifications, now, DecodeNotification)

	return ds, nil
}

func decodeAll[T any](ds *Dataset, collection string, raws []json.RawMessage, now time.Time, fn func(json.RawMessage, time.Time) (*T, error)) []*T {
	out := make([]*T, 0, len(raws))
	for i, raw := range raws {
		entity, err := fn(raw, now)
		if err != nil {
			rejection := Rejection{Collection: collection, Index: i, Err: err}
			ds.Rejected = append(ds.Rejected, rejection)
			log.Warn().Err(err).Str("collection", collection).Int("index", i).Msg("skipping malformed record")
			continue
		}
		out = append(out, entity)
	}
	return out
}
