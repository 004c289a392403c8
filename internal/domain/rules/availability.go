package rules

import "time"

// CooldownMonths is the minimum gap between two whole blood donations
const CooldownMonths = 3

// AddMonths moves t forward by the given number of calendar months, keeping the
// time of day. When the target month is shorter than t's day of month the
// result is clamped to the target month's last day (Nov 30 + 3 months = Feb 28/29).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// NextEligibleDate returns the first instant a donor who gave blood at last may donate again
func NextEligibleDate(last time.Time) time.Time {
	return AddMonths(last, CooldownMonths)
}

// ComputeAvailability reports whether a donor may donate at now.
// A nil lastDonationDate means the donor has never donated.
func ComputeAvailability(lastDonationDate *time.Time, now time.Time) bool {
	if lastDonationDate == nil {
		return true
	}
	return !now.Before(NextEligibleDate(*lastDonationDate))
}
