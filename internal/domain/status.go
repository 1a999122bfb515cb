package domain

import "time"

// TripStatus classifies a trip relative to the current date.
type TripStatus string

const (
	StatusAll       TripStatus = "all"
	StatusOngoing   TripStatus = "ongoing"
	StatusUpcoming  TripStatus = "upcoming"
	StatusCompleted TripStatus = "completed"
)

// ParseTripStatus returns the TripStatus named by s.
// The empty string is treated as StatusAll.
func ParseTripStatus(s string) (TripStatus, bool) {
	switch st := TripStatus(s); st {
	case "":
		return StatusAll, true
	case StatusAll, StatusOngoing, StatusUpcoming, StatusCompleted:
		return st, true
	}
	return "", false
}

// Today formats now as a calendar date in UTC.
// UTC is used everywhere so that a trip's status does not depend on the
// server's local zone.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// Matches reports whether t falls into status on the given day.
// Dates are compared as YYYY-MM-DD strings, which order chronologically.
//
// For a malformed range (StartAt > EndAt) the predicates are not mutually
// exclusive: such a trip can be both upcoming and completed, and never
// ongoing.
func (t Trip) Matches(status TripStatus, today string) bool {
	switch status {
	case StatusAll:
		return true
	case StatusOngoing:
		return t.StartAt <= today && today <= t.EndAt
	case StatusUpcoming:
		return t.StartAt > today
	case StatusCompleted:
		return t.EndAt < today
	}
	return false
}

// Status returns the first status among ongoing, upcoming and completed that
// t matches on the given day.
func (t Trip) Status(today string) TripStatus {
	for _, st := range []TripStatus{StatusOngoing, StatusUpcoming, StatusCompleted} {
		if t.Matches(st, today) {
			return st
		}
	}
	return StatusAll
}
