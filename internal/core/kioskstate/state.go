// Package kioskstate derives and reconciles kiosk operational states from
// their activation and deactivation dates.
package kioskstate

import (
	"fmt"
	"strings"
	"time"
)

// State is a kiosk's operational state.
type State string

const (
	Preparing   State = "PREPARING"
	Active      State = "ACTIVE"
	Inactive    State = "INACTIVE"
	Maintenance State = "MAINTENANCE"
	Deleted     State = "DELETED"
)

// All lists every valid state in display order.
var All = []State{Preparing, Active, Inactive, Maintenance, Deleted}

// Parse normalizes a raw state string from the backend.
func Parse(raw string) (State, error) {
	s := State(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case Preparing, Active, Inactive, Maintenance, Deleted:
		return s, nil
	}
	return "", fmt.Errorf("unknown kiosk state %q", raw)
}

// Sticky reports whether the state is only ever set by explicit admin
// action and must never be touched by automatic reconciliation.
func (s State) Sticky() bool {
	return s == Maintenance || s == Deleted
}

// Label returns the operator-facing display label. The switch is
// exhaustive over all states; adding a state without a label is a compile
// error at the default panic in tests, not a silent raw string in the UI.
func (s State) Label() string {
	switch s {
	case Preparing:
		return "준비중"
	case Active:
		return "운영중"
	case Inactive:
		return "미운영"
	case Maintenance:
		return "점검중"
	case Deleted:
		return "삭제됨"
	}
	return string(s)
}

// dateOnly truncates a timestamp to midnight in loc. All lifecycle dates
// are compared on calendar days in the store's local zone, never UTC.
func dateOnly(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// Next computes the automatic transition for a kiosk, if any.
//
// Rules, in priority order:
//  1. a deactivation date strictly before today moves ACTIVE/PREPARING to
//     INACTIVE and short-circuits everything else;
//  2. INACTIVE is terminal until an admin re-activates;
//  3. no activation date means no transition;
//  4. a future activation date pulls ACTIVE back to PREPARING;
//  5. an activation date on or before today promotes PREPARING to ACTIVE.
//
// MAINTENANCE and DELETED are sticky and never examined. now may carry a
// time of day; comparisons are date-only in loc.
func Next(current State, activation, deactivation *time.Time, now time.Time, loc *time.Location) (State, bool) {
	if current.Sticky() {
		return current, false
	}

	today := dateOnly(now, loc)

	if deactivation != nil && dateOnly(*deactivation, loc).Before(today) {
		if current == Active || current == Preparing {
			return Inactive, true
		}
		return current, false
	}

	if current == Inactive {
		return current, false
	}
	if activation == nil {
		return current, false
	}

	activationDay := dateOnly(*activation, loc)
	switch {
	case activationDay.After(today) && current == Active:
		return Preparing, true
	case !activationDay.After(today) && current == Preparing:
		return Active, true
	}
	return current, false
}
