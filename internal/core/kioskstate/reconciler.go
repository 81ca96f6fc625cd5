package kioskstate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
)

// API is the slice of the fleet backend the reconciler needs.
type API interface {
	ListKiosks(ctx context.Context, includeDeleted bool) ([]fleetapi.Kiosk, error)
	UpdateKioskState(ctx context.Context, id int64, state string) error
	RecordKioskEvent(ctx context.Context, ev *fleetapi.KioskEvent) error
}

// Transition records one applied state change.
type Transition struct {
	Kiosk fleetapi.Kiosk
	From  State
	To    State
}

// Reconciler brings every non-sticky kiosk's operational state in line
// with its date fields on each listing load.
type Reconciler struct {
	api    API
	loc    *time.Location
	logger *logrus.Logger
	now    func() time.Time
}

// NewReconciler creates a reconciler comparing dates in loc.
func NewReconciler(api API, loc *time.Location, logger *logrus.Logger) *Reconciler {
	return &Reconciler{api: api, loc: loc, logger: logger, now: time.Now}
}

// Reconcile runs one pass: list, transition each kiosk that needs it, and
// re-fetch so callers observe final consistent state.
//
// Kiosks are processed sequentially in listing order, one state update
// call each. A failure on one kiosk is logged and does not stop the pass.
// The audit record per transition is best-effort and never rolls back the
// state change.
func (r *Reconciler) Reconcile(ctx context.Context) ([]Transition, []fleetapi.Kiosk, error) {
	kiosks, err := r.api.ListKiosks(ctx, false)
	if err != nil {
		return nil, nil, err
	}

	var applied []Transition
	for _, kiosk := range kiosks {
		current, err := Parse(kiosk.State)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"kioskid": kiosk.KioskID,
				"state":   kiosk.State,
			}).Warn("Skipping kiosk with unparseable state")
			continue
		}

		next, changed := Next(current, kiosk.ActivationDate, kiosk.DeactivationDate, r.now(), r.loc)
		if !changed {
			continue
		}

		if err := r.api.UpdateKioskState(ctx, kiosk.ID, string(next)); err != nil {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"kioskid": kiosk.KioskID,
				"from":    current,
				"to":      next,
			}).Error("Failed to apply kiosk state transition")
			continue
		}

		applied = append(applied, Transition{Kiosk: kiosk, From: current, To: next})
		r.logger.WithFields(logrus.Fields{
			"kioskid": kiosk.KioskID,
			"from":    current,
			"to":      next,
		}).Info("Kiosk state reconciled")

		// Audit trail is fire-and-forget.
		event := &fleetapi.KioskEvent{
			KioskID:   kiosk.KioskID,
			EventType: "STATE_AUTO_CHANGED",
			Message:   "state reconciled from " + string(current) + " to " + string(next),
		}
		if err := r.api.RecordKioskEvent(ctx, event); err != nil {
			r.logger.WithError(err).WithField("kioskid", kiosk.KioskID).
				Warn("Failed to record state transition audit event")
		}
	}

	final, err := r.api.ListKiosks(ctx, false)
	if err != nil {
		return applied, nil, err
	}
	return applied, final, nil
}
