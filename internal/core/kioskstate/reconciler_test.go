package kioskstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
)

type fakeAPI struct {
	kiosks      []fleetapi.Kiosk
	stateCalls  []string
	eventCalls  []string
	failStateOn map[int64]error
	failEvents  bool
	listCount   int
}

func (f *fakeAPI) ListKiosks(ctx context.Context, includeDeleted bool) ([]fleetapi.Kiosk, error) {
	f.listCount++
	out := make([]fleetapi.Kiosk, len(f.kiosks))
	copy(out, f.kiosks)
	return out, nil
}

func (f *fakeAPI) UpdateKioskState(ctx context.Context, id int64, state string) error {
	if err := f.failStateOn[id]; err != nil {
		return err
	}
	for i := range f.kiosks {
		if f.kiosks[i].ID == id {
			f.kiosks[i].State = state
		}
	}
	f.stateCalls = append(f.stateCalls, state)
	return nil
}

func (f *fakeAPI) RecordKioskEvent(ctx context.Context, ev *fleetapi.KioskEvent) error {
	if f.failEvents {
		return errors.New("audit service down")
	}
	f.eventCalls = append(f.eventCalls, ev.EventType)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestReconcileAppliesTransitions(t *testing.T) {
	api := &fakeAPI{
		kiosks: []fleetapi.Kiosk{
			{ID: 1, KioskID: "000000000001", State: "ACTIVE", DeactivationDate: day(-1)},
			{ID: 2, KioskID: "000000000002", State: "PREPARING", ActivationDate: day(-1)},
			{ID: 3, KioskID: "000000000003", State: "MAINTENANCE", ActivationDate: day(-1)},
		},
	}
	r := NewReconciler(api, seoul, quietLogger())

	applied, final, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	require.Len(t, applied, 2)
	assert.Equal(t, Inactive, applied[0].To)
	assert.Equal(t, Active, applied[1].To)

	// Sticky kiosk untouched, final list reflects applied states.
	assert.Equal(t, "MAINTENANCE", final[2].State)
	assert.Equal(t, "INACTIVE", final[0].State)

	// One audit event per transition.
	assert.Equal(t, []string{"STATE_AUTO_CHANGED", "STATE_AUTO_CHANGED"}, api.eventCalls)

	// Initial listing plus the final re-fetch.
	assert.Equal(t, 2, api.listCount)
}

func TestReconcileContinuesPastFailures(t *testing.T) {
	api := &fakeAPI{
		kiosks: []fleetapi.Kiosk{
			{ID: 1, KioskID: "000000000001", State: "PREPARING", ActivationDate: day(-1)},
			{ID: 2, KioskID: "000000000002", State: "PREPARING", ActivationDate: day(-1)},
		},
		failStateOn: map[int64]error{1: errors.New("boom")},
	}
	r := NewReconciler(api, seoul, quietLogger())

	applied, _, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	// Kiosk 1 failed but kiosk 2 was still reconciled.
	require.Len(t, applied, 1)
	assert.Equal(t, int64(2), applied[0].Kiosk.ID)
}

func TestReconcileAuditFailureDoesNotRollBack(t *testing.T) {
	api := &fakeAPI{
		kiosks: []fleetapi.Kiosk{
			{ID: 1, KioskID: "000000000001", State: "PREPARING", ActivationDate: day(-1)},
		},
		failEvents: true,
	}
	r := NewReconciler(api, seoul, quietLogger())

	applied, final, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "ACTIVE", final[0].State)
}

func TestReconcileSkipsUnknownStates(t *testing.T) {
	api := &fakeAPI{
		kiosks: []fleetapi.Kiosk{
			{ID: 1, KioskID: "000000000001", State: "???", ActivationDate: day(-1)},
		},
	}
	r := NewReconciler(api, seoul, quietLogger())

	applied, _, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Empty(t, api.stateCalls)
}

func TestReconcileUsesInjectedClock(t *testing.T) {
	activation := time.Date(2026, 5, 1, 0, 0, 0, 0, seoul)
	api := &fakeAPI{
		kiosks: []fleetapi.Kiosk{
			{ID: 1, KioskID: "000000000001", State: "PREPARING", ActivationDate: &activation},
		},
	}
	r := NewReconciler(api, seoul, quietLogger())
	r.now = func() time.Time { return time.Date(2026, 4, 30, 12, 0, 0, 0, seoul) }

	applied, _, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied, "activation tomorrow must not promote today")

	r.now = func() time.Time { return time.Date(2026, 5, 1, 0, 5, 0, 0, seoul) }
	applied, _, err = r.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, Active, applied[0].To)
}
