package fleetapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListKiosks returns all kiosks, optionally including soft-deleted ones.
func (c *Client) ListKiosks(ctx context.Context, includeDeleted bool) ([]Kiosk, error) {
	q := url.Values{"includeDeleted": {strconv.FormatBool(includeDeleted)}}
	var kiosks []Kiosk
	if err := c.do(ctx, http.MethodGet, "/kiosks", q, nil, &kiosks); err != nil {
		return nil, fmt.Errorf("failed to list kiosks: %w", err)
	}
	return kiosks, nil
}

// GetKiosk returns one kiosk by database id.
func (c *Client) GetKiosk(ctx context.Context, id int64) (*Kiosk, error) {
	var kiosk Kiosk
	path := fmt.Sprintf("/kiosks/%d", id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &kiosk); err != nil {
		return nil, fmt.Errorf("failed to get kiosk %d: %w", id, err)
	}
	return &kiosk, nil
}

// GetKioskByKioskID returns one kiosk by its fixed-width device id.
func (c *Client) GetKioskByKioskID(ctx context.Context, kioskid string) (*Kiosk, error) {
	var kiosk Kiosk
	path := fmt.Sprintf("/kiosks/by-kioskid/%s", kioskid)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &kiosk); err != nil {
		return nil, fmt.Errorf("failed to get kiosk %s: %w", kioskid, err)
	}
	return &kiosk, nil
}

// CreateKiosk registers a new kiosk.
func (c *Client) CreateKiosk(ctx context.Context, w *KioskWrite) (*Kiosk, error) {
	var kiosk Kiosk
	if err := c.do(ctx, http.MethodPost, "/kiosks", nil, w, &kiosk); err != nil {
		return nil, fmt.Errorf("failed to create kiosk: %w", err)
	}
	return &kiosk, nil
}

// UpdateKiosk replaces the mutable kiosk fields.
func (c *Client) UpdateKiosk(ctx context.Context, id int64, w *KioskWrite) (*Kiosk, error) {
	var kiosk Kiosk
	path := fmt.Sprintf("/kiosks/%d", id)
	if err := c.do(ctx, http.MethodPut, path, nil, w, &kiosk); err != nil {
		return nil, fmt.Errorf("failed to update kiosk %d: %w", id, err)
	}
	return &kiosk, nil
}

// UpdateKioskState sets the operational state directly. Used both by the
// automatic reconciler and by explicit admin overrides.
func (c *Client) UpdateKioskState(ctx context.Context, id int64, state string) error {
	q := url.Values{"state": {state}}
	path := fmt.Sprintf("/kiosks/%d/state", id)
	if err := c.do(ctx, http.MethodPatch, path, q, nil, nil); err != nil {
		return fmt.Errorf("failed to update state of kiosk %d: %w", id, err)
	}
	return nil
}

// SoftDeleteKiosk marks the kiosk deleted without destroying its records.
func (c *Client) SoftDeleteKiosk(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/kiosks/%d", id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete kiosk %d: %w", id, err)
	}
	return nil
}

// RestoreKiosk reverses a soft delete.
func (c *Client) RestoreKiosk(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/kiosks/%d/restore", id)
	if err := c.do(ctx, http.MethodPost, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to restore kiosk %d: %w", id, err)
	}
	return nil
}

// NextKioskNumber returns the next free kiosk number for a store.
func (c *Client) NextKioskNumber(ctx context.Context, posid string) (int, error) {
	q := url.Values{"posid": {posid}}
	var res struct {
		NextKioskNo int `json:"nextKioskNo"`
	}
	if err := c.do(ctx, http.MethodGet, "/kiosks/next-number", q, nil, &res); err != nil {
		return 0, fmt.Errorf("failed to get next kiosk number for %s: %w", posid, err)
	}
	return res.NextKioskNo, nil
}

// PushKioskConfig updates a kiosk's config through the admin path. The
// server sets configModifiedByAdmin so the kiosk picks the change up on
// its next poll instead of overwriting it with a stale self-report.
func (c *Client) PushKioskConfig(ctx context.Context, id int64, cfg *KioskRemoteConfig) error {
	path := fmt.Sprintf("/kiosks/%d/config", id)
	if err := c.do(ctx, http.MethodPut, path, nil, cfg, nil); err != nil {
		return fmt.Errorf("failed to push config to kiosk %d: %w", id, err)
	}
	return nil
}

// GetKioskConfig fetches the server-held config snapshot via the kiosk
// self-service path.
func (c *Client) GetKioskConfig(ctx context.Context, kioskid string) (*KioskRemoteConfig, error) {
	var cfg KioskRemoteConfig
	path := fmt.Sprintf("/kiosks/by-kioskid/%s/config", kioskid)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to get config of kiosk %s: %w", kioskid, err)
	}
	return &cfg, nil
}

// ReportKioskConfig is the kiosk self-report path. It is a distinct
// endpoint from PushKioskConfig on purpose, so the backend can tell which
// side originated a config write.
func (c *Client) ReportKioskConfig(ctx context.Context, kioskid string, cfg *KioskRemoteConfig) error {
	path := fmt.Sprintf("/kiosks/by-kioskid/%s/config", kioskid)
	if err := c.do(ctx, http.MethodPatch, path, nil, cfg, nil); err != nil {
		return fmt.Errorf("failed to report config of kiosk %s: %w", kioskid, err)
	}
	return nil
}

// RequestSync asks the backend to push a "sync now" command to the kiosk's
// channel. Fire-and-forget: a disconnected kiosk never receives it.
func (c *Client) RequestSync(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/kiosks/%d/sync", id)
	if err := c.do(ctx, http.MethodPost, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to request sync for kiosk %d: %w", id, err)
	}
	return nil
}

// SetMenu attaches a menu to the kiosk, replacing any previous reference.
func (c *Client) SetMenu(ctx context.Context, id int64, menuID string) error {
	q := url.Values{"menuId": {menuID}}
	path := fmt.Sprintf("/kiosks/%d/menu", id)
	if err := c.do(ctx, http.MethodPut, path, q, nil, nil); err != nil {
		return fmt.Errorf("failed to set menu on kiosk %d: %w", id, err)
	}
	return nil
}

// DetachMenu clears the kiosk's menu reference. Assignments previously
// inherited from the menu are left in place.
func (c *Client) DetachMenu(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/kiosks/%d/menu", id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to detach menu from kiosk %d: %w", id, err)
	}
	return nil
}

// RecordKioskEvent fires an audit/history record. Callers treat failures
// as best-effort; the collaborator must never block a state change.
func (c *Client) RecordKioskEvent(ctx context.Context, ev *KioskEvent) error {
	if err := c.do(ctx, http.MethodPost, "/kiosk-events", nil, ev, nil); err != nil {
		return fmt.Errorf("failed to record kiosk event: %w", err)
	}
	return nil
}
