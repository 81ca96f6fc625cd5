// Package assignments manages the per-kiosk video assignment list and its
// download lifecycle.
//
// Known quirk, kept on purpose: detaching a menu leaves previously
// inherited MENU-sourced assignment rows in place, pointing at the
// cleared menu. Cleaning them up is a product decision that has not been
// made; do not "fix" it here.
package assignments

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
	apperr "github.com/kioskfleet/kiosk-fleet-go/pkg/errors"
)

// API is the slice of the fleet backend the tracker needs.
type API interface {
	ListKioskVideos(ctx context.Context, kioskID int64) ([]fleetapi.VideoAssignment, error)
	AssignVideos(ctx context.Context, kioskID int64, videoIDs []int64) error
	RemoveVideo(ctx context.Context, kioskID, videoID int64) error
	ReportDownloadStatus(ctx context.Context, kioskID, videoID int64, status fleetapi.DownloadStatus) error
	SetMenu(ctx context.Context, kioskID int64, menuID string) error
	DetachMenu(ctx context.Context, kioskID int64) error
}

// Service implements the assignment operations.
type Service struct {
	api    API
	logger *logrus.Logger
}

// NewService creates an assignment tracker.
func NewService(api API, logger *logrus.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// List returns the kiosk's assignments with joined media metadata.
func (s *Service) List(ctx context.Context, kioskID int64) ([]fleetapi.VideoAssignment, error) {
	return s.api.ListKioskVideos(ctx, kioskID)
}

// AssignVideos adds the given videos to the kiosk, skipping any videoId
// that is already assigned, and returns the full updated list. Calling it
// twice with the same set yields exactly one assignment per videoId.
func (s *Service) AssignVideos(ctx context.Context, kioskID int64, videoIDs []int64) ([]fleetapi.VideoAssignment, error) {
	current, err := s.api.ListKioskVideos(ctx, kioskID)
	if err != nil {
		return nil, err
	}

	assigned := make(map[int64]bool, len(current))
	for _, a := range current {
		assigned[a.VideoID] = true
	}

	var fresh []int64
	for _, id := range videoIDs {
		if !assigned[id] {
			fresh = append(fresh, id)
			assigned[id] = true
		}
	}

	if len(fresh) > 0 {
		if err := s.api.AssignVideos(ctx, kioskID, fresh); err != nil {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{
			"kiosk_id": kioskID,
			"added":    len(fresh),
			"skipped":  len(videoIDs) - len(fresh),
		}).Info("Videos assigned to kiosk")
	}

	return s.api.ListKioskVideos(ctx, kioskID)
}

// RemoveAssignment deletes one assignment. Menu-sourced assignments are
// immutable from here; the caller is told to edit the menu instead, and
// the assignment list is left untouched.
func (s *Service) RemoveAssignment(ctx context.Context, kioskID, videoID int64) error {
	current, err := s.api.ListKioskVideos(ctx, kioskID)
	if err != nil {
		return err
	}

	var row *fleetapi.VideoAssignment
	for i := range current {
		if current[i].VideoID == videoID {
			row = &current[i]
			break
		}
	}
	if row == nil {
		return &apperr.DomainError{Status: 404, Message: fmt.Sprintf("video %d is not assigned to this kiosk", videoID)}
	}
	if row.FromMenu() {
		return apperr.NewForbiddenOperation(
			"this video comes from the attached menu and cannot be removed directly; edit the menu to change it")
	}

	return s.api.RemoveVideo(ctx, kioskID, videoID)
}

// SetMenu replaces the kiosk's attached menu. The backend materializes the
// menu's media as MENU-sourced assignments without duplicating videos that
// are already assigned by videoId. An empty menuID detaches the menu;
// inherited rows survive the detach (see the package comment).
func (s *Service) SetMenu(ctx context.Context, kioskID int64, menuID string) ([]fleetapi.VideoAssignment, error) {
	if menuID == "" {
		if err := s.api.DetachMenu(ctx, kioskID); err != nil {
			return nil, err
		}
		s.logger.WithField("kiosk_id", kioskID).Info("Menu detached from kiosk")
	} else {
		if err := s.api.SetMenu(ctx, kioskID, menuID); err != nil {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{
			"kiosk_id": kioskID,
			"menu_id":  menuID,
		}).Info("Menu attached to kiosk")
	}

	return s.api.ListKioskVideos(ctx, kioskID)
}

// ReportStatus overwrites an assignment's download status. It performs no
// transition validation: the server is the sole source of truth and the
// reporting client is trusted. Admin force-sets use the same call.
func (s *Service) ReportStatus(ctx context.Context, kioskID, videoID int64, status fleetapi.DownloadStatus) error {
	return s.api.ReportDownloadStatus(ctx, kioskID, videoID, status)
}
