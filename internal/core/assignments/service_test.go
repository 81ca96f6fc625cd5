package assignments

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
	apperr "github.com/kioskfleet/kiosk-fleet-go/pkg/errors"
)

type fakeAPI struct {
	rows        []fleetapi.VideoAssignment
	assignCalls [][]int64
	removed     []int64
	menu        *string
	statuses    map[int64]fleetapi.DownloadStatus
}

func (f *fakeAPI) ListKioskVideos(ctx context.Context, kioskID int64) ([]fleetapi.VideoAssignment, error) {
	out := make([]fleetapi.VideoAssignment, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeAPI) AssignVideos(ctx context.Context, kioskID int64, videoIDs []int64) error {
	f.assignCalls = append(f.assignCalls, videoIDs)
	for _, id := range videoIDs {
		f.rows = append(f.rows, fleetapi.VideoAssignment{
			KioskID:        kioskID,
			VideoID:        id,
			DownloadStatus: fleetapi.DownloadPending,
			SourceType:     fleetapi.SourceManual,
		})
	}
	return nil
}

func (f *fakeAPI) RemoveVideo(ctx context.Context, kioskID, videoID int64) error {
	f.removed = append(f.removed, videoID)
	for i, r := range f.rows {
		if r.VideoID == videoID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) ReportDownloadStatus(ctx context.Context, kioskID, videoID int64, status fleetapi.DownloadStatus) error {
	if f.statuses == nil {
		f.statuses = map[int64]fleetapi.DownloadStatus{}
	}
	f.statuses[videoID] = status
	return nil
}

func (f *fakeAPI) SetMenu(ctx context.Context, kioskID int64, menuID string) error {
	f.menu = &menuID
	// Backend materializes menu media, skipping already-assigned videos.
	f.rows = append(f.rows, fleetapi.VideoAssignment{
		KioskID: kioskID, VideoID: 900, SourceType: fleetapi.SourceMenu, MenuID: &menuID,
		DownloadStatus: fleetapi.DownloadPending,
	})
	return nil
}

func (f *fakeAPI) DetachMenu(ctx context.Context, kioskID int64) error {
	f.menu = nil
	return nil
}

func newService(api *fakeAPI) *Service {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewService(api, log)
}

func TestAssignVideosIsIdempotent(t *testing.T) {
	api := &fakeAPI{}
	svc := newService(api)
	ctx := context.Background()

	first, err := svc.AssignVideos(ctx, 1, []int64{10, 20})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := svc.AssignVideos(ctx, 1, []int64{10, 20})
	require.NoError(t, err)
	assert.Len(t, second, 2, "repeated assign must not duplicate rows")

	// The second call had nothing new to send.
	require.Len(t, api.assignCalls, 1)
	assert.Equal(t, []int64{10, 20}, api.assignCalls[0])
}

func TestAssignVideosSkipsExistingOnly(t *testing.T) {
	api := &fakeAPI{rows: []fleetapi.VideoAssignment{
		{KioskID: 1, VideoID: 10, SourceType: fleetapi.SourceManual},
	}}
	svc := newService(api)

	updated, err := svc.AssignVideos(context.Background(), 1, []int64{10, 30})
	require.NoError(t, err)
	assert.Len(t, updated, 2)
	require.Len(t, api.assignCalls, 1)
	assert.Equal(t, []int64{30}, api.assignCalls[0])
}

func TestRemoveAssignmentForbiddenForMenuSourced(t *testing.T) {
	menuID := "menu-7"
	api := &fakeAPI{rows: []fleetapi.VideoAssignment{
		{KioskID: 1, VideoID: 10, SourceType: fleetapi.SourceMenu, MenuID: &menuID},
		{KioskID: 1, VideoID: 20, SourceType: fleetapi.SourceManual},
	}}
	svc := newService(api)
	ctx := context.Background()

	err := svc.RemoveAssignment(ctx, 1, 10)
	require.Error(t, err)
	assert.True(t, apperr.IsForbiddenOperation(err))
	assert.Contains(t, err.Error(), "menu")

	// The failed call must leave the assignment list unchanged.
	rows, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Empty(t, api.removed)
}

func TestRemoveAssignmentManual(t *testing.T) {
	api := &fakeAPI{rows: []fleetapi.VideoAssignment{
		{KioskID: 1, VideoID: 20, SourceType: fleetapi.SourceManual},
	}}
	svc := newService(api)

	require.NoError(t, svc.RemoveAssignment(context.Background(), 1, 20))
	assert.Equal(t, []int64{20}, api.removed)
}

func TestRemoveAssignmentUnknownVideo(t *testing.T) {
	svc := newService(&fakeAPI{})

	err := svc.RemoveAssignment(context.Background(), 1, 99)
	require.Error(t, err)
	var de *apperr.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 404, de.Status)
}

func TestSetMenuAttachAndDetach(t *testing.T) {
	api := &fakeAPI{rows: []fleetapi.VideoAssignment{
		{KioskID: 1, VideoID: 20, SourceType: fleetapi.SourceManual},
	}}
	svc := newService(api)
	ctx := context.Background()

	rows, err := svc.SetMenu(ctx, 1, "menu-7")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	require.NotNil(t, api.menu)

	// Detach clears the reference but the inherited row stays orphaned.
	rows, err = svc.SetMenu(ctx, 1, "")
	require.NoError(t, err)
	assert.Nil(t, api.menu)
	assert.Len(t, rows, 2)
}

func TestReportStatusOverwritesWithoutValidation(t *testing.T) {
	api := &fakeAPI{}
	svc := newService(api)
	ctx := context.Background()

	// COMPLETED straight back to PENDING is allowed.
	require.NoError(t, svc.ReportStatus(ctx, 1, 10, fleetapi.DownloadCompleted))
	require.NoError(t, svc.ReportStatus(ctx, 1, 10, fleetapi.DownloadPending))
	assert.Equal(t, fleetapi.DownloadPending, api.statuses[10])
}
