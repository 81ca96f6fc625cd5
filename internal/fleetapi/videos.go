package fleetapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListKioskVideos returns the kiosk's assignments joined with full media
// metadata.
func (c *Client) ListKioskVideos(ctx context.Context, kioskID int64) ([]VideoAssignment, error) {
	var assignments []VideoAssignment
	path := fmt.Sprintf("/kiosks/%d/videos-with-status", kioskID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &assignments); err != nil {
		return nil, fmt.Errorf("failed to list videos of kiosk %d: %w", kioskID, err)
	}
	return assignments, nil
}

// AssignVideos adds the given videos to the kiosk. The backend ignores
// duplicates, but callers should pre-filter so the request reflects
// intent; see assignments.Service.AssignVideos.
func (c *Client) AssignVideos(ctx context.Context, kioskID int64, videoIDs []int64) error {
	body := map[string][]int64{"videoIds": videoIDs}
	path := fmt.Sprintf("/kiosks/%d/videos", kioskID)
	if err := c.do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return fmt.Errorf("failed to assign videos to kiosk %d: %w", kioskID, err)
	}
	return nil
}

// RemoveVideo deletes one assignment row.
func (c *Client) RemoveVideo(ctx context.Context, kioskID, videoID int64) error {
	path := fmt.Sprintf("/kiosks/%d/videos/%d", kioskID, videoID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to remove video %d from kiosk %d: %w", videoID, kioskID, err)
	}
	return nil
}

// ReportDownloadStatus overwrites the per-assignment download status.
// Any status may follow any other; the server is the source of truth and
// the reporting client is trusted.
func (c *Client) ReportDownloadStatus(ctx context.Context, kioskID, videoID int64, status DownloadStatus) error {
	q := url.Values{"status": {string(status)}}
	path := fmt.Sprintf("/kiosks/%d/videos/%d/status", kioskID, videoID)
	if err := c.do(ctx, http.MethodPatch, path, q, nil, nil); err != nil {
		return fmt.Errorf("failed to report status of video %d on kiosk %d: %w", videoID, kioskID, err)
	}
	return nil
}

// GetVideo resolves the full media record, including a presigned download
// URL that is only valid for a short time.
func (c *Client) GetVideo(ctx context.Context, videoID int64) (*Video, error) {
	var video Video
	path := fmt.Sprintf("/videos/%d", videoID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &video); err != nil {
		return nil, fmt.Errorf("failed to get video %d: %w", videoID, err)
	}
	return &video, nil
}
