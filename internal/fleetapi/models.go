package fleetapi

import "time"

// DownloadStatus is the lifecycle of one assigned video on one kiosk.
type DownloadStatus string

const (
	DownloadPending     DownloadStatus = "PENDING"
	DownloadDownloading DownloadStatus = "DOWNLOADING"
	DownloadCompleted   DownloadStatus = "COMPLETED"
	DownloadFailed      DownloadStatus = "FAILED"
)

// SourceType records how a video assignment came to exist.
type SourceType string

const (
	// SourceManual: an admin assigned the video directly.
	SourceManual SourceType = "MANUAL"
	// SourceMenu: the assignment was inherited from an attached menu and
	// may only be changed by editing that menu.
	SourceMenu SourceType = "MENU"
)

// Kiosk is one physical kiosk device as returned by the backend.
type Kiosk struct {
	ID      int64  `json:"id"`
	KioskID string `json:"kioskid"`
	PosID   string `json:"posid"`
	KioskNo int    `json:"kioskno"`
	Maker   string `json:"maker"`
	Serial  string `json:"serialno"`

	// State is the raw operational state string; parse it with
	// kioskstate.Parse before reasoning about transitions.
	State string `json:"state"`

	RegisteredAt     *time.Time `json:"regdate"`
	ActivationDate   *time.Time `json:"setdate"`
	DeactivationDate *time.Time `json:"deldate"`

	LastSync         *time.Time `json:"lastSync"`
	LastHeartbeat    *time.Time `json:"lastHeartbeat"`
	ConnectionStatus string     `json:"connectionStatus"`
	IsLoggedIn       bool       `json:"isLoggedIn"`

	// Derived download counters, cached server-side; not authoritative.
	TotalVideoCount      int `json:"totalVideoCount"`
	DownloadedVideoCount int `json:"downloadedVideoCount"`

	MenuID                *string `json:"menuId"`
	ConfigModifiedByAdmin bool    `json:"configModifiedByAdmin"`
}

// VideoAssignment joins a kiosk to a media asset, with the joined media
// metadata the listing endpoint always includes. An assignment row alone
// never carries displayable metadata; callers rely on these fields.
type VideoAssignment struct {
	KioskID        int64          `json:"kioskId"`
	VideoID        int64          `json:"videoId"`
	DownloadStatus DownloadStatus `json:"downloadStatus"`
	SourceType     SourceType     `json:"sourceType"`
	MenuID         *string        `json:"menuId"`

	Title    string `json:"title"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	Uploader string `json:"uploader"`
}

// FromMenu reports whether the assignment was inherited from a menu.
func (a *VideoAssignment) FromMenu() bool {
	return a.SourceType == SourceMenu
}

// Video is the full media record, including a presigned, time-limited
// download URL resolved at request time.
type Video struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	Uploader string `json:"uploader"`
	S3URL    string `json:"s3Url"`
}

// KioskRemoteConfig is the server-held configuration snapshot for one
// kiosk. The admin push path sets ConfigModifiedByAdmin so the kiosk can
// detect an out-of-band change on its next poll.
type KioskRemoteConfig struct {
	APIURL                string     `json:"apiUrl"`
	DownloadPath          string     `json:"downloadPath"`
	AutoSyncEnabled       bool       `json:"autoSyncEnabled"`
	SyncIntervalHours     int        `json:"syncIntervalHours"`
	LastSyncAt            *time.Time `json:"lastSyncAt"`
	ConfigModifiedByAdmin bool       `json:"configModifiedByAdmin"`
}

// KioskWrite is the payload for creating or updating a kiosk.
type KioskWrite struct {
	PosID            string     `json:"posid"`
	KioskNo          int        `json:"kioskno"`
	Maker            string     `json:"maker"`
	Serial           string     `json:"serialno"`
	State            string     `json:"state"`
	RegisteredAt     *time.Time `json:"regdate"`
	ActivationDate   *time.Time `json:"setdate"`
	DeactivationDate *time.Time `json:"deldate"`
}

// KioskEvent is an audit/history record attributed to a kiosk.
type KioskEvent struct {
	KioskID   string `json:"kioskid"`
	EventType string `json:"eventType"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
}

// LoginResult carries the token pair issued by the backend.
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
}
