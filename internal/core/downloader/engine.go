// Package downloader runs the kiosk sync pass: it reconciles the local
// media folder against the server's per-video download statuses, then
// downloads whatever is still missing, one video at a time.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/h2non/filetype"
	"github.com/sirupsen/logrus"

	"github.com/kioskfleet/kiosk-fleet-go/internal/config"
	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
	"github.com/kioskfleet/kiosk-fleet-go/internal/logfile"
)

// ErrSyncInProgress is returned when a sync pass is requested while one
// is already running. Passes never queue or overlap.
var ErrSyncInProgress = errors.New("sync already in progress")

// downloadTimeout bounds a single video transfer, not the whole pass.
const downloadTimeout = 30 * time.Minute

// API is the subset of the backend client the engine needs.
type API interface {
	GetKioskByKioskID(ctx context.Context, kioskid string) (*fleetapi.Kiosk, error)
	GetKioskConfig(ctx context.Context, kioskid string) (*fleetapi.KioskRemoteConfig, error)
	ReportKioskConfig(ctx context.Context, kioskid string, cfg *fleetapi.KioskRemoteConfig) error
	ListKioskVideos(ctx context.Context, kioskID int64) ([]fleetapi.VideoAssignment, error)
	GetVideo(ctx context.Context, videoID int64) (*fleetapi.Video, error)
	ReportDownloadStatus(ctx context.Context, kioskID, videoID int64, status fleetapi.DownloadStatus) error
}

// Event is one observable step of a sync pass, mirrored to the event
// channel for the local API and the kiosk log file. Bytes and Total are
// set on progress events only; Total is 0 when the server does not
// announce a size.
type Event struct {
	Type    logfile.EventType
	VideoID int64
	Title   string
	Message string
	Bytes   int64
	Total   int64
}

// Report summarizes one completed sync pass.
type Report struct {
	Total         int       `json:"total"`
	Downloaded    int       `json:"downloaded"`
	Failed        int       `json:"failed"`
	AlreadyLocal  int       `json:"alreadyLocal"`
	ConfigAdopted bool      `json:"configAdopted"`
	FinishedAt    time.Time `json:"finishedAt"`
}

// Engine drives sync passes for one kiosk.
type Engine struct {
	api    API
	store  *config.Store
	http   *resty.Client
	logger *logrus.Logger
	events chan Event

	syncing atomic.Bool
	now     func() time.Time
}

// New creates an engine. The store provides the kiosk identity and the
// download path, and receives the lastSync stamp after each pass.
func New(api API, store *config.Store, logger *logrus.Logger) *Engine {
	return &Engine{
		api:    api,
		store:  store,
		http:   resty.New().SetTimeout(downloadTimeout),
		logger: logger,
		events: make(chan Event, 64),
		now:    time.Now,
	}
}

// Events exposes the pass event stream. Events are dropped, not
// blocked on, when the consumer falls behind.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Syncing reports whether a pass is currently running.
func (e *Engine) Syncing() bool {
	return e.syncing.Load()
}

// Close ends the event stream. It waits for a running pass to finish
// and leaves the engine unable to start another, so consumers can range
// over Events until it closes.
func (e *Engine) Close() {
	for !e.syncing.CompareAndSwap(false, true) {
		time.Sleep(10 * time.Millisecond)
	}
	close(e.events)
}

// Sync runs one full pass. Only one pass runs at a time; a second call
// while one is active returns ErrSyncInProgress.
func (e *Engine) Sync(ctx context.Context) (*Report, error) {
	if !e.syncing.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer e.syncing.Store(false)

	cfg, err := e.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load kiosk config: %w", err)
	}
	if !cfg.Configured() {
		return nil, errors.New("kiosk is not configured: apiUrl and kioskId are required")
	}

	e.emit(Event{Type: logfile.EventSyncStarted})
	e.logger.WithField("kioskid", cfg.KioskID).Info("sync pass started")

	adopted, err := e.reconcileConfig(ctx, cfg)
	if err != nil {
		// A config poll failure does not abort the pass; the last known
		// local settings still describe a usable download target.
		e.logger.WithError(err).Warn("config reconciliation failed")
	}

	kiosk, err := e.api.GetKioskByKioskID(ctx, cfg.KioskID)
	if err != nil {
		e.emit(Event{Type: logfile.EventSyncFailed, Message: err.Error()})
		return nil, fmt.Errorf("failed to resolve kiosk %s: %w", cfg.KioskID, err)
	}

	assignments, err := e.api.ListKioskVideos(ctx, kiosk.ID)
	if err != nil {
		e.emit(Event{Type: logfile.EventSyncFailed, Message: err.Error()})
		return nil, fmt.Errorf("failed to list assigned videos: %w", err)
	}

	report := &Report{Total: len(assignments), ConfigAdopted: adopted}

	queue := e.reconcileLocal(ctx, kiosk.ID, cfg.DownloadPath, assignments, report)

	for _, a := range queue {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := e.download(ctx, kiosk.ID, cfg.DownloadPath, a); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			report.Failed++
			continue
		}
		report.Downloaded++
	}

	report.FinishedAt = e.now()
	e.stampLastSync(ctx, cfg, report.FinishedAt)

	e.emit(Event{Type: logfile.EventSyncCompleted,
		Message: fmt.Sprintf("%d downloaded, %d failed of %d assigned", report.Downloaded, report.Failed, report.Total)})
	e.logger.WithFields(logrus.Fields{
		"total":      report.Total,
		"downloaded": report.Downloaded,
		"failed":     report.Failed,
	}).Info("sync pass finished")

	return report, nil
}

// reconcileConfig polls the server-held config and, when an admin has
// changed it since the last pass, adopts the new values locally and
// acknowledges by reporting back with the modified flag cleared.
func (e *Engine) reconcileConfig(ctx context.Context, cfg *config.KioskConfig) (bool, error) {
	remote, err := e.api.GetKioskConfig(ctx, cfg.KioskID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch remote config: %w", err)
	}
	if !remote.ConfigModifiedByAdmin {
		return false, nil
	}

	if remote.APIURL != "" {
		cfg.APIURL = remote.APIURL
	}
	if remote.DownloadPath != "" {
		cfg.DownloadPath = remote.DownloadPath
	}
	cfg.AutoSync = remote.AutoSyncEnabled
	cfg.SyncInterval = remote.SyncIntervalHours
	if err := e.store.Save(cfg); err != nil {
		return false, fmt.Errorf("failed to persist adopted config: %w", err)
	}

	remote.ConfigModifiedByAdmin = false
	if err := e.api.ReportKioskConfig(ctx, cfg.KioskID, remote); err != nil {
		return true, fmt.Errorf("failed to acknowledge config update: %w", err)
	}

	e.emit(Event{Type: logfile.EventConfigUpdated, Message: "adopted admin config change"})
	e.logger.WithFields(logrus.Fields{
		"downloadPath": cfg.DownloadPath,
		"syncInterval": cfg.SyncInterval,
		"autoSync":     cfg.AutoSync,
	}).Info("adopted admin config change")
	return true, nil
}

// reconcileLocal walks the assignments against the download folder and
// corrects server statuses that disagree with what is actually on disk.
// It returns the assignments that still need downloading, in server
// order.
func (e *Engine) reconcileLocal(ctx context.Context, kioskID int64, dir string, assignments []fleetapi.VideoAssignment, report *Report) []fleetapi.VideoAssignment {
	var queue []fleetapi.VideoAssignment
	for _, a := range assignments {
		path := filepath.Join(dir, SafeFileName(a.Title, a.FileName))
		_, statErr := os.Stat(path)
		onDisk := statErr == nil

		switch {
		case onDisk && a.DownloadStatus != fleetapi.DownloadCompleted:
			// The file is already here from an earlier run; tell the
			// server instead of downloading it again.
			if err := e.api.ReportDownloadStatus(ctx, kioskID, a.VideoID, fleetapi.DownloadCompleted); err != nil {
				e.logger.WithError(err).WithField("videoId", a.VideoID).Warn("failed to report local file as completed")
			}
			report.AlreadyLocal++
		case !onDisk && a.DownloadStatus == fleetapi.DownloadCompleted:
			// Something removed the file out from under us.
			if err := e.api.ReportDownloadStatus(ctx, kioskID, a.VideoID, fleetapi.DownloadPending); err != nil {
				e.logger.WithError(err).WithField("videoId", a.VideoID).Warn("failed to reset missing file to pending")
			}
			queue = append(queue, a)
		case !onDisk:
			queue = append(queue, a)
		default:
			report.AlreadyLocal++
		}
	}
	return queue
}

// download fetches one video to the download folder. The transfer goes
// to a temp file first and is renamed only after the content sniff
// passes, so a crash never leaves a half-written file under the final
// name.
func (e *Engine) download(ctx context.Context, kioskID int64, dir string, a fleetapi.VideoAssignment) error {
	e.emit(Event{Type: logfile.EventDownloadStarted, VideoID: a.VideoID, Title: a.Title})

	video, err := e.api.GetVideo(ctx, a.VideoID)
	if err != nil {
		return e.fail(ctx, kioskID, a, fmt.Errorf("failed to resolve download url: %w", err))
	}

	if err := e.api.ReportDownloadStatus(ctx, kioskID, a.VideoID, fleetapi.DownloadDownloading); err != nil {
		e.logger.WithError(err).WithField("videoId", a.VideoID).Warn("failed to report downloading status")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return e.fail(ctx, kioskID, a, fmt.Errorf("failed to create download folder: %w", err))
	}

	final := filepath.Join(dir, SafeFileName(a.Title, a.FileName))
	tmp := final + ".part"

	if err := e.fetch(ctx, video.S3URL, tmp, a); err != nil {
		_ = os.Remove(tmp)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// A cancelled pass leaves the server status untouched; the
			// next pass picks the video up again.
			return err
		}
		return e.fail(ctx, kioskID, a, err)
	}

	if err := verifyVideo(tmp); err != nil {
		_ = os.Remove(tmp)
		return e.fail(ctx, kioskID, a, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return e.fail(ctx, kioskID, a, fmt.Errorf("failed to move video into place: %w", err))
	}

	if err := e.api.ReportDownloadStatus(ctx, kioskID, a.VideoID, fleetapi.DownloadCompleted); err != nil {
		e.logger.WithError(err).WithField("videoId", a.VideoID).Warn("failed to report completed status")
	}

	e.emit(Event{Type: logfile.EventDownloadCompleted, VideoID: a.VideoID, Title: a.Title})
	e.logger.WithFields(logrus.Fields{"videoId": a.VideoID, "title": a.Title}).Info("video downloaded")
	return nil
}

// progressStep is how many bytes pass between progress events.
const progressStep = 1 << 20

// fetch streams url into path, emitting progress events as bytes land.
func (e *Engine) fetch(ctx context.Context, url, path string, a fleetapi.VideoAssignment) error {
	res, err := e.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("download request failed: %w", err)
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() >= 400 {
		return fmt.Errorf("download request failed with status %d", res.StatusCode())
	}

	total := res.RawResponse.ContentLength
	if total <= 0 {
		total = a.FileSize
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}

	counter := &progressWriter{
		dst: f,
		report: func(n int64) {
			e.emit(Event{Type: logfile.EventDownloadProgress, VideoID: a.VideoID, Title: a.Title, Bytes: n, Total: total})
		},
	}
	_, err = io.Copy(counter, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to write video stream: %w", err)
	}
	counter.flush()
	return nil
}

// progressWriter counts bytes through to dst and reports once per
// progressStep, plus a final report via flush.
type progressWriter struct {
	dst      io.Writer
	written  int64
	reported int64
	report   func(n int64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	w.written += int64(n)
	if w.written-w.reported >= progressStep {
		w.reported = w.written
		w.report(w.written)
	}
	return n, err
}

func (w *progressWriter) flush() {
	if w.written != w.reported {
		w.report(w.written)
	}
}

// fail records a failed download with the server and the event stream,
// then returns the original error.
func (e *Engine) fail(ctx context.Context, kioskID int64, a fleetapi.VideoAssignment, cause error) error {
	if err := e.api.ReportDownloadStatus(ctx, kioskID, a.VideoID, fleetapi.DownloadFailed); err != nil {
		e.logger.WithError(err).WithField("videoId", a.VideoID).Warn("failed to report failed status")
	}
	e.emit(Event{Type: logfile.EventDownloadFailed, VideoID: a.VideoID, Title: a.Title, Message: cause.Error()})
	e.logger.WithError(cause).WithFields(logrus.Fields{"videoId": a.VideoID, "title": a.Title}).Error("video download failed")
	return cause
}

// verifyVideo sniffs the file header and rejects anything that is not a
// recognized video container. S3 happily serves an XML error document
// with a 200 when a presigned URL has gone stale.
func verifyVideo(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to reopen downloaded file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	if !filetype.IsVideo(head[:n]) {
		return errors.New("downloaded content is not a video file")
	}
	return nil
}

// stampLastSync persists the pass timestamp locally and mirrors it to
// the server config record.
func (e *Engine) stampLastSync(ctx context.Context, cfg *config.KioskConfig, at time.Time) {
	cfg.LastSync = &at
	if err := e.store.Save(cfg); err != nil {
		e.logger.WithError(err).Warn("failed to persist lastSync")
	}
	remote := &fleetapi.KioskRemoteConfig{
		APIURL:            cfg.APIURL,
		DownloadPath:      cfg.DownloadPath,
		AutoSyncEnabled:   cfg.AutoSync,
		SyncIntervalHours: cfg.SyncIntervalHours(),
		LastSyncAt:        &at,
	}
	if err := e.api.ReportKioskConfig(ctx, cfg.KioskID, remote); err != nil {
		e.logger.WithError(err).Warn("failed to report lastSync to server")
	}
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}
