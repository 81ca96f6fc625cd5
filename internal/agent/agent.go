// Package agent wires the kiosk daemon together: configuration, the
// backend client, the sync engine, the broker channel, the auto-sync
// schedule and the local diagnostics API.
package agent

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/kioskfleet/kiosk-fleet-go/internal/api"
	"github.com/kioskfleet/kiosk-fleet-go/internal/config"
	"github.com/kioskfleet/kiosk-fleet-go/internal/core/downloader"
	"github.com/kioskfleet/kiosk-fleet-go/internal/core/telemetry"
	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
	"github.com/kioskfleet/kiosk-fleet-go/internal/logfile"
	"github.com/kioskfleet/kiosk-fleet-go/internal/metrics"
	"github.com/kioskfleet/kiosk-fleet-go/internal/syncchannel"
)

// Agent is the long-running kiosk process.
type Agent struct {
	cfg    *config.Config
	store  *config.Store
	logger *logrus.Logger
	writer *logfile.Writer

	client  *fleetapi.Client
	engine  *downloader.Engine
	channel *syncchannel.Channel
	cron    *cron.Cron

	mu        sync.Mutex
	runCtx    context.Context
	cronEntry cron.EntryID
	cronHours int
	kioskPK   int64
}

// New builds an agent from the process config. It fails when the kiosk
// has no identity yet; provisioning happens through fleetctl.
func New(cfg *config.Config, logger *logrus.Logger) (*Agent, error) {
	loc, err := time.LoadLocation(cfg.Data.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Data.Timezone, err)
	}

	writer, err := logfile.New(cfg.LogDir(), loc)
	if err != nil {
		return nil, fmt.Errorf("failed to open log directory: %w", err)
	}
	logger.AddHook(logfile.NewHook(writer))

	store := config.NewStore(cfg.Data.Dir)
	kc, err := store.Load()
	if err != nil {
		return nil, err
	}
	if !kc.Configured() {
		return nil, fmt.Errorf("kiosk is not configured: set apiUrl and kioskId in %s", store.Path())
	}

	identity := fleetapi.KioskIdentity{PosID: kc.PosID, KioskID: kc.KioskID, KioskNo: kc.KioskNo}
	client := fleetapi.NewKioskClient(kc.APIURL, identity, logger)
	engine := downloader.New(client, store, logger)

	endpoint, err := syncchannel.EndpointFromAPI(kc.APIURL)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:    cfg,
		store:  store,
		logger: logger,
		writer: writer,
		client: client,
		engine: engine,
		cron:   cron.New(),
	}
	a.channel = syncchannel.New(syncchannel.Options{
		Endpoint:         endpoint,
		Identity:         identity,
		Handler:          a.onChannelMessage,
		Heartbeat:        a.heartbeatPayload,
		ReconnectSeconds: cfg.Channel.ReconnectSeconds,
		HeartbeatSeconds: cfg.Channel.HeartbeatSeconds,
		Logger:           logger,
	})
	return a, nil
}

// Run starts everything and blocks until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()

	a.logger.WithField("event", logfile.EventAppStart).Info("kiosk agent starting")
	a.recordEvent(ctx, logfile.EventAppStart, "agent process started")

	go a.pumpEvents(ctx)
	go a.pollChannelState(ctx)
	go a.channel.Run(ctx)

	kc, err := a.store.Load()
	if err != nil {
		return err
	}
	if kc.AutoSync {
		a.scheduleAutoSync(kc.SyncIntervalHours())
	}
	a.cron.Start()

	var apiErr chan error
	if a.cfg.Server.Enabled {
		addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
		server := api.New(addr, &provider{agent: a}, a.logger)
		apiErr = make(chan error, 1)
		go func() { apiErr <- server.Run(ctx) }()
	}

	// First pass shortly after startup so a freshly provisioned kiosk
	// does not wait a full interval for its content.
	go a.runSync(ctx, "startup")

	select {
	case <-ctx.Done():
	case err := <-apiErr:
		if err != nil {
			return err
		}
	}

	stopCtx := a.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
	}
	a.engine.Close()

	a.logger.WithField("event", logfile.EventAppExit).Info("kiosk agent stopping")
	a.recordEvent(context.Background(), logfile.EventAppExit, "agent process stopped")
	return a.writer.Close()
}

// TriggerSync starts a pass in the background. It reports
// downloader.ErrSyncInProgress when one is already running.
func (a *Agent) TriggerSync() error {
	if a.engine.Syncing() {
		return downloader.ErrSyncInProgress
	}
	go a.runSync(a.baseCtx(), "manual")
	return nil
}

// baseCtx is the lifetime context for background passes. Before Run it
// falls back to Background so provisioning-time calls still work.
func (a *Agent) baseCtx() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runCtx != nil {
		return a.runCtx
	}
	return context.Background()
}

func (a *Agent) runSync(ctx context.Context, reason string) {
	report, err := a.engine.Sync(ctx)
	if err != nil {
		if err == downloader.ErrSyncInProgress {
			return
		}
		metrics.SyncPasses.WithLabelValues("failed").Inc()
		a.logger.WithError(err).WithField("reason", reason).Error("sync pass failed")
		a.recordEvent(ctx, logfile.EventSyncFailed, err.Error())
		return
	}

	metrics.SyncPasses.WithLabelValues("ok").Inc()
	metrics.LastSyncTimestamp.Set(float64(report.FinishedAt.Unix()))
	a.recordEvent(ctx, logfile.EventSyncCompleted,
		fmt.Sprintf("%d downloaded, %d failed of %d assigned", report.Downloaded, report.Failed, report.Total))

	// An adopted admin config can carry a new interval; reschedule.
	if report.ConfigAdopted {
		if kc, err := a.store.Load(); err == nil {
			if kc.AutoSync {
				a.scheduleAutoSync(kc.SyncIntervalHours())
			} else {
				a.unscheduleAutoSync()
			}
		}
	}
}

// scheduleAutoSync (re)registers the interval job. Calling it with the
// currently scheduled interval is a no-op.
func (a *Agent) scheduleAutoSync(hours int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cronEntry != 0 && a.cronHours == hours {
		return
	}
	if a.cronEntry != 0 {
		a.cron.Remove(a.cronEntry)
	}
	entry, err := a.cron.AddFunc(fmt.Sprintf("@every %dh", hours), func() {
		a.logger.WithField("event", logfile.EventAutoSyncStarted).Info("interval sync starting")
		a.runSync(a.baseCtx(), "interval")
	})
	if err != nil {
		a.logger.WithError(err).Error("failed to schedule auto sync")
		return
	}
	a.cronEntry = entry
	a.cronHours = hours
	a.logger.WithField("intervalHours", hours).Info("auto sync scheduled")
}

func (a *Agent) unscheduleAutoSync() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cronEntry != 0 {
		a.cron.Remove(a.cronEntry)
		a.cronEntry = 0
		a.cronHours = 0
		a.logger.Info("auto sync disabled")
	}
}

// onChannelMessage handles broker messages. Sync orders start a pass;
// a config update also starts one, because the pass is where remote
// config gets adopted.
func (a *Agent) onChannelMessage(msg syncchannel.Message) {
	switch {
	case msg.TriggersSync():
		a.logger.WithField("event", logfile.EventSyncCommandReceived).
			WithField("type", string(msg.Type)).Info("sync ordered by server")
		if err := a.TriggerSync(); err != nil {
			a.logger.WithError(err).Info("server-ordered sync skipped")
		}
	case msg.Type == syncchannel.MessageConfigUpdate:
		a.logger.WithField("event", logfile.EventConfigUpdated).Info("config update announced by server")
		_ = a.TriggerSync()
	}
}

func (a *Agent) heartbeatPayload() (interface{}, error) {
	kc, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	snap, err := telemetry.Collect(kc.DownloadPath)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"telemetry": snap,
		"syncing":   a.engine.Syncing(),
		"lastSync":  kc.LastSync,
	}, nil
}

// pumpEvents mirrors engine events into the kiosk log file and the
// Prometheus counters.
func (a *Agent) pumpEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.engine.Events():
			if !ok {
				return
			}
			entry := a.logger.WithField("event", ev.Type)
			if ev.VideoID != 0 {
				entry = entry.WithField("videoId", ev.VideoID).WithField("title", ev.Title)
			}
			switch ev.Type {
			case logfile.EventDownloadProgress:
				// Noisy; keep it off the kiosk log file.
				a.logger.WithFields(logrus.Fields{
					"videoId": ev.VideoID,
					"bytes":   ev.Bytes,
					"total":   ev.Total,
				}).Debug("download progress")
			case logfile.EventDownloadCompleted:
				metrics.Downloads.WithLabelValues("completed").Inc()
				entry.Info(ev.Type.Label())
			case logfile.EventDownloadFailed:
				metrics.Downloads.WithLabelValues("failed").Inc()
				entry.WithField("cause", ev.Message).Error(ev.Type.Label())
				a.recordEvent(ctx, ev.Type, fmt.Sprintf("%s: %s", ev.Title, ev.Message))
			case logfile.EventSyncFailed:
				entry.WithField("cause", ev.Message).Error(ev.Type.Label())
			default:
				entry.Info(ev.Type.Label())
			}
		}
	}
}

// pollChannelState keeps the channel gauge current.
func (a *Agent) pollChannelState(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	connected := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := a.channel.Connected()
			if now != connected {
				connected = now
				if connected {
					metrics.ChannelConnected.Set(1)
					a.logger.WithField("event", logfile.EventChannelConnected).Info("sync channel up")
				} else {
					metrics.ChannelConnected.Set(0)
					a.logger.WithField("event", logfile.EventChannelDisconnected).Warn("sync channel down")
				}
			}
		}
	}
}

// recordEvent reports an audit event to the backend. Failures are
// logged and otherwise ignored; the local log file already has the
// record.
func (a *Agent) recordEvent(ctx context.Context, typ logfile.EventType, message string) {
	kc, err := a.store.Load()
	if err != nil {
		return
	}
	ev := &fleetapi.KioskEvent{KioskID: kc.KioskID, EventType: string(typ), Message: message}
	if err := a.client.RecordKioskEvent(ctx, ev); err != nil {
		a.logger.WithError(err).Debug("failed to record kiosk event")
	}
}

// kioskPKCached resolves and caches the numeric kiosk id.
func (a *Agent) kioskPKCached(ctx context.Context) (int64, error) {
	a.mu.Lock()
	pk := a.kioskPK
	a.mu.Unlock()
	if pk != 0 {
		return pk, nil
	}

	kc, err := a.store.Load()
	if err != nil {
		return 0, err
	}
	kiosk, err := a.client.GetKioskByKioskID(ctx, kc.KioskID)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	a.kioskPK = kiosk.ID
	a.mu.Unlock()
	return kiosk.ID, nil
}
