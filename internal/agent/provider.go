package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kioskfleet/kiosk-fleet-go/internal/api"
	"github.com/kioskfleet/kiosk-fleet-go/internal/core/telemetry"
	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
)

// provider adapts the agent to the local API.
type provider struct {
	agent *Agent
}

func (p *provider) Status(ctx context.Context) (*api.Status, error) {
	kc, err := p.agent.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load kiosk config: %w", err)
	}

	st := &api.Status{
		KioskID:          kc.KioskID,
		PosID:            kc.PosID,
		KioskNo:          kc.KioskNo,
		DownloadPath:     kc.DownloadPath,
		AutoSync:         kc.AutoSync,
		SyncInterval:     kc.SyncIntervalHours(),
		LastSync:         kc.LastSync,
		ChannelConnected: p.agent.channel.Connected(),
		Syncing:          p.agent.engine.Syncing(),
	}
	if snap, err := telemetry.Collect(kc.DownloadPath); err == nil {
		st.Telemetry = snap
	}
	return st, nil
}

func (p *provider) Videos(ctx context.Context) ([]fleetapi.VideoAssignment, error) {
	pk, err := p.agent.kioskPKCached(ctx)
	if err != nil {
		return nil, err
	}
	return p.agent.client.ListKioskVideos(ctx, pk)
}

func (p *provider) TriggerSync() error {
	return p.agent.TriggerSync()
}

func (p *provider) LogTail(lines int) ([]string, error) {
	path, err := p.agent.writer.ActiveFile()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active log file: %w", err)
	}
	return tailFile(path, lines)
}

// tailFile returns the last n lines of the file. Today's log file is
// capped at the rotation threshold, so reading it whole is fine.
func tailFile(path string, n int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) == 1 && all[0] == "" {
		return nil, nil
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}
