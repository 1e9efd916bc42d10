package api

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"parceldesk/config"
	"parceldesk/core/store"
	"parceldesk/core/utils"
)

// maintenanceJobs runs the scheduled purge of expired and revoked
// refresh tokens so the table does not grow without bound.
type maintenanceJobs struct {
	cfg     *config.AppConfig
	refresh store.RefreshTokensStore
	logger  *utils.Logger
	cron    *cron.Cron
}

func newMaintenanceJobs(cfg *config.AppConfig, refresh store.RefreshTokensStore, logger *utils.Logger) *maintenanceJobs {
	return &maintenanceJobs{cfg: cfg, refresh: refresh, logger: logger}
}

func (m *maintenanceJobs) Start() {
	if m.cfg == nil || !m.cfg.Maintenance.Enabled {
		return
	}
	schedule := m.cfg.Maintenance.PurgeSchedule
	if schedule == "" {
		schedule = "@every 1h"
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, m.purgeOnce); err != nil {
		if m.logger != nil {
			m.logger.Errorf("maintenance schedule %q: %v", schedule, err)
		}
		return
	}
	m.cron = c
	c.Start()
}

func (m *maintenanceJobs) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

func (m *maintenanceJobs) purgeOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := m.refresh.PurgeExpired(ctx, time.Now())
	if err != nil {
		if m.logger != nil {
			m.logger.Errorf("purge refresh tokens: %v", err)
		}
		return
	}
	if n > 0 && m.logger != nil {
		m.logger.Printf("purged %d expired refresh tokens", n)
	}
}
