package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"appointment-portal/internal/health"
	"appointment-portal/internal/logger"
	"appointment-portal/internal/middleware"
	"appointment-portal/internal/session"
)

const (
	probeSpec   = "@every 30s"
	sweepSpec   = "@every 5m"
	limiterSpec = "@every 1m"

	limiterIdle = 3 * time.Minute
)

type Jobs struct {
	Prober   *health.Prober
	Sessions *session.Manager
	Limiter  *middleware.RateLimiter
	Log      logger.Logger
}

// StartJobs schedules the housekeeping jobs and returns the running cron;
// the caller stops it on shutdown.
func StartJobs(j Jobs) (*cron.Cron, error) {
	c := cron.New()

	if _, err := c.AddFunc(probeSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		j.Prober.Probe(ctx)
		if r := j.Prober.Report(); r.Status != "ok" {
			j.Log.Warn("backends degraded", r.Services)
		}
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(sweepSpec, func() {
		n, err := j.Sessions.Sweep(context.Background())
		if err != nil {
			j.Log.Error("session sweep failed", err)
			return
		}
		if n > 0 {
			j.Log.Info("expired sessions removed", n)
		}
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(limiterSpec, func() {
		j.Limiter.Sweep(limiterIdle)
	}); err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
