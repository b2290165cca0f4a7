// Package daemon schedules recurring backup passes with a cron
// expression.
package daemon

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Daemon handles the scheduling and execution of backup passes
type Daemon struct {
	schedule string
	pass     func() error
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a daemon that runs pass on the given cron schedule
func New(schedule string, pass func() error) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		schedule: schedule,
		pass:     pass,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers the schedule and starts the cron scheduler. Passes
// run strictly one at a time; cron skips an invocation if the previous
// one is still running.
func (d *Daemon) Start() error {
	if err := ParseCronSchedule(d.schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", d.schedule, err)
	}

	_, err := d.cron.AddFunc(d.schedule, func() {
		logrus.Info("Starting scheduled backup pass")
		if err := d.pass(); err != nil {
			logrus.Errorf("Scheduled backup pass failed: %v", err)
			return
		}
		logrus.Info("Scheduled backup pass completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule backups: %w", err)
	}

	d.cron.Start()
	logrus.Infof("Daemon started with schedule: %s", d.schedule)
	return nil
}

// Stop gracefully shuts down the daemon, waiting for a running pass
func (d *Daemon) Stop() {
	logrus.Info("Stopping daemon...")
	d.cancel()
	<-d.cron.Stop().Done()
	logrus.Info("Daemon stopped")
}

// Run starts the daemon and blocks until Stop is called
func (d *Daemon) Run() error {
	if err := d.Start(); err != nil {
		return err
	}
	<-d.ctx.Done()
	return nil
}

// ParseCronSchedule validates a cron schedule expression
func ParseCronSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	return err
}
