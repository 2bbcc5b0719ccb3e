package CronJobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// IdleMonitor shuts the service down once the browser page stops sending
// heartbeats.
type IdleMonitor struct {
	cronScheduler *cron.Cron
	schedule      string
	timeout       time.Duration
	onIdle        func()
	log           logrus.FieldLogger
	jobID         cron.EntryID

	mu       sync.Mutex
	lastBeat time.Time
	fired    bool
	now      func() time.Time
}

// NewIdleMonitor checks on schedule (cron spec with seconds, or a descriptor
// such as "@every 2s") and calls onIdle once when no heartbeat arrived
// within timeout.
func NewIdleMonitor(schedule string, timeout time.Duration, onIdle func(), log logrus.FieldLogger) *IdleMonitor {
	return &IdleMonitor{
		cronScheduler: cron.New(cron.WithSeconds()),
		schedule:      schedule,
		timeout:       timeout,
		onIdle:        onIdle,
		log:           log,
		lastBeat:      time.Now(),
		now:           time.Now,
	}
}

// Start registers the check and starts the scheduler. The idle clock starts
// now.
func (m *IdleMonitor) Start() error {
	m.Touch()

	var err error
	m.jobID, err = m.cronScheduler.AddFunc(m.schedule, func() { m.Check() })
	if err != nil {
		return fmt.Errorf("error scheduling idle check: %w", err)
	}
	m.cronScheduler.Start()
	m.log.WithFields(logrus.Fields{"schedule": m.schedule, "timeout": m.timeout}).Info("idle monitor started")
	return nil
}

func (m *IdleMonitor) Stop() {
	if m.cronScheduler != nil {
		m.cronScheduler.Stop()
	}
}

// Touch records a heartbeat.
func (m *IdleMonitor) Touch() {
	m.mu.Lock()
	m.lastBeat = m.now()
	m.mu.Unlock()
}

// Expire backdates the last heartbeat past the timeout so the next check
// shuts down. The page calls this when it is closed.
func (m *IdleMonitor) Expire() {
	m.mu.Lock()
	m.lastBeat = m.now().Add(-(m.timeout + 5*time.Second))
	m.mu.Unlock()
}

// Check fires onIdle if the timeout has passed. It reports whether it fired;
// onIdle runs at most once.
func (m *IdleMonitor) Check() bool {
	m.mu.Lock()
	idle := m.now().Sub(m.lastBeat)
	if m.fired || idle <= m.timeout {
		m.mu.Unlock()
		return false
	}
	m.fired = true
	m.mu.Unlock()

	m.log.WithField("idle", idle.Round(time.Second)).Info("no heartbeat, shutting down")
	if m.onIdle != nil {
		m.onIdle()
	}
	return true
}
