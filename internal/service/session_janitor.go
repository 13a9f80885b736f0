package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/home-store/internal/lock"
	"github.com/prn-tf/home-store/internal/metrics"
)

// SessionJanitor periodically purges expired sessions.
// The purge runs under a lock so only one instance does the work.
type SessionJanitor struct {
	sessions *SessionService
	locker   lock.Locker
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	interval time.Duration

	// Control
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewSessionJanitor creates a new janitor. It does nothing until Start.
func NewSessionJanitor(
	sessions *SessionService,
	locker lock.Locker,
	m *metrics.Metrics,
	interval time.Duration,
	logger zerolog.Logger,
) *SessionJanitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionJanitor{
		sessions: sessions,
		locker:   locker,
		metrics:  m,
		logger:   logger.With().Str("service", "session-janitor").Logger(),
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the purge scheduler.
func (j *SessionJanitor) Start() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.mu.Unlock()

	j.logger.Info().Dur("interval", j.interval).Msg("Starting session janitor")

	go j.runLoop()
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (j *SessionJanitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.mu.Unlock()

	close(j.stopChan)
	<-j.doneChan

	j.logger.Info().Msg("Session janitor stopped")
}

func (j *SessionJanitor) runLoop() {
	defer close(j.doneChan)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-j.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = j.RunOnce(ctx)
		case <-j.stopChan:
			return
		}
	}
}

// RunOnce purges expired sessions once. It returns 0 without error when
// another instance holds the purge lock.
func (j *SessionJanitor) RunOnce(ctx context.Context) (int64, error) {
	var purged int64
	opts := lock.Options{TTL: j.interval / 2, MaxRetries: 0}
	if opts.TTL < time.Minute {
		opts.TTL = time.Minute
	}

	err := lock.WithLock(ctx, j.locker, lock.Keys.SessionPurge(), opts, func(ctx context.Context) error {
		n, err := j.sessions.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		purged = n
		return nil
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		j.logger.Debug().Msg("session purge lock held by another process, skipping run")
		return 0, nil
	}
	if err != nil {
		j.logger.Error().Err(err).Msg("session purge failed")
		return 0, err
	}

	j.metrics.Purged(purged)
	if purged > 0 {
		j.logger.Info().Int64("purged", purged).Msg("expired sessions purged")
	}
	return purged, nil
}
