package jobs

import (
	"time"

	"go.uber.org/zap"
)

// Sweeper drops sessions idle since cutoff
type Sweeper interface {
	Sweep(cutoff time.Time) int
}

// SessionSweeper periodically expires abandoned investment sessions
type SessionSweeper struct {
	store    Sweeper
	idleTTL  time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
	stopChan chan struct{}
}

// NewSessionSweeper creates a new session sweeper job
func NewSessionSweeper(store Sweeper, idleTTL, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	return &SessionSweeper{
		store:    store,
		idleTTL:  idleTTL,
		interval: interval,
		logger:   logger.Named("session_sweeper"),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop
func (s *SessionSweeper) Start() {
	s.logger.Info("starting session sweeper",
		zap.Duration("idle_ttl", s.idleTTL),
		zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			s.logger.Info("stopping session sweeper")
			return
		}
	}
}

// Stop stops the sweep loop
func (s *SessionSweeper) Stop() {
	close(s.stopChan)
}

func (s *SessionSweeper) sweep() int {
	removed := s.store.Sweep(s.now().Add(-s.idleTTL))
	if removed > 0 {
		s.logger.Info("expired idle sessions", zap.Int("count", removed))
	}
	return removed
}
