package rooms

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Archiver periodically archives rooms that have been idle too long.
type Archiver struct {
	svc      *Service
	interval time.Duration
	maxIdle  time.Duration
	log      *zerolog.Logger
}

// NewArchiver creates an archiver. A non-positive interval disables it.
func NewArchiver(svc *Service, interval, maxIdle time.Duration, logger *zerolog.Logger) *Archiver {
	return &Archiver{svc: svc, interval: interval, maxIdle: maxIdle, log: logger}
}

// Run sweeps every interval until ctx is done.
func (a *Archiver) Run(ctx context.Context) {
	if a.interval <= 0 || a.maxIdle <= 0 {
		a.log.Debug().Msg("room archiver disabled")
		return
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.svc.ArchiveInactive(ctx, a.maxIdle); err != nil {
				a.log.Warn().Err(err).Msg("archive sweep failed")
			}
		}
	}
}
