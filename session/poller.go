package session

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrInvalidInterval is returned by Run when the poll interval is not positive.
var ErrInvalidInterval = errors.New("poll interval must be positive")

// Poller rescans the devices periodically and on demand.
type Poller struct {
	Session  *Session
	Interval time.Duration

	limiter *rate.Limiter
	refresh chan struct{}
}

func NewPoller(session *Session, interval time.Duration) *Poller {
	return &Poller{
		Session:  session,
		Interval: interval,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		refresh:  make(chan struct{}, 1),
	}
}

// Refresh asks for an immediate scan. Requests coming faster than once per
// second are dropped and Refresh returns false.
func (p *Poller) Refresh() bool {
	if !p.limiter.Allow() {
		return false
	}
	select {
	case p.refresh <- struct{}{}:
	default:
	}
	return true
}

// Run scans once, then on every tick or refresh request until ctx is done.
// Scans never overlap.
func (p *Poller) Run(ctx context.Context) error {
	if p.Interval <= 0 {
		return ErrInvalidInterval
	}
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.scan(ctx)
		case <-p.refresh:
			p.scan(ctx)
		}
	}
}

func (p *Poller) scan(ctx context.Context) {
	_, err := p.Session.RefreshDevices().Wait(ctx)
	if err != nil && !errors.Is(err, ErrStale) && ctx.Err() == nil {
		p.Session.log.Warn().Msgf("device scan failed: %v", err)
	}
}
