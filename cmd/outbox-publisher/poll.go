package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	maxBackoff   = 10 * time.Second
	jitterWindow = 250 * time.Millisecond
)

// poller paces the relay loop. Idle polls wait one interval; consecutive
// failures double the wait up to maxBackoff.
type poller struct {
	interval time.Duration
	backoff  time.Duration
	jitter   func(time.Duration) time.Duration
}

func newPoller(interval time.Duration) *poller {
	return &poller{interval: interval, backoff: interval, jitter: withJitter}
}

func (p *poller) reset() {
	p.backoff = p.interval
}

// next returns the wait before the following poll.
func (p *poller) next(failed bool) time.Duration {
	if !failed {
		p.reset()
		return p.interval
	}
	p.backoff = min(max(p.backoff, p.interval)*2, maxBackoff)
	return p.backoff
}

func (p *poller) wait(ctx context.Context, failed bool) error {
	d := p.jitter(p.next(failed))
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
