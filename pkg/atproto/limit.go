package atproto

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Rate limit costs of PDS operations. Reads are not priced by the PDS, we
// count them like deletes.
const (
	PointsCreate = 3
	PointsUpdate = 2
	PointsDelete = 1
	PointsGet    = 1
)

// ErrOverBudget is returned when a single spend exceeds the whole budget.
var ErrOverBudget = errors.New("atproto: spend exceeds rate limit budget")

// Limiter meters rate limit points spent against PDSes from one IP. The
// budget refills continuously at points per interval and can be spent in one
// burst.
type Limiter struct {
	clock      clockwork.Clock
	lim        *rate.Limiter
	onThrottle func(wait time.Duration)

	mu        sync.Mutex
	spent     int
	throttled int
}

// NewLimiter creates a limiter allowing points spent per interval. onThrottle
// is called, if set, each time a spend has to wait.
func NewLimiter(points int, interval time.Duration, clock clockwork.Clock, onThrottle func(wait time.Duration)) *Limiter {
	if points <= 0 {
		points = 1
	}

	return &Limiter{
		clock:      clock,
		lim:        rate.NewLimiter(rate.Every(interval/time.Duration(points)), points),
		onThrottle: onThrottle,
	}
}

// Spend takes points from the budget, blocking until they are available or
// ctx is done.
func (l *Limiter) Spend(ctx context.Context, points int) error {
	now := l.clock.Now()
	r := l.lim.ReserveN(now, points)
	if !r.OK() {
		return fmt.Errorf("%w: %d points", ErrOverBudget, points)
	}

	if wait := r.DelayFrom(now); wait > 0 {
		l.mu.Lock()
		l.throttled++
		l.mu.Unlock()

		if l.onThrottle != nil {
			l.onThrottle(wait)
		}

		select {
		case <-l.clock.After(wait):
		case <-ctx.Done():
			r.CancelAt(l.clock.Now())
			return ctx.Err()
		}
	}

	l.mu.Lock()
	l.spent += points
	l.mu.Unlock()
	return nil
}

// Spent returns the points spent so far.
func (l *Limiter) Spent() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spent
}

// Throttled returns how many spends had to wait.
func (l *Limiter) Throttled() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.throttled
}
