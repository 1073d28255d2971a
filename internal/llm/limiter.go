package llm

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Limiter caps outbound generation calls per minute and per UTC day. Each client owns its
// own limiter; time comes from the injected clock so tests can run independent limiters.
type Limiter struct {
	mu sync.Mutex

	clock  clockwork.Clock
	minute *rate.Limiter

	dailyLimit int
	usedToday  int
	dayKey     string
}

// NewLimiter creates a limiter. Zero or negative limits disable that dimension.
func NewLimiter(clock clockwork.Clock, requestsPerMinute, requestsPerDay int) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	minute := rate.NewLimiter(rate.Inf, 0)
	if requestsPerMinute > 0 {
		minute = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute)
	}

	if requestsPerDay < 0 {
		requestsPerDay = 0
	}

	return &Limiter{
		clock:      clock,
		minute:     minute,
		dailyLimit: requestsPerDay,
	}
}

// Allow reserves one call if both budgets have room
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	todayKey := now.UTC().Format("2006-01-02")
	if l.dayKey != todayKey {
		l.dayKey = todayKey
		l.usedToday = 0
	}

	if l.dailyLimit > 0 && l.usedToday >= l.dailyLimit {
		return false
	}
	if !l.minute.AllowN(now, 1) {
		return false
	}

	l.usedToday++
	return true
}

// Remaining returns how many calls are left today, or -1 when there is no daily cap
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dailyLimit == 0 {
		return -1
	}
	if l.dayKey != l.clock.Now().UTC().Format("2006-01-02") {
		return l.dailyLimit
	}
	return l.dailyLimit - l.usedToday
}
