package auth

import (
	"sync"
	"time"

	"github.com/mrlokans/passage/internal/config"
	"github.com/mrlokans/passage/internal/database/users"
)

// TooManyAttemptsMessage is shown while a client is locked out. It is the
// same for registered and unknown emails.
const TooManyAttemptsMessage = "Too many login attempts. Please try again later."

// ThrottleConfig bounds failed logins per client IP and email.
type ThrottleConfig struct {
	MaxFailures     int           // Failures within Window that trigger a lockout
	Window          time.Duration // Failures older than this are forgotten
	Lockout         time.Duration // How long a locked pair is refused
	CleanupInterval time.Duration // How often idle entries are dropped
}

// ThrottleConfigFromAuth maps the auth settings onto a throttle config.
func ThrottleConfigFromAuth(cfg config.Auth) ThrottleConfig {
	return ThrottleConfig{
		MaxFailures: cfg.MaxLoginAttempts,
		Window:      cfg.RateLimitWindow,
		Lockout:     cfg.LockoutDuration,
	}
}

// LoginThrottle refuses login attempts for an IP+email pair once it has
// failed MaxFailures times within Window. Attempts are reserved with Begin
// and settled with Fail, Succeed or Cancel, so concurrent attempts for the
// same pair can never exceed the limit between them.
type LoginThrottle struct {
	cfg ThrottleConfig
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*throttleEntry

	stop     chan struct{}
	stopOnce sync.Once
}

type throttleEntry struct {
	failures    int
	inFlight    int
	windowStart time.Time
	lockedUntil time.Time
}

// NewLoginThrottle starts a throttle and its cleanup goroutine. Call Stop
// when done.
func NewLoginThrottle(cfg ThrottleConfig) *LoginThrottle {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	t := &LoginThrottle{
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[string]*throttleEntry),
		stop:    make(chan struct{}),
	}
	go t.cleanupLoop()
	return t
}

// Stop ends the cleanup goroutine. It is safe to call twice.
func (t *LoginThrottle) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func throttleKey(ip, email string) string {
	return ip + "|" + users.NormalizeEmail(email)
}

// Begin reserves one login attempt. When the pair is locked out, or every
// remaining attempt in the window is already in flight, it returns
// allowed=false and how long the client should wait. A nil throttle allows
// everything.
func (t *LoginThrottle) Begin(ip, email string) (attempt *LoginAttempt, retryAfter time.Duration, allowed bool) {
	if t == nil {
		return nil, 0, true
	}

	key := throttleKey(ip, email)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[key]
	if e == nil {
		e = &throttleEntry{windowStart: now}
		t.entries[key] = e
	}
	t.expire(e, now)

	if now.Before(e.lockedUntil) {
		return nil, e.lockedUntil.Sub(now), false
	}
	if e.failures+e.inFlight >= t.cfg.MaxFailures {
		return nil, e.windowStart.Add(t.cfg.Window).Sub(now), false
	}

	e.inFlight++
	return &LoginAttempt{throttle: t, key: key}, 0, true
}

// expire forgets failures once the window has passed and clears a lockout
// that has run out. Callers hold t.mu.
func (t *LoginThrottle) expire(e *throttleEntry, now time.Time) {
	if !e.lockedUntil.IsZero() && !now.Before(e.lockedUntil) {
		e.lockedUntil = time.Time{}
		e.failures = 0
		e.windowStart = now
	}
	if e.lockedUntil.IsZero() && now.Sub(e.windowStart) > t.cfg.Window {
		e.failures = 0
		e.windowStart = now
	}
}

// settle releases a reservation and applies fn to the entry under the lock.
func (t *LoginThrottle) settle(key string, fn func(e *throttleEntry, now time.Time)) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[key]
	if e == nil {
		// A success for the same pair dropped the entry meanwhile
		e = &throttleEntry{windowStart: now}
		t.entries[key] = e
	} else if e.inFlight > 0 {
		e.inFlight--
	}
	t.expire(e, now)
	fn(e, now)
}

// cleanupLoop periodically removes idle entries.
func (t *LoginThrottle) cleanupLoop() {
	ticker := time.NewTicker(t.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.cleanup()
		case <-t.stop:
			return
		}
	}
}

func (t *LoginThrottle) cleanup() {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	for key, e := range t.entries {
		t.expire(e, now)
		if e.inFlight == 0 && e.failures == 0 && e.lockedUntil.IsZero() {
			delete(t.entries, key)
		}
	}
}

// LoginAttempt is a reserved attempt. Exactly one of Fail, Succeed or
// Cancel should be called; later calls are ignored. Methods on a nil
// attempt do nothing.
type LoginAttempt struct {
	throttle *LoginThrottle
	key      string
	once     sync.Once
}

// Fail counts a credential failure. It reports whether the pair is now
// locked out.
func (a *LoginAttempt) Fail() (locked bool) {
	if a == nil {
		return false
	}
	a.once.Do(func() {
		a.throttle.settle(a.key, func(e *throttleEntry, now time.Time) {
			e.failures++
			if e.failures >= a.throttle.cfg.MaxFailures {
				e.lockedUntil = now.Add(a.throttle.cfg.Lockout)
				locked = true
			}
		})
	})
	return locked
}

// Succeed forgets earlier failures for the pair.
func (a *LoginAttempt) Succeed() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.throttle.settle(a.key, func(e *throttleEntry, _ time.Time) {
			e.failures = 0
			e.lockedUntil = time.Time{}
		})
	})
}

// Cancel releases the reservation without counting it, for attempts that
// ended in a server-side error.
func (a *LoginAttempt) Cancel() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.throttle.settle(a.key, func(*throttleEntry, time.Time) {})
	})
}
