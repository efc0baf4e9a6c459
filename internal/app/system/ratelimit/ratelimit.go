// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Counter decides whether another request for key fits in the current
// fixed window. Implementations must be safe for concurrent use.
type Counter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// Limiter is an in-process Counter using fixed windows per key.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int           // max requests per window
	duration time.Duration // window duration
	stop     chan struct{}
	once     sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates an in-memory limiter allowing limit requests per duration.
// Call Close to stop its cleanup goroutine.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop(duration * 2)
	return l
}

// Allow reports whether a request from key is allowed.
func (l *Limiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]
	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true, nil
	}
	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Reset clears the window for key.
func (l *Limiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}

// Close stops the cleanup goroutine.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

// cleanupLoop periodically removes expired entries to prevent memory leaks.
func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := time.Now()
			for key, w := range l.windows {
				if now.After(w.expiresAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// AuthLimiter protects the credential endpoints. Login is limited per IP and
// per email; registration per IP.
type AuthLimiter struct {
	ip    Counter
	email Counter
}

// NewAuthLimiter combines an IP counter and an email counter.
func NewAuthLimiter(ip, email Counter) *AuthLimiter {
	return &AuthLimiter{ip: ip, email: email}
}

// NewMemoryAuthLimiter uses in-process counters: ipLimit per minute per IP,
// emailLimit per 5 minutes per email.
func NewMemoryAuthLimiter(ipLimit, emailLimit int) *AuthLimiter {
	return NewAuthLimiter(New(ipLimit, time.Minute), New(emailLimit, 5*time.Minute))
}

// CheckLogin verifies a login attempt may proceed. Returns (allowed, reason).
// Counter failures fail open so an unavailable backend never locks users out.
func (al *AuthLimiter) CheckLogin(r *http.Request, email string) (bool, string) {
	ctx := r.Context()
	if ok, err := al.ip.Allow(ctx, "ip:"+ClientIP(r)); err == nil && !ok {
		return false, "Too many login attempts. Please wait a minute before trying again."
	}
	if key := emailKey(email); key != "" {
		if ok, err := al.email.Allow(ctx, "email:"+key); err == nil && !ok {
			return false, "Too many login attempts for this account. Please wait a few minutes."
		}
	}
	return true, ""
}

// CheckRegister verifies a registration attempt may proceed.
func (al *AuthLimiter) CheckRegister(r *http.Request) (bool, string) {
	if ok, err := al.ip.Allow(r.Context(), "ip:"+ClientIP(r)); err == nil && !ok {
		return false, "Too many requests. Please wait a minute before trying again."
	}
	return true, ""
}

// ResetEmail clears the email counter after a successful login.
func (al *AuthLimiter) ResetEmail(ctx context.Context, email string) {
	if key := emailKey(email); key != "" {
		_ = al.email.Reset(ctx, "email:"+key)
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
