// Package ratelimit provides rate limiting for booking operations.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the system time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration.
type Config struct {
	// BookCooldown is the minimum time between booking attempts per user
	// (default: 2s). It keeps a single client from hammering the
	// confirm/renew endpoints to grab contested slots.
	BookCooldown time.Duration
	// BookMaxPerHour caps booking attempts per user per hour (default: 30).
	BookMaxPerHour int
	// BookMaxIPPerHour caps booking attempts per IP per hour (default: 120).
	BookMaxIPPerHour int

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		BookCooldown:     2 * time.Second,
		BookMaxPerHour:   30,
		BookMaxIPPerHour: 120,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

// entry tracks request counts and timestamps.
type entry struct {
	count   int
	firstAt time.Time // First request in window
	lastAt  time.Time // Most recent request (for cooldown)
}

// Limiter implements per-user and per-IP rate limiting for booking
// operations.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.RWMutex
	// Keyed by hash of user id or IP
	bookByUser map[string]*entry
	bookByIP   map[string]*entry

	// Cleanup goroutine management
	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

// New creates a new rate limiter with the given config.
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		bookByUser:    make(map[string]*entry),
		bookByIP:      make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine and releases resources.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// CheckBooking checks if a booking attempt is allowed. Does NOT record the
// attempt - call RecordBooking once the request passes validation.
func (l *Limiter) CheckBooking(userID, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()
	userKey := l.hashKey("book:user:", userID)
	ipKey := l.hashKey("book:ip:", ip)

	l.mu.RLock()
	defer l.mu.RUnlock()

	// Check per-user cooldown
	if e := l.bookByUser[userKey]; e != nil {
		elapsed := now.Sub(e.lastAt)
		if elapsed < l.config.BookCooldown {
			return LimitResult{
				Allowed:    false,
				RetryAfter: l.config.BookCooldown - elapsed,
				Reason:     "cooldown",
			}
		}

		// Check hourly limit
		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.BookMaxPerHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "hourly_limit",
			}
		}
	}

	// Check per-IP hourly limit
	if e := l.bookByIP[ipKey]; e != nil {
		if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.BookMaxIPPerHour {
			return LimitResult{
				Allowed:    false,
				RetryAfter: time.Hour - now.Sub(e.firstAt),
				Reason:     "ip_hourly_limit",
			}
		}
	}

	return LimitResult{Allowed: true}
}

// RecordBooking records a booking attempt. Call this AFTER request
// validation succeeds.
func (l *Limiter) RecordBooking(userID, ip string) {
	now := l.clock.Now()
	userKey := l.hashKey("book:user:", userID)
	ipKey := l.hashKey("book:ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.bookByUser[userKey]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		l.bookByUser[userKey] = &entry{count: 1, firstAt: now, lastAt: now}
	} else {
		e.count++
		e.lastAt = now
	}

	e = l.bookByIP[ipKey]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		l.bookByIP[ipKey] = &entry{count: 1, firstAt: now, lastAt: now}
	} else {
		e.count++
		e.lastAt = now
	}
}

func (l *Limiter) hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(hash[:8])
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.bookByUser {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.bookByUser, k)
		}
	}
	for k, e := range l.bookByIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.bookByIP, k)
		}
	}
}

// GetClientIP extracts the client IP from a request, falling back to
// RemoteAddr when no proxy headers are trusted.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[len(parts)-1])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
