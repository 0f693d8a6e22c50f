// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// attemptLog holds the request times of one client inside the current window.
type attemptLog struct {
	mu    sync.Mutex
	times []time.Time
}

// prune drops attempts older than cutoff and reports how many remain.
func (l *attemptLog) prune(cutoff time.Time) int {
	kept := l.times[:0]
	for _, ts := range l.times {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.times = kept
	return len(kept)
}

// RateLimiter limits requests per client address over a sliding window.
// The client address is the TCP peer unless the peer is a trusted proxy,
// in which case forwarding headers are consulted.
type RateLimiter struct {
	mu      sync.RWMutex
	clients map[string]*attemptLog
	limit   int
	window  time.Duration
	message string
	trusted []netip.Prefix
	now     func() time.Time
	stopCh  chan struct{}
}

// NewRateLimiter creates a rate limiter that allows limit requests per window.
// It starts a background goroutine that forgets idle clients.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*attemptLog),
		limit:   limit,
		window:  window,
		message: "Too many requests",
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-rl.stopCh:
				return
			}
		}
	}()

	return rl
}

// Stop terminates the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// WithMessage sets the error message sent with 429 responses.
func (rl *RateLimiter) WithMessage(msg string) *RateLimiter {
	rl.message = msg
	return rl
}

// TrustProxies lists the reverse proxies whose X-Forwarded-For and
// X-Real-IP headers are believed. With none configured the headers are
// ignored.
func (rl *RateLimiter) TrustProxies(prefixes ...netip.Prefix) *RateLimiter {
	rl.trusted = append(rl.trusted, prefixes...)
	return rl
}

// allow records an attempt for key and reports whether it is within the limit.
func (rl *RateLimiter) allow(key string) bool {
	rl.mu.RLock()
	log, ok := rl.clients[key]
	rl.mu.RUnlock()

	if !ok {
		rl.mu.Lock()
		if log, ok = rl.clients[key]; !ok {
			log = &attemptLog{}
			rl.clients[key] = log
		}
		rl.mu.Unlock()
	}

	now := rl.now()

	log.mu.Lock()
	defer log.mu.Unlock()

	if log.prune(now.Add(-rl.window)) >= rl.limit {
		return false
	}
	log.times = append(log.times, now)
	return true
}

// cleanup forgets clients without attempts in the current window.
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, log := range rl.clients {
		log.mu.Lock()
		idle := log.prune(cutoff) == 0
		log.mu.Unlock()
		if idle {
			delete(rl.clients, key)
		}
	}
}

// Middleware returns an HTTP middleware that rate-limits by client address.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(rl.clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, rl.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the address to rate-limit on. Forwarding headers only
// count when the peer is a trusted proxy; X-Forwarded-For is then walked
// from the right and the first untrusted hop wins.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !rl.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !rl.isTrusted(hop) {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func (rl *RateLimiter) isTrusted(host string) bool {
	if len(rl.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range rl.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// remoteHost strips the port from a RemoteAddr value.
func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
