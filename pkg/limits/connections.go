// Package limits caps concurrent live connections per client address.
package limits

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultMaxPerIP is used when a limiter is created without a limit.
const DefaultMaxPerIP = 100

// ConnectionLimiter limits concurrent connections per IP address.
type ConnectionLimiter struct {
	maxPerIP int

	mu    sync.Mutex
	count map[string]int

	totalBlocked atomic.Int64
	totalAllowed atomic.Int64
}

// NewConnectionLimiter creates a limiter allowing maxPerIP connections per
// address.
func NewConnectionLimiter(maxPerIP int) *ConnectionLimiter {
	if maxPerIP <= 0 {
		maxPerIP = DefaultMaxPerIP
	}
	return &ConnectionLimiter{
		maxPerIP: maxPerIP,
		count:    make(map[string]int),
	}
}

// Acquire takes a slot for ip. It reports false when ip is at its limit.
func (cl *ConnectionLimiter) Acquire(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.count[ip] >= cl.maxPerIP {
		cl.totalBlocked.Add(1)
		return false
	}
	cl.count[ip]++
	cl.totalAllowed.Add(1)
	return true
}

// Release returns a slot taken by Acquire.
func (cl *ConnectionLimiter) Release(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	n, ok := cl.count[ip]
	if !ok {
		return
	}
	if n <= 1 {
		delete(cl.count, ip)
		return
	}
	cl.count[ip] = n - 1
}

// Count returns the open connections for ip.
func (cl *ConnectionLimiter) Count(ip string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.count[ip]
}

// Max returns the per-address limit.
func (cl *ConnectionLimiter) Max() int {
	return cl.maxPerIP
}

// TotalBlocked returns how many acquisitions were refused.
func (cl *ConnectionLimiter) TotalBlocked() int64 {
	return cl.totalBlocked.Load()
}

// TotalAllowed returns how many acquisitions succeeded.
func (cl *ConnectionLimiter) TotalAllowed() int64 {
	return cl.totalAllowed.Load()
}

// ClientIP extracts the client address from r. Forwarding headers are
// read only when trustProxy is set, as any client can send them: then the
// first X-Forwarded-For entry wins, then X-Real-IP. Otherwise, and as a
// fallback, the host of RemoteAddr is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedIP(r); ip != "" {
			return ip
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}
