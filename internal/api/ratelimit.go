package api

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Submission limiter defaults.
const (
	DefaultSubmitRate  = 30 // per client per minute
	DefaultSubmitBurst = 5

	maxTrackedClients = 1024
	limiterIdleTTL    = time.Hour
)

// metaRateLimited marks operations that spawn processes.
const metaRateLimited = "rateLimited"

// submitLimiter hands out a token bucket per client IP.
type submitLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
}

func newSubmitLimiter(perMinute float64, burst int) *submitLimiter {
	if perMinute <= 0 {
		perMinute = DefaultSubmitRate
	}
	if burst <= 0 {
		burst = DefaultSubmitBurst
	}
	return &submitLimiter{
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, limiterIdleTTL),
	}
}

func (l *submitLimiter) get(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters.Get(client)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(client, limiter)
	}
	return limiter
}

// rateLimitMiddleware throttles operations tagged with metaRateLimited.
func (s *Server) rateLimitMiddleware(ctx huma.Context, next func(huma.Context)) {
	op := ctx.Operation()
	if op == nil || op.Metadata[metaRateLimited] != true {
		next(ctx)
		return
	}

	client := s.proxies.clientIP(ctx.RemoteAddr(), ctx.Header("X-Forwarded-For"), ctx.Header("X-Real-IP"))
	limiter := s.limiter.get(client)
	perMinute := strconv.Itoa(int(s.limiter.limit * 60))
	if !limiter.Allow() {
		ctx.SetHeader("X-RateLimit-Limit", perMinute)
		ctx.SetHeader("X-RateLimit-Remaining", "0")
		ctx.SetHeader("Retry-After", strconv.Itoa(retryAfter(s.limiter.limit)))
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "Too many session requests")
		return
	}

	ctx.SetHeader("X-RateLimit-Limit", perMinute)
	ctx.SetHeader("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
	next(ctx)
}

// retryAfter is the number of whole seconds until one token is available.
func retryAfter(limit rate.Limit) int {
	if limit <= 0 {
		return 60
	}
	return max(1, int(1/float64(limit)+0.5))
}

// proxyList holds the reverse proxies whose forwarding headers are honoured.
type proxyList []netip.Prefix

// parseProxies accepts addresses ("10.0.0.1") and networks ("10.0.0.0/8").
func parseProxies(specs []string) (proxyList, error) {
	var proxies proxyList
	for _, spec := range specs {
		if prefix, err := netip.ParsePrefix(spec); err == nil {
			proxies = append(proxies, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(spec)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", spec, err)
		}
		proxies = append(proxies, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return proxies, nil
}

func (p proxyList) trusts(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range p {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP is the address the submit limiter keys on. Forwarding headers
// count only when the peer is a trusted proxy; the client is then the
// right-most X-Forwarded-For hop that is not itself a trusted proxy.
func (p proxyList) clientIP(remoteAddr, forwardedFor, realIP string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !p.trusts(peer) {
		return host
	}

	if forwardedFor != "" {
		hops := strings.Split(forwardedFor, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			addr, err := netip.ParseAddr(hop)
			if err != nil {
				break
			}
			if !p.trusts(addr) {
				return addr.Unmap().String()
			}
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(realIP)); err == nil {
		return addr.Unmap().String()
	}
	return host
}
