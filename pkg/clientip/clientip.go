// Package clientip resolves the address a request came from.
package clientip

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	trusted []*net.IPNet
)

// SetTrustedProxies configures the proxies whose X-Forwarded-For header is
// honoured. Entries are CIDRs or single addresses. An empty list trusts nobody.
func SetTrustedProxies(entries []string) error {
	var nets []*net.IPNet
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				return fmt.Errorf("invalid proxy address %q", e)
			}
			bits := 128
			if ip.To4() != nil {
				bits = 32
			}
			e = fmt.Sprintf("%s/%d", ip, bits)
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			return fmt.Errorf("invalid proxy range %q: %w", e, err)
		}
		nets = append(nets, n)
	}
	mu.Lock()
	trusted = nets
	mu.Unlock()
	return nil
}

func isTrusted(ip net.IP) bool {
	mu.RLock()
	defer mu.RUnlock()
	for _, n := range trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// FromRequest returns the client IP. r.RemoteAddr is used unless it belongs to
// a trusted proxy, in which case X-Forwarded-For is walked right to left and
// the first untrusted hop wins.
func FromRequest(r *http.Request) string {
	remote := remoteHost(r.RemoteAddr)
	ip := net.ParseIP(remote)
	if ip == nil || !isTrusted(ip) {
		return remote
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		hip := net.ParseIP(hop)
		if hip == nil {
			break
		}
		if !isTrusted(hip) {
			return hop
		}
	}
	return remote
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.TrimSpace(addr)
	}
	return strings.TrimSpace(host)
}
