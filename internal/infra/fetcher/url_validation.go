package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
)

// resolver is satisfied by *net.Resolver.
type resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// validateURL rejects URLs that are not http(s) and, when denyPrivateIPs is set,
// hosts that resolve to an internal address (SSRF guard).
//
// Blocked ranges when denyPrivateIPs is true:
//   - 127.0.0.0/8, ::1 (loopback)
//   - 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16, fc00::/7 (private)
//   - 169.254.0.0/16, fe80::/10 (link-local)
//   - 0.0.0.0, :: (unspecified)
func validateURL(ctx context.Context, r resolver, rawURL string, denyPrivateIPs bool) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse error: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme '%s' not allowed (only http/https)", ErrInvalidURL, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: empty hostname", ErrInvalidURL)
	}
	if !denyPrivateIPs {
		return u, nil
	}

	// literal addresses skip DNS
	if addr, err := netip.ParseAddr(host); err == nil {
		if isPrivateAddr(addr) {
			return nil, fmt.Errorf("%w: %s", ErrPrivateIP, addr)
		}
		return u, nil
	}

	addrs, err := r.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("%w: DNS lookup failed for %s: %v", ErrInvalidURL, host, err)
	}
	for _, addr := range addrs {
		if isPrivateAddr(addr) {
			return nil, fmt.Errorf("%w: hostname '%s' resolves to %s", ErrPrivateIP, host, addr)
		}
	}
	return u, nil
}

// isPrivateAddr reports loopback, private, link-local and unspecified addresses,
// including IPv4-mapped IPv6 forms.
func isPrivateAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}

var _ resolver = (*net.Resolver)(nil)
