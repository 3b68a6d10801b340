package backend

import (
	"net"
	"net/url"
	"strings"
)

// MatchHost reports whether host matches pattern. A pattern "*.example.com" matches
// example.com and any subdomain of it; anything else must match exactly. Comparison
// ignores case and ports.
func MatchHost(pattern, host string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	host = strings.ToLower(stripPort(host))

	if pattern == "" || host == "" {
		return false
	}

	if base, ok := strings.CutPrefix(pattern, "*."); ok {
		return host == base || strings.HasSuffix(host, "."+base)
	}

	return host == stripPort(pattern)
}

// HostAllowed checks host against every whitelist entry. An empty whitelist allows
// nothing.
func HostAllowed(host string, whitelist []string) bool {
	for _, pattern := range whitelist {
		if MatchHost(pattern, host) {
			return true
		}
	}

	return false
}

// URLAllowed parses rawURL and checks its host against the whitelist.
func URLAllowed(rawURL string, whitelist []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}

	return HostAllowed(u.Hostname(), whitelist)
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}

	return host
}
