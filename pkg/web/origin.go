package web

import (
	"net/url"
	"strings"

	"github.com/dukex/chatflow/pkg/backend"
)

// OriginPolicy decides which browser origins may talk to a project's conversations.
//
// Requests without an Origin header come from non-browser clients and pass. Localhost
// and the configured AllowedHosts always pass. Otherwise, when the project has a website
// URL, the origin host must match it; a "*.example.com" website matches subdomains.
type OriginPolicy struct {
	AllowedHosts []string
}

func (p OriginPolicy) Allowed(origin, websiteURL string) bool {
	if origin == "" || websiteURL == "" {
		return true
	}

	host := hostOf(origin)
	if host == "" {
		return false
	}

	if isLocalhost(host) || backend.HostAllowed(host, p.AllowedHosts) {
		return true
	}

	return backend.MatchHost(hostOf(websiteURL), host)
}

// hostOf accepts a full URL or a bare host and returns the host name.
func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return u.Hostname()
}

func isLocalhost(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
