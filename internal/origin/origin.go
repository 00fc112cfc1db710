// Package origin validates browser Origin headers for the WebSocket gateway.
package origin

import (
	"net/url"
	"strconv"
	"strings"
)

// Normalize validates an Origin header and returns it in canonical
// scheme://host[:port] form (lowercased, default ports stripped) plus the
// host[:port] portion for same-host comparison. The literal "null" origin is
// passed through.
func Normalize(header string) (normalized, host string, ok bool) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return "", "", false
	}
	if trimmed == "null" {
		return "null", "", true
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" || u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", "", false
	}
	if u.Path != "" && u.Path != "/" {
		return "", "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", "", false
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return "", "", false
	}
	port := u.Port()
	if port != "" {
		n, err := strconv.ParseUint(port, 10, 16)
		if err != nil || n == 0 {
			return "", "", false
		}
		port = strconv.FormatUint(n, 10)
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	host = hostname
	if strings.Contains(hostname, ":") {
		host = "[" + hostname + "]"
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host, host, true
}

// Allowed reports whether the normalized origin may reach the given request
// host. A non-empty allowlist is authoritative ("*" matches anything);
// otherwise the policy is same-host, compared without scheme because the relay
// commonly sits behind a TLS-terminating proxy.
func Allowed(normalized, originHost, requestHost string, allowlist []string) bool {
	if len(allowlist) > 0 {
		for _, entry := range allowlist {
			if entry == "*" || entry == normalized {
				return true
			}
		}
		return false
	}

	scheme, _, found := strings.Cut(normalized, "://")
	if !found {
		// "null" and anything unnormalized can never match a host.
		return false
	}

	req := strings.ToLower(strings.TrimSpace(requestHost))
	if req == "" {
		return false
	}
	// Treat a request host without an explicit port as carrying the scheme's
	// default, mirroring Normalize.
	if !strings.HasSuffix(req, "]") && strings.Count(req, ":") <= 1 {
		if host, port, ok := strings.Cut(req, ":"); ok {
			if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
				req = host
			}
		}
	}
	return originHost == req
}

// CheckHeader is the one-call form used by WebSocket upgraders: an absent
// Origin header is allowed (non-browser client), anything else must normalize
// and pass Allowed.
func CheckHeader(header, requestHost string, allowlist []string) bool {
	if strings.TrimSpace(header) == "" {
		return true
	}
	normalized, originHost, ok := Normalize(header)
	if !ok {
		return false
	}
	return Allowed(normalized, originHost, requestHost, allowlist)
}
