// ABOUTME: Client IP extraction honoring proxy headers
// ABOUTME: cf-connecting-ip, then x-forwarded-for, then x-real-ip, then the socket

package reqctx

import (
	"net"
	"net/http"
	"strings"
)

const unknownIP = "unknown"

// ClientIP returns the best-effort client address for r.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("Cf-Connecting-Ip")); ip != "" {
		return ip
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
		return ip
	}

	return remoteHost(r.RemoteAddr)
}

func remoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return unknownIP
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		if host == "" {
			return unknownIP
		}
		return host
	}
	return addr
}
