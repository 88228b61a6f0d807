// Package device parses client User-Agent strings into display names used by
// registration audit events.
package device

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"cohort/pkg/requestcontext"
)

// Middleware records the client IP, raw User-Agent, and a parsed device
// display name in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), r.UserAgent())
		ctx = requestcontext.WithDeviceName(ctx, DisplayName(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DisplayName turns a User-Agent string into "Browser on OS", or "Unknown
// device" when nothing can be parsed.
func DisplayName(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return "Unknown device"
	}
	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OS()
	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "Unknown device"
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
