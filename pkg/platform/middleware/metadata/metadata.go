// Package metadata extracts client-facing request metadata: IP address,
// User-Agent, and the device cookie that keys redirect memory for visitors
// who are not logged in yet.
package metadata

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"concierge/pkg/requestcontext"
)

// DeviceCookieName is the cookie that identifies a browser across requests.
// It is set on first contact and survives logout.
const DeviceCookieName = "concierge_device"

// ClientMetadata extracts client IP, User-Agent, and the device identifier
// from the request and adds them to the context. Applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(),
			ClientIPFromRequest(r),
			r.Header.Get("User-Agent"),
		)

		deviceID := ""
		if c, err := r.Cookie(DeviceCookieName); err == nil && c.Value != "" {
			deviceID = c.Value
		}
		if deviceID == "" {
			deviceID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     DeviceCookieName,
				Value:    deviceID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx = requestcontext.WithDeviceID(ctx, deviceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the real client IP, handling proxies and load
// balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...);
	// the first is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" (IPv6: "[::1]:port").
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}

// DeviceDisplayName renders a User-Agent string as a human-readable device
// label for session listings, e.g. "Chrome 120 on Linux".
func DeviceDisplayName(rawUA string) string {
	if rawUA == "" {
		return "Unknown device"
	}

	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return "Unknown device"
	}

	label := name
	if idx := strings.Index(version, "."); idx != -1 {
		version = version[:idx]
	}
	if version != "" {
		label += " " + version
	}
	if os := ua.OS(); os != "" {
		label += " on " + os
	}
	return label
}
