package context

import (
	"net/http"
	"strings"

	"portal/internal/domain/entity"

	"github.com/mileusna/useragent"
)

// HeaderXForwardedFor is the proxy header carrying the client address chain.
const HeaderXForwardedFor = "X-Forwarded-For"

// ExtractClientContext reads the metadata recorded on a new session from the
// request headers. Missing values are left empty.
func ExtractClientContext(header http.Header) entity.ClientContext {
	userAgent := header.Get("User-Agent")

	return entity.ClientContext{
		UserAgent: userAgent,
		Device:    deviceType(userAgent),
		IPAddress: forwardedFor(header.Get(HeaderXForwardedFor)),
	}
}

func deviceType(userAgent string) entity.DeviceType {
	if userAgent == "" {
		return entity.DeviceDesktop
	}
	ua := useragent.Parse(userAgent)
	if ua.Mobile && !ua.Tablet {
		return entity.DeviceMobile
	}

	return entity.DeviceDesktop
}

// forwardedFor returns the first hop, which is the originating client.
func forwardedFor(value string) string {
	first, _, _ := strings.Cut(value, ",")

	return strings.TrimSpace(first)
}
