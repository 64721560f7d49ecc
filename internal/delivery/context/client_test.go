package context

import (
	"net/http"
	"testing"

	"portal/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

const (
	iPhoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	iPadUA    = "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

func TestExtractClientContext(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    entity.ClientContext
	}{
		{
			name:    "no headers",
			headers: nil,
			want:    entity.ClientContext{Device: entity.DeviceDesktop},
		},
		{
			name:    "iphone",
			headers: map[string]string{"User-Agent": iPhoneUA},
			want:    entity.ClientContext{UserAgent: iPhoneUA, Device: entity.DeviceMobile},
		},
		{
			name:    "android phone",
			headers: map[string]string{"User-Agent": androidUA},
			want:    entity.ClientContext{UserAgent: androidUA, Device: entity.DeviceMobile},
		},
		{
			name:    "desktop browser",
			headers: map[string]string{"User-Agent": desktopUA},
			want:    entity.ClientContext{UserAgent: desktopUA, Device: entity.DeviceDesktop},
		},
		{
			name:    "tablet counts as desktop",
			headers: map[string]string{"User-Agent": iPadUA},
			want:    entity.ClientContext{UserAgent: iPadUA, Device: entity.DeviceDesktop},
		},
		{
			name:    "unparseable agent",
			headers: map[string]string{"User-Agent": "???"},
			want:    entity.ClientContext{UserAgent: "???", Device: entity.DeviceDesktop},
		},
		{
			name:    "single forwarded address",
			headers: map[string]string{HeaderXForwardedFor: "203.0.113.7"},
			want:    entity.ClientContext{Device: entity.DeviceDesktop, IPAddress: "203.0.113.7"},
		},
		{
			name:    "forwarded chain keeps the first hop",
			headers: map[string]string{HeaderXForwardedFor: " 203.0.113.7 , 10.0.0.1, 10.0.0.2"},
			want:    entity.ClientContext{Device: entity.DeviceDesktop, IPAddress: "203.0.113.7"},
		},
		{
			name:    "blank forwarded header",
			headers: map[string]string{HeaderXForwardedFor: "   "},
			want:    entity.ClientContext{Device: entity.DeviceDesktop},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			for k, v := range tt.headers {
				header.Set(k, v)
			}

			assert.Equal(t, tt.want, ExtractClientContext(header))
		})
	}
}
