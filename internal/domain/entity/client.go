package entity

// DeviceType is the coarse device class recorded on a session.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
)

// ClientContext is the request metadata captured when a session is issued.
// Empty strings mean the value was not supplied.
type ClientContext struct {
	UserAgent string
	Device    DeviceType
	IPAddress string
}
