package domain

import "time"

// Status is the lifecycle state of a session. Anything but active is terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusRevoked   Status = "revoked"
	StatusLoggedOut Status = "logged_out"
)

// Device describes the client a session was created from.
type Device struct {
	Browser    string
	OS         string
	DeviceType string
	UserAgent  string
}

// DeviceParser turns a raw user agent into a Device. Injected; parsing rules live outside the core.
type DeviceParser func(userAgent string) Device

// Session represents one authenticated device or browser instance.
type Session struct {
	ID             string
	UserID         string
	Status         Status
	Device         Device
	IPAddress      string
	LoginAt        time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
	EndedAt        *time.Time // set on the terminal transition
}

// IsActive reports status=active and now before expiry.
func (s *Session) IsActive(now time.Time) bool {
	return s != nil && s.Status == StatusActive && now.Before(s.ExpiresAt)
}
