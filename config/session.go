package config

import "time"

// SessionConfig contains session lifecycle configuration.
type SessionConfig struct {
	// StatePath is the file backing local session state (current
	// session, device id, trial history).
	StatePath string `env:"SESSION_STATE_PATH" envDefault:"data/session-state.json"`

	// DeviceLimit is the number of concurrent premium sessions allowed
	// per device class.
	DeviceLimit int `env:"SESSION_DEVICE_LIMIT" envDefault:"1"`

	// RemoteTimeout bounds each remote session-store call.
	RemoteTimeout time.Duration `env:"SESSION_REMOTE_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.DeviceLimit < 1 {
		s.DeviceLimit = 1
	}
	if s.RemoteTimeout <= 0 {
		s.RemoteTimeout = 10 * time.Second
	}
}
