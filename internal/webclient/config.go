package webclient

import "time"

type Client string

const (
	ClientNetHTTP Client = "nethttp"
)

// Config carries the settings used to construct a WebClient backend.
type Config struct {
	Client Client `yaml:"client"`

	// Timeout bounds a single request. Zero means 30s.
	Timeout time.Duration `yaml:"timeout"`

	// RateLimit caps requests per second sent to the backend. Zero disables it.
	RateLimit float64 `yaml:"rate_limit"`

	// Burst is the limiter burst size; values below 1 are treated as 1.
	Burst int `yaml:"burst"`

	// UserAgent is sent on every request when set.
	UserAgent string `yaml:"user_agent"`
}
