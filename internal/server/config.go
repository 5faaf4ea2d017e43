package server

import "time"

type Config struct {
	// ListenAddr is the HTTP listen address for the local API.
	ListenAddr string `yaml:"listen_addr"`

	// PollInterval is used for the auto-poll started after a submission.
	// Zero leaves the tracker default in place.
	PollInterval time.Duration `yaml:"-"`

	// EventBuffer is the number of tracker events queued per WebSocket
	// client before new events are dropped for it.
	EventBuffer int `yaml:"event_buffer"`
}
