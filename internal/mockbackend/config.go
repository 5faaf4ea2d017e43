package mockbackend

// Config holds configuration for the mock scanning backend.
type Config struct {
	// Port is the port on which the mock backend listens.
	Port int

	// PollsPerStatus is how many status polls a scan stays in each state
	// before advancing (default: 1).
	PollsPerStatus int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:           8000,
		PollsPerStatus: 1,
	}
}
