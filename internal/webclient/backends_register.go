package webclient

import "github.com/raysh454/shadowzap/internal/logging"

func init() {
	RegisterDefaultBackends()
}

// RegisterDefaultBackends registers the built-in nethttp backend.
func RegisterDefaultBackends() {
	RegisterBackend(string(ClientNetHTTP), func(cfg Config, logger logging.Logger) (WebClient, error) {
		return NewNetHTTPClient(cfg, logger, nil)
	})
}
