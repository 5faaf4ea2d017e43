package webclient

import "context"

// WebClient executes HTTP requests against the scanning backend.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	Close() error
}
