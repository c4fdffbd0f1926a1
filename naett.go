// Package naett exposes a ready-to-use asynchronous HTTP client backed by
// net/http.
package naett

import (
	"slices"

	"github.com/adamwoolhether/naett/backend/nethttp"
	"github.com/adamwoolhether/naett/client"
)

// NewClient instantiates a new *client.Client running on the net/http
// backend with default settings. Passing [client.WithBackend] replaces it.
func NewClient(opts ...client.Option) (*client.Client, error) {
	b, err := nethttp.New()
	if err != nil {
		return nil, err
	}

	return client.Build(slices.Concat([]client.Option{client.WithBackend(b)}, opts)...)
}
