package notify

import (
	"context"
	"errors"
)

// Notification is the payload delivered to each endpoint.
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	ImageURL string            `json:"image_url,omitempty"`
}

// ErrInvalidEndpoint marks a delivery failure that will never succeed again:
// the endpoint is malformed or the push service no longer knows it. The
// dispatcher prunes the registration when it sees this.
var ErrInvalidEndpoint = errors.New("push endpoint permanently invalid")

// Provider delivers one notification to one endpoint token. Implementations
// classify permanent failures by wrapping ErrInvalidEndpoint; any other error
// is treated as transient and leaves the registration in place.
type Provider interface {
	Send(ctx context.Context, endpointToken string, n Notification) error
}
