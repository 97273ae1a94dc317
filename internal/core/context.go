package core

import "context"

type clientKey struct{}

// Client identifies who started an operation, for the audit trail.
type Client struct {
	IP        string
	UserAgent string
}

// WithClient attaches c to ctx. The web layer does this for every request.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFromContext returns the client attached to ctx, or a zero Client.
func ClientFromContext(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}
