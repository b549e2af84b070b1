package auth

import "context"

type providerKey struct{}

// WithProvider returns a context carrying p.
func WithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// FromContext returns the provider carried by ctx, if any.
func FromContext(ctx context.Context) (*Provider, bool) {
	p, ok := ctx.Value(providerKey{}).(*Provider)
	return p, ok && p != nil
}

// Use returns the provider carried by ctx and panics if there is none.
func Use(ctx context.Context) *Provider {
	p, ok := FromContext(ctx)
	if !ok {
		panic("auth.Use must be called with a context carrying an auth.Provider")
	}
	return p
}
