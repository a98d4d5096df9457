package resolver

import "time"

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTL makes cache entries expire d after resolution. Zero or negative
// keeps the default: a resolved task type is trusted until explicitly
// invalidated.
func WithTTL(d time.Duration) Option {
	return func(r *Resolver) {
		r.ttl = d
	}
}
