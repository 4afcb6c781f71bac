package auth

import "context"

type capabilityKey struct{}

// WithCapability attaches a verified capability to the context.
func WithCapability(ctx context.Context, cap Capability) context.Context {
	return context.WithValue(ctx, capabilityKey{}, cap)
}

// CapabilityFrom returns the capability attached to the context, or the
// zero (non-admin) capability when none was attached.
func CapabilityFrom(ctx context.Context) Capability {
	if cap, ok := ctx.Value(capabilityKey{}).(Capability); ok {
		return cap
	}
	return Capability{}
}
