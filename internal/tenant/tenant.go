// Package tenant resolves which administrations a request may see.
package tenant

import (
	"context"
	"sort"
	"strings"
)

// Resolver supplies the tenants the current request is authorized for.
type Resolver interface {
	AuthorizedTenants(ctx context.Context) ([]string, error)
}

// StaticResolver authorizes a fixed set of tenants, regardless of context.
// The command line tools use it with the tenants named on the command line.
type StaticResolver struct {
	tenants []string
}

// NewStaticResolver creates a StaticResolver.
func NewStaticResolver(tenants ...string) *StaticResolver {
	return &StaticResolver{tenants: Normalize(tenants)}
}

// AuthorizedTenants returns a copy of the configured tenants.
func (r *StaticResolver) AuthorizedTenants(ctx context.Context) ([]string, error) {
	out := make([]string, len(r.tenants))
	copy(out, r.tenants)
	return out, nil
}

type contextKey struct{}

// WithTenants returns a context carrying the authorized tenants, as set by
// the authentication layer in front of the engine.
func WithTenants(ctx context.Context, tenants ...string) context.Context {
	return context.WithValue(ctx, contextKey{}, Normalize(tenants))
}

// FromContext returns the tenants stored by WithTenants.
func FromContext(ctx context.Context) ([]string, bool) {
	tenants, ok := ctx.Value(contextKey{}).([]string)
	return tenants, ok
}

// ContextResolver reads the authorized tenants from the request context. A
// context without tenants is authorized for nothing.
type ContextResolver struct{}

// AuthorizedTenants returns the tenants stored in ctx.
func (ContextResolver) AuthorizedTenants(ctx context.Context) ([]string, error) {
	tenants, _ := FromContext(ctx)
	out := make([]string, len(tenants))
	copy(out, tenants)
	return out, nil
}

// Filter keeps the requested tenants that are also authorized, in requested
// order without duplicates. Unauthorized tenants are dropped silently.
func Filter(requested, authorized []string) []string {
	allowed := make(map[string]bool, len(authorized))
	for _, t := range authorized {
		allowed[t] = true
	}

	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	for _, t := range requested {
		t = strings.TrimSpace(t)
		if !allowed[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Normalize trims tenant identifiers and removes blanks and duplicates,
// returning them sorted.
func Normalize(tenants []string) []string {
	seen := make(map[string]bool, len(tenants))
	out := make([]string, 0, len(tenants))
	for _, t := range tenants {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
