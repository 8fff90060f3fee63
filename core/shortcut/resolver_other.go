//go:build !windows

package shortcut

import "context"

// unsupportedResolver rejects every resolution. Non-Windows builds rely on
// injected resolvers (tests) or plain non-shortcut candidates.
type unsupportedResolver struct{}

func newPlatformResolver() Resolver {
	return &unsupportedResolver{}
}

func (r *unsupportedResolver) Resolve(_ context.Context, _ string) (Shortcut, error) {
	return Shortcut{}, ErrUnsupported
}
