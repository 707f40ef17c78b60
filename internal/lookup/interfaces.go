package lookup

import "context"

// Engine resolves metadata for a single package.
//
// Implementations return ErrNotFound when the package has no result, an
// *UpstreamError when the backend cannot be reached or answers with a non-200
// status, and a *MalformedResponseError when the payload is missing required
// fields.
type Engine interface {
	Run(ctx context.Context, id PackageID) (Metatags, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, id PackageID) (Metatags, error)

// Run calls f(ctx, id).
func (f EngineFunc) Run(ctx context.Context, id PackageID) (Metatags, error) {
	return f(ctx, id)
}
