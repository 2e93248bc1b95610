package health

import "context"

// BackendPinger checks record backend availability.
type BackendPinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker checks that the indexes of configured collections exist.
// A missing index is reported as domain.ErrNotFound.
type IndexChecker interface {
	CheckIndexes(ctx context.Context) error
}
