package collection

import (
	"context"

	domcol "github.com/kailas-cloud/recordops/internal/domain/collection"
)

// Repository defines the index contract for collections.
type Repository interface {
	Ensure(ctx context.Context, col domcol.Collection) (bool, error)
	Exists(ctx context.Context, col domcol.Collection) (bool, error)
}
