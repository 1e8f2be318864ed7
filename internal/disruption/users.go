package disruption

import (
	"context"
	"fmt"

	"github.com/serikovn/nexpr-update/internal/storage"
)

// UserRegistry is the append-only broadcast audience: every user that ever
// sent /start. It is never pruned.
type UserRegistry struct {
	col *storage.Collection[[]int64]
}

// NewUserRegistry binds the registry to the named document of backend.
func NewUserRegistry(backend storage.Backend, name string) *UserRegistry {
	return &UserRegistry{
		col: storage.NewCollection(backend, name, func() []int64 { return []int64{} }),
	}
}

// All returns every registered user.
func (r *UserRegistry) All(ctx context.Context) ([]int64, error) {
	ids, err := r.col.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return ids, nil
}

// Register adds id unless already present and reports whether it was new.
func (r *UserRegistry) Register(ctx context.Context, id int64) (bool, error) {
	ids, err := r.All(ctx)
	if err != nil {
		return false, err
	}
	if indexOf(ids, id) >= 0 {
		return false, nil
	}
	if err := r.col.Save(ctx, append(ids, id)); err != nil {
		return false, fmt.Errorf("save users: %w", err)
	}
	return true, nil
}
