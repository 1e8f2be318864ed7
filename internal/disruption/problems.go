package disruption

import (
	"context"
	"fmt"

	"github.com/serikovn/nexpr-update/internal/storage"
)

// ProblemStore keeps the list of current problems.
type ProblemStore struct {
	col *storage.Collection[[]Problem]
}

// NewProblemStore binds the store to the named document of backend.
func NewProblemStore(backend storage.Backend, name string) *ProblemStore {
	return &ProblemStore{
		col: storage.NewCollection(backend, name, func() []Problem { return []Problem{} }),
	}
}

// List returns every problem in insertion order.
func (s *ProblemStore) List(ctx context.Context) ([]Problem, error) {
	problems, err := s.col.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load problems: %w", err)
	}
	return problems, nil
}

// Find returns the first problem named name.
func (s *ProblemStore) Find(ctx context.Context, name string) (Problem, error) {
	problems, err := s.List(ctx)
	if err != nil {
		return Problem{}, err
	}
	for _, p := range problems {
		if p.Name == name {
			return p, nil
		}
	}
	return Problem{}, ErrNotFound
}

// Add appends p and saves the collection. Duplicate names are accepted.
func (s *ProblemStore) Add(ctx context.Context, p Problem) error {
	problems, err := s.List(ctx)
	if err != nil {
		return err
	}
	if p.Media == nil {
		p.Media = []MediaRef{}
	}
	problems = append(problems, p)
	if err := s.col.Save(ctx, problems); err != nil {
		return fmt.Errorf("save problems: %w", err)
	}
	return nil
}

// Remove deletes every problem named exactly name and reports how many were
// removed. Nothing is written when the count is zero.
func (s *ProblemStore) Remove(ctx context.Context, name string) (int, error) {
	problems, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	kept := make([]Problem, 0, len(problems))
	for _, p := range problems {
		if p.Name != name {
			kept = append(kept, p)
		}
	}
	removed := len(problems) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.col.Save(ctx, kept); err != nil {
		return 0, fmt.Errorf("save problems: %w", err)
	}
	return removed, nil
}
