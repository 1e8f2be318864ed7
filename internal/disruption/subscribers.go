package disruption

import (
	"context"
	"fmt"

	"github.com/serikovn/nexpr-update/internal/storage"
)

// SubscriberStore maps a route name to the users waiting for its resolution.
type SubscriberStore struct {
	col *storage.Collection[map[string][]int64]
}

// NewSubscriberStore binds the store to the named document of backend.
func NewSubscriberStore(backend storage.Backend, name string) *SubscriberStore {
	return &SubscriberStore{
		col: storage.NewCollection(backend, name, func() map[string][]int64 { return map[string][]int64{} }),
	}
}

func (s *SubscriberStore) load(ctx context.Context) (map[string][]int64, error) {
	index, err := s.col.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}
	if index == nil {
		index = map[string][]int64{}
	}
	return index, nil
}

func (s *SubscriberStore) save(ctx context.Context, index map[string][]int64) error {
	if err := s.col.Save(ctx, index); err != nil {
		return fmt.Errorf("save subscribers: %w", err)
	}
	return nil
}

// Subscribers returns the users subscribed to route.
func (s *SubscriberStore) Subscribers(ctx context.Context, route string) ([]int64, error) {
	index, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return index[route], nil
}

// IsSubscribed reports whether user waits for route's resolution.
func (s *SubscriberStore) IsSubscribed(ctx context.Context, route string, user int64) (bool, error) {
	ids, err := s.Subscribers(ctx, route)
	if err != nil {
		return false, err
	}
	return indexOf(ids, user) >= 0, nil
}

// Subscribe adds user to route. Subscribing twice is a no-op; changed
// reports whether anything was written.
func (s *SubscriberStore) Subscribe(ctx context.Context, route string, user int64) (bool, error) {
	index, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	if indexOf(index[route], user) >= 0 {
		return false, nil
	}
	index[route] = append(index[route], user)
	return true, s.save(ctx, index)
}

// Unsubscribe removes user from route. Removing a non-member is a no-op.
// A route left without subscribers disappears from the index.
func (s *SubscriberStore) Unsubscribe(ctx context.Context, route string, user int64) (bool, error) {
	index, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	ids := index[route]
	i := indexOf(ids, user)
	if i < 0 {
		return false, nil
	}
	ids = append(ids[:i:i], ids[i+1:]...)
	if len(ids) == 0 {
		delete(index, route)
	} else {
		index[route] = ids
	}
	return true, s.save(ctx, index)
}

// Drop deletes the whole subscriber entry of route.
func (s *SubscriberStore) Drop(ctx context.Context, route string) error {
	index, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := index[route]; !ok {
		return nil
	}
	delete(index, route)
	return s.save(ctx, index)
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
