package testutil

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"github.com/quickai/quickai/internal/model"
)

// ErrNotFound is returned by fakes for unknown keys.
var ErrNotFound = errors.New("not found")

// MemoryIdentityStore is an in-memory identity store.
type MemoryIdentityStore struct {
	mu      sync.Mutex
	callers map[string]*model.Caller

	// GetErr, IncrementErr and ResetErr force failures when set.
	GetErr       error
	IncrementErr error
	ResetErr     error

	Increments int
	Resets     int
}

// NewMemoryIdentityStore creates a store seeded with callers.
func NewMemoryIdentityStore(callers ...*model.Caller) *MemoryIdentityStore {
	s := &MemoryIdentityStore{callers: make(map[string]*model.Caller)}
	for _, c := range callers {
		cp := *c
		s.callers[c.UserID] = &cp
	}
	return s
}

// Get returns a copy of the stored caller.
func (s *MemoryIdentityStore) Get(ctx context.Context, userID string) (*model.Caller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	c, ok := s.callers[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// IncrementUsage adds one to the caller's counter.
func (s *MemoryIdentityStore) IncrementUsage(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Increments++
	if s.IncrementErr != nil {
		return 0, s.IncrementErr
	}
	c, ok := s.callers[userID]
	if !ok {
		return 0, ErrNotFound
	}
	c.FreeUsage++
	return c.FreeUsage, nil
}

// ResetUsage zeroes the caller's counter.
func (s *MemoryIdentityStore) ResetUsage(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Resets++
	if s.ResetErr != nil {
		return s.ResetErr
	}
	c, ok := s.callers[userID]
	if !ok {
		return ErrNotFound
	}
	c.FreeUsage = 0
	return nil
}

// FreeUsage returns the stored counter, or -1 for unknown users.
func (s *MemoryIdentityStore) FreeUsage(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.callers[userID]
	if !ok {
		return -1
	}
	return c.FreeUsage
}

// MemoryCreationStore is an in-memory creation store.
type MemoryCreationStore struct {
	mu        sync.Mutex
	creations []*model.Creation

	// InsertErr forces InsertCreation to fail when set.
	InsertErr error
	// NotFoundErr is returned for unknown IDs. Defaults to ErrNotFound.
	NotFoundErr error
}

// NewMemoryCreationStore creates an empty store.
func NewMemoryCreationStore(creations ...*model.Creation) *MemoryCreationStore {
	s := &MemoryCreationStore{}
	for _, c := range creations {
		cp := *c
		cp.Likes = slices.Clone(c.Likes)
		s.creations = append(s.creations, &cp)
	}
	return s
}

// InsertCreation appends a copy of creation.
func (s *MemoryCreationStore) InsertCreation(ctx context.Context, creation *model.Creation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return s.InsertErr
	}
	cp := *creation
	cp.Likes = slices.Clone(creation.Likes)
	s.creations = append(s.creations, &cp)
	return nil
}

// ListCreationsByUser returns the user's creations, newest first.
func (s *MemoryCreationStore) ListCreationsByUser(ctx context.Context, userID string) ([]*model.Creation, error) {
	return s.filter(func(c *model.Creation) bool { return c.UserID == userID }), nil
}

// ListPublishedCreations returns published creations, newest first.
func (s *MemoryCreationStore) ListPublishedCreations(ctx context.Context) ([]*model.Creation, error) {
	return s.filter(func(c *model.Creation) bool { return c.Publish }), nil
}

// GetCreation returns a copy of the creation with id.
func (s *MemoryCreationStore) GetCreation(ctx context.Context, id string) (*model.Creation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.creations {
		if c.ID == id {
			cp := *c
			cp.Likes = slices.Clone(c.Likes)
			return &cp, nil
		}
	}
	return nil, s.notFound()
}

// ToggleCreationLike flips userID in the likes of a creation.
func (s *MemoryCreationStore) ToggleCreationLike(ctx context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.creations {
		if c.ID == id {
			return c.ToggleLike(userID), nil
		}
	}
	return false, s.notFound()
}

// All returns every stored creation in insertion order.
func (s *MemoryCreationStore) All() []*model.Creation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.creations)
}

func (s *MemoryCreationStore) filter(keep func(*model.Creation) bool) []*model.Creation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Creation, 0)
	for _, c := range s.creations {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryCreationStore) notFound() error {
	if s.NotFoundErr != nil {
		return s.NotFoundErr
	}
	return ErrNotFound
}
