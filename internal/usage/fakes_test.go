package usage

import (
	"context"
	"errors"
	"sync"

	"github.com/quickai/quickai/internal/model"
)

var errStoreDown = errors.New("store down")

type fakeIdentities struct {
	mu         sync.Mutex
	callers    map[string]*model.Caller
	incErr     error
	resetErr   error
	increments int
	resets     int
}

func newFakeIdentities(callers ...*model.Caller) *fakeIdentities {
	f := &fakeIdentities{callers: map[string]*model.Caller{}}
	for _, c := range callers {
		f.callers[c.UserID] = c
	}
	return f
}

func (f *fakeIdentities) Get(ctx context.Context, userID string) (*model.Caller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.callers[userID]
	if !ok {
		return nil, errors.New("user not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeIdentities) IncrementUsage(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments++
	if f.incErr != nil {
		return 0, f.incErr
	}
	c := f.callers[userID]
	c.FreeUsage++
	return c.FreeUsage, nil
}

func (f *fakeIdentities) ResetUsage(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	if f.resetErr != nil {
		return f.resetErr
	}
	f.callers[userID].FreeUsage = 0
	return nil
}

type fakeCreations struct {
	inserted []*model.Creation
	err      error
}

func (f *fakeCreations) InsertCreation(ctx context.Context, c *model.Creation) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, c)
	return nil
}
