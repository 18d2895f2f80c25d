package tree

import (
	"context"
	"fmt"
	"sync"
)

/*
ModelStore is an interface to manage a store
where fitted models can be saved, retrieved
and deleted under an ID.

All it methods take a context that may allow
cancelling the operation (thus forcing the return
of an error) if the implementation allows it.
*/
type ModelStore interface {
	// Create takes a model and saves it under a new
	// id, which it returns. It returns an error if
	// the model cannot be stored.
	Create(ctx context.Context, m *Model) (string, error)
	// Store takes an id and a model and saves the
	// model under the id, replacing any model already
	// stored with it. It returns an error if the model
	// cannot be stored.
	Store(ctx context.Context, id string, m *Model) error
	// Get takes an id and returns the model in the
	// store with that id (or nil if it cannot be
	// found) or an error if the store cannot be
	// queried
	Get(ctx context.Context, id string) (*Model, error)
	// Delete takes an id and deletes the model stored
	// with it. It returns an error if the model exists
	// but the deletion cannot be performed.
	Delete(ctx context.Context, id string) error
	// Close closes the store, implementations should
	// free any resources in use. It returns an error
	// if the Close cannot be completed.
	Close(ctx context.Context) error
}

type memoryModelStore struct {
	models  map[string]*Model
	created int
	lock    *sync.RWMutex
}

// NewMemoryModelStore returns an implementation
// of ModelStore with the process memory space
// as underlying backend
func NewMemoryModelStore() ModelStore {
	return &memoryModelStore{
		models: make(map[string]*Model),
		lock:   &sync.RWMutex{},
	}
}

func (mms *memoryModelStore) Create(ctx context.Context, m *Model) (string, error) {
	var id string
	err := mms.withLock(ctx, func(ctx context.Context) error {
		for id == "" || mms.models[id] != nil {
			mms.created++
			id = fmt.Sprintf("model-%d", mms.created)
		}
		mms.models[id] = m
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (mms *memoryModelStore) Store(ctx context.Context, id string, m *Model) error {
	return mms.withLock(ctx, func(ctx context.Context) error {
		mms.models[id] = m
		return nil
	})
}

func (mms *memoryModelStore) Get(ctx context.Context, id string) (*Model, error) {
	var m *Model
	err := mms.withRLock(ctx, func(ctx context.Context) error {
		m = mms.models[id]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (mms *memoryModelStore) Delete(ctx context.Context, id string) error {
	return mms.withLock(ctx, func(ctx context.Context) error {
		delete(mms.models, id)
		return nil
	})
}

func (mms *memoryModelStore) Close(ctx context.Context) error {
	return nil
}

func (mms *memoryModelStore) withLock(ctx context.Context, f func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gotLock := make(chan struct{})
	go func() {
		mms.lock.Lock()
		select {
		case <-ctx.Done():
			mms.lock.Unlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer mms.lock.Unlock()
	}
	return f(ctx)
}

func (mms *memoryModelStore) withRLock(ctx context.Context, f func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gotLock := make(chan struct{})
	go func() {
		mms.lock.RLock()
		select {
		case <-ctx.Done():
			mms.lock.RUnlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer mms.lock.RUnlock()
	}
	return f(ctx)
}
