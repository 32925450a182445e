package store

import (
	"context"
	"fmt"
)

// FetchSharedVersion retrieves a shared object's initial-shared-version
// from chain. The rpc client supplies the concrete implementation; the
// cache only needs this one capability.
type FetchSharedVersion func(ctx context.Context, objectID string) (uint64, error)

// SharedObjects is the read-through cache for shared-object references:
// the first time an object id is needed its initial-shared-version is
// fetched from chain and persisted, and every later call is served from
// the persisted row. There is no invalidation — initial-shared-version is
// immutable by definition.
type SharedObjects struct {
	store Store
	fetch FetchSharedVersion
}

func NewSharedObjects(st Store, fetch FetchSharedVersion) *SharedObjects {
	return &SharedObjects{store: st, fetch: fetch}
}

// InitialSharedVersion resolves objectID's initial-shared-version, hitting
// chain only on a cache miss.
func (c *SharedObjects) InitialSharedVersion(ctx context.Context, objectID string) (uint64, error) {
	obj, ok, err := c.store.GetSharedObject(ctx, objectID)
	if err != nil {
		return 0, fmt.Errorf("sharedobjects: lookup %s: %w", objectID, err)
	}
	if ok {
		return obj.InitialSharedVersion, nil
	}

	version, err := c.fetch(ctx, objectID)
	if err != nil {
		return 0, fmt.Errorf("sharedobjects: fetch %s: %w", objectID, err)
	}
	if err := c.store.PutSharedObject(ctx, objectID, version); err != nil {
		return 0, fmt.Errorf("sharedobjects: persist %s: %w", objectID, err)
	}
	return version, nil
}
