// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package annotation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a cached patient bundle stays valid.
const DefaultCacheTTL = 300000 * time.Millisecond

// FetchFunc fetches a patient bundle from the server on a cache miss.
type FetchFunc func(ctx context.Context) (*PatientBundle, error)

// cacheEntry pairs a bundle with its insertion time.
type cacheEntry struct {
	bundle   *PatientBundle
	storedAt time.Time
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// PatientCache is a TTL-keyed store of previously fetched patient bundles,
// consulted before any network read (cache-aside). An entry is valid for
// TTL after Put; Get returns absence strictly after.
//
// Invalidate is called after a successful save and before a forced
// regeneration — never on a plain navigation read.
//
// Thread Safety:
//
//	Safe for concurrent use. GetOrFetch collapses concurrent loads of the
//	same patient into a single upstream fetch via singleflight.
type PatientCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   Clock
	flight  singleflight.Group

	hits   int64
	misses int64
}

// NewPatientCache creates a cache with the given TTL. A zero ttl selects
// DefaultCacheTTL; a nil clock selects the system clock.
func NewPatientCache(ttl time.Duration, clock Clock) *PatientCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &PatientCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached bundle for the patient, or (nil, false) when the
// entry is absent or older than the TTL. Expired entries are removed on
// observation.
func (c *PatientCache) Get(patientID string) (*PatientBundle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[patientID]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	if c.clock.Now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, patientID)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return entry.bundle, true
}

// Put stores the bundle unconditionally with a fresh timestamp.
func (c *PatientCache) Put(patientID string, bundle *PatientBundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[patientID] = cacheEntry{bundle: bundle, storedAt: c.clock.Now()}
}

// Invalidate removes the entry for the patient, if any.
func (c *PatientCache) Invalidate(patientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, patientID)
}

// GetOrFetch implements the cache-aside read: a hit skips the network
// entirely; a miss runs fetch (collapsed across concurrent callers) and
// stores the result. The returned bool reports whether the bundle came from
// the cache.
func (c *PatientCache) GetOrFetch(ctx context.Context, patientID string, fetch FetchFunc) (*PatientBundle, bool, error) {
	if bundle, ok := c.Get(patientID); ok {
		return bundle, true, nil
	}

	v, err, _ := c.flight.Do(patientID, func() (interface{}, error) {
		bundle, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(patientID, bundle)
		return bundle, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*PatientBundle), false, nil
}

// Stats returns the hit/miss counters.
func (c *PatientCache) Stats() CacheStats {
	return CacheStats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
	}
}
