// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tantora/mariawire/lib/util/waitgroup"
)

func TestPrepareRefCount(t *testing.T) {
	closer := &recordCloser{}
	stmt := NewServerPrepareResult(3, 0, nil)
	require.EqualValues(t, 1, stmt.UseCount())

	require.True(t, stmt.IncrementUse())
	stmt.DecrementUse(closer)
	require.Empty(t, closer.closed)

	stmt.DecrementUse(closer)
	require.Equal(t, []uint32{3}, closer.closed)

	// a dead handle cannot be revived
	require.False(t, stmt.IncrementUse())
}

func TestPrepareCachePutRace(t *testing.T) {
	closer := &recordCloser{}
	cache := NewPrepareCache(16, closer)

	winner := NewServerPrepareResult(1, 0, nil)
	require.Nil(t, cache.Put("SELECT ?", winner))

	// a concurrent preparation of the same text lost the race
	loser := NewServerPrepareResult(2, 0, nil)
	got := cache.Put("SELECT ?", loser)
	require.Same(t, winner, got)
	// the caller releases its own handle exactly once and keeps the winner
	loser.DecrementUse(closer)
	require.Equal(t, []uint32{2}, closer.closed)
	// winner: creator + cache + racing caller
	require.EqualValues(t, 3, winner.UseCount())
}

func TestPrepareCacheGet(t *testing.T) {
	closer := &recordCloser{}
	cache := NewPrepareCache(16, closer)
	require.Nil(t, cache.Get("SELECT 1"))

	stmt := NewServerPrepareResult(1, 0, nil)
	cache.Put("SELECT 1", stmt)
	got := cache.Get("SELECT 1")
	require.Same(t, stmt, got)
	require.EqualValues(t, 3, stmt.UseCount())

	hits, misses := cache.Stats()
	require.EqualValues(t, 1, hits)
	require.EqualValues(t, 1, misses)
}

func TestPrepareCacheEviction(t *testing.T) {
	closer := &recordCloser{}
	cache := NewPrepareCache(2, closer)

	for id := uint32(1); id <= 3; id++ {
		stmt := NewServerPrepareResult(id, 0, nil)
		cache.Put(fmt.Sprintf("SELECT %d", id), stmt)
		// the preparing command is done with its reference
		stmt.DecrementUse(closer)
	}
	require.Equal(t, 2, cache.Len())
	// the oldest entry lost its last reference on eviction
	require.Equal(t, []uint32{1}, closer.closed)
	require.Nil(t, cache.Get("SELECT 1"))
	require.NotNil(t, cache.Get("SELECT 3"))
}

func TestPrepareCacheDeadEntry(t *testing.T) {
	closer := &recordCloser{}
	cache := NewPrepareCache(16, closer)

	stmt := NewServerPrepareResult(1, 0, nil)
	cache.Put("SELECT 1", stmt)
	// release both the creator's and the cache's reference behind its back
	stmt.DecrementUse(closer)
	stmt.DecrementUse(closer)
	require.Equal(t, []uint32{1}, closer.closed)

	// Get drops the dead entry instead of returning it
	require.Nil(t, cache.Get("SELECT 1"))
	require.Equal(t, 0, cache.Len())

	// Put over a dead entry replaces it
	stmt = NewServerPrepareResult(1, 0, nil)
	cache.Put("SELECT 1", stmt)
	dead := NewServerPrepareResult(2, 0, nil)
	cache.Put("SELECT 2", dead)
	dead.DecrementUse(closer)
	dead.DecrementUse(closer)
	fresh := NewServerPrepareResult(3, 0, nil)
	require.Nil(t, cache.Put("SELECT 2", fresh))
	require.Same(t, fresh, cache.Get("SELECT 2"))
}

func TestPrepareCacheConcurrent(t *testing.T) {
	closer := &recordCloser{}
	cache := NewPrepareCache(64, closer)
	var wg waitgroup.WaitGroup
	for i := 0; i < 8; i++ {
		id := uint32(i + 1)
		wg.Run(func() {
			stmt := NewServerPrepareResult(id, 0, nil)
			if winner := cache.Put("SELECT ?", stmt); winner != nil {
				stmt.DecrementUse(closer)
				stmt = winner
			}
			stmt.DecrementUse(closer)
		})
	}
	wg.Wait()

	// exactly one handle survives, with only the cache's reference
	require.Equal(t, 1, cache.Len())
	survivor := cache.Get("SELECT ?")
	require.NotNil(t, survivor)
	require.EqualValues(t, 2, survivor.UseCount())
	// every loser was closed exactly once
	require.Len(t, closer.closedIDs(), 7)
}
