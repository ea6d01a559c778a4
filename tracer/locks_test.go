// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReentrantLockReentersSameToken(t *testing.T) {
	l := newReentrantLock(100 * time.Millisecond)
	tok, ok := l.acquire(0)
	require.True(t, ok)

	tok2, ok := l.acquire(tok)
	require.True(t, ok)
	assert.Equal(t, tok, tok2)

	l.release(tok2)
	l.release(tok)
}

func TestReentrantLockExcludesOtherGoroutines(t *testing.T) {
	l := newReentrantLock(30 * time.Millisecond)
	tok, ok := l.acquire(0)
	require.True(t, ok)
	defer l.release(tok)

	var wg sync.WaitGroup
	wg.Add(1)
	acquired := false
	go func() {
		defer wg.Done()
		_, ok := l.acquire(0)
		acquired = ok
	}()
	wg.Wait()
	assert.False(t, acquired, "a second logical caller must not acquire while the first holds the lock")
}

func TestReentrantLockReleasesAfterDepthReachesZero(t *testing.T) {
	l := newReentrantLock(100 * time.Millisecond)
	tok, _ := l.acquire(0)
	_, _ = l.acquire(tok)
	l.release(tok)
	assert.Equal(t, int64(tok), l.holder.Load(), "still held: depth should be 1, not 0")
	l.release(tok)
	assert.Equal(t, int64(0), l.holder.Load())

	tok2, ok := l.acquire(0)
	assert.True(t, ok)
	l.release(tok2)
}

func TestWithLockRunsFnAndReleases(t *testing.T) {
	l := newReentrantLock(100 * time.Millisecond)
	ran := false
	ok := l.withLock(0, func(lockToken) { ran = true })
	assert.True(t, ok)
	assert.True(t, ran)

	_, acquiredAgain := l.acquire(0)
	assert.True(t, acquiredAgain, "withLock must release on return")
}
