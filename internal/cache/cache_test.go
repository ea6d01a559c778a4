// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheGetPutMiss(t *testing.T) {
	c := newTTLCache(10, time.Minute)
	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Put("k", "v")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestTTLCacheExpires(t *testing.T) {
	c := newTTLCache(10, time.Millisecond)
	c.Put("k", "v")
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok, "entry should have expired and been pruned lazily")
}

func TestTTLCacheEvictsOldestOnOverflow(t *testing.T) {
	c := newTTLCache(2, time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3) // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestManagerDisabledIsAlwaysMiss(t *testing.T) {
	m := NewManager(Config{Enabled: false})
	defer m.Close()

	assert.False(t, m.Enabled())
	c := m.Cache(AttributeNormalization)
	c.Put("k", "v")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestManagerNamedCachesAreIsolated(t *testing.T) {
	m := NewManager(Config{Enabled: true, MaxSize: 100})
	defer m.Close()

	m.Cache(AttributeNormalization).Put("x", 1)
	_, ok := m.Cache(ResourceDetection).Get("x")
	assert.False(t, ok, "caches must not leak entries across names")
}

func TestManagerConcurrentAccess(t *testing.T) {
	m := NewManager(Config{Enabled: true, MaxSize: 1000})
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := m.Cache(ConfigResolution)
			c.Put("key", i)
			c.Get("key")
		}(i)
	}
	wg.Wait()
}
