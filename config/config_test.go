// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnv map[string]string

func (f fakeEnv) Lookup(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

func TestResolveDefaults(t *testing.T) {
	cfg, warnings, err := Resolve(Options{Project: "demo"}, fakeEnv{})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "dev", cfg.Source)
	assert.Equal(t, defaultServerURL, cfg.ServerURL)
	assert.Equal(t, defaultBatchSize, cfg.BatchSize)
	assert.Equal(t, defaultFlushInterval, cfg.FlushInterval)
	assert.True(t, cfg.OTLPEnabled)
	assert.True(t, cfg.CacheEnabled)
	assert.NotEmpty(t, cfg.SessionName)
}

func TestResolveExplicitOverridesEnv(t *testing.T) {
	env := fakeEnv{"HH_PROJECT": "from-env", "HH_SOURCE": "prod"}
	cfg, _, err := Resolve(Options{Project: "from-opts"}, env)
	require.NoError(t, err)
	assert.Equal(t, "from-opts", cfg.Project)
	assert.Equal(t, "prod", cfg.Source)
}

func TestResolveMissingProjectIsFatal(t *testing.T) {
	_, _, err := Resolve(Options{}, fakeEnv{})
	require.Error(t, err)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrMissingField, cerr.Kind)
	assert.Equal(t, "project", cerr.Field)
}

func TestResolveMissingAPIKeyFatalOnlyWhenNetworkRequired(t *testing.T) {
	_, _, err := Resolve(Options{Project: "demo", RequiresNetwork: true}, fakeEnv{})
	require.Error(t, err)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "api_key", cerr.Field)

	// test_mode disables the network requirement.
	testMode := true
	cfg, _, err := Resolve(Options{Project: "demo", RequiresNetwork: true, TestMode: &testMode}, fakeEnv{})
	require.NoError(t, err)
	assert.True(t, cfg.TestMode)
}

func TestResolveUnparseableBoolIsFatal(t *testing.T) {
	_, _, err := Resolve(Options{Project: "demo"}, fakeEnv{"HH_TEST_MODE": "maybe"})
	require.Error(t, err)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrInvalidValue, cerr.Kind)
}

func TestResolveClampsOutOfRangeBatchSize(t *testing.T) {
	cfg, warnings, err := Resolve(Options{Project: "demo"}, fakeEnv{"HH_BATCH_SIZE": "999999999"})
	require.NoError(t, err)
	assert.Equal(t, 100000, cfg.BatchSize)
	assert.NotEmpty(t, warnings)
}

func TestResolveDeterministicAcrossCalls(t *testing.T) {
	env := fakeEnv{"HH_PROJECT": "demo"}
	a, _, err := Resolve(Options{}, env)
	require.NoError(t, err)
	b, _, err := Resolve(Options{}, env)
	require.NoError(t, err)
	assert.Equal(t, a.Project, b.Project)
	assert.Equal(t, a.Source, b.Source)
}

func TestResolveSessionNamePriority(t *testing.T) {
	cfg, _, err := Resolve(Options{Project: "demo", SessionName: "explicit-name"}, fakeEnv{})
	require.NoError(t, err)
	assert.Equal(t, "explicit-name", cfg.SessionName)
}

func TestResolveFlushIntervalFromEnvSeconds(t *testing.T) {
	cfg, _, err := Resolve(Options{Project: "demo"}, fakeEnv{"HH_FLUSH_INTERVAL": "12.5"})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(12.5*float64(time.Second)), cfg.FlushInterval)
}
