// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeEnv map[string]string

func (f fakeEnv) Lookup(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

func TestResolveTimeoutProfileStandardByDefault(t *testing.T) {
	p := resolveTimeoutProfile(fakeEnv{}, false)
	assert.Equal(t, "standard", p.name)
}

func TestResolveTimeoutProfileServerlessMarker(t *testing.T) {
	p := resolveTimeoutProfile(fakeEnv{"AWS_LAMBDA_FUNCTION_NAME": "my-fn"}, false)
	assert.Equal(t, "serverless", p.name)
}

func TestResolveTimeoutProfileContainerMarker(t *testing.T) {
	p := resolveTimeoutProfile(fakeEnv{"KUBERNETES_SERVICE_HOST": "10.0.0.1"}, false)
	assert.Equal(t, "container", p.name)
}

func TestResolveTimeoutProfileHighConcurrencyOverridesMarkers(t *testing.T) {
	p := resolveTimeoutProfile(fakeEnv{"KUBERNETES_SERVICE_HOST": "10.0.0.1"}, true)
	assert.Equal(t, "high_concurrency", p.name)
}

func TestPoolSizeForProfile(t *testing.T) {
	assert.Equal(t, 12, poolSizeForProfile(profileServerless))
	assert.Equal(t, 50, poolSizeForProfile(profileHighConcurrency))
	assert.Equal(t, 30, poolSizeForProfile(profileContainer))
	assert.Equal(t, 20, poolSizeForProfile(profileStandard))
}
