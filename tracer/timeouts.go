// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"time"

	"github.com/honeyhiveai/tracer-go/config"
)

// timeoutProfile bundles the lifecycle and flush lock timeouts chosen
// for one of the four deployment environments named in spec.md §5.
type timeoutProfile struct {
	name     string
	lifecycle time.Duration
	flush    time.Duration
	exportCallTimeout time.Duration
}

var (
	profileServerless = timeoutProfile{name: "serverless", lifecycle: 500 * time.Millisecond, flush: 2 * time.Second, exportCallTimeout: 5 * time.Second}
	profileContainer  = timeoutProfile{name: "container", lifecycle: 2 * time.Second, flush: 5 * time.Second, exportCallTimeout: 30 * time.Second}
	profileHighConcurrency = timeoutProfile{name: "high_concurrency", lifecycle: 300 * time.Millisecond, flush: time.Second, exportCallTimeout: 30 * time.Second}
	profileStandard   = timeoutProfile{name: "standard", lifecycle: time.Second, flush: 3 * time.Second, exportCallTimeout: 30 * time.Second}
)

// resolveTimeoutProfile picks one of the four profiles from spec.md §5
// using the same environment markers a startup probe would check:
// explicit high-concurrency opt-in, then serverless and
// container-orchestrator markers, falling back to standard.
func resolveTimeoutProfile(env config.Environment, highConcurrency bool) timeoutProfile {
	if highConcurrency {
		return profileHighConcurrency
	}
	if _, ok := env.Lookup("AWS_LAMBDA_FUNCTION_NAME"); ok {
		return profileServerless
	}
	if _, ok := env.Lookup("FUNCTIONS_WORKER_RUNTIME"); ok {
		return profileServerless
	}
	if _, ok := env.Lookup("KUBERNETES_SERVICE_HOST"); ok {
		return profileContainer
	}
	if _, ok := env.Lookup("ECS_CONTAINER_METADATA_URI_V4"); ok {
		return profileContainer
	}
	return profileStandard
}

// poolSizeForProfile maps a profile to the per-instance HTTP
// connection pool size named in spec.md §5 (12-50 connections).
func poolSizeForProfile(p timeoutProfile) int {
	switch p.name {
	case "serverless":
		return 12
	case "high_concurrency":
		return 50
	case "container":
		return 30
	default:
		return 20
	}
}
