// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

// Package transport implements the canonical event wire schema and
// the two ways it leaves the process: the direct events API (client
// mode) and OTLP/HTTP (immediate or batch mode). Everything out of
// scope per spec.md §1 — the generated REST client, the full OTLP SDK
// — is represented here only to the extent the payload schema and
// transport choice require.
package transport

// EventType is the canonical event_type enum (spec.md §3).
type EventType string

const (
	EventTypeModel   EventType = "model"
	EventTypeChain   EventType = "chain"
	EventTypeTool    EventType = "tool"
	EventTypeSession EventType = "session"
)

// Event is the in-memory canonical event the span processor builds on
// every span's on_end. Section maps are never nil once built.
type Event struct {
	EventName      string
	EventType      EventType
	Source         string
	EventID        string
	SessionID      string
	Project        string
	StartTime      float64 // epoch milliseconds
	EndTime        float64 // epoch milliseconds
	ParentID       string
	ChildrenIDs    []string
	Inputs         map[string]any
	Outputs        map[string]any
	Config         map[string]any
	Metadata       map[string]any
	Error          string
	Metrics        map[string]any
	Feedback       map[string]any
	UserProperties map[string]any
}

// DurationMS returns end_time - start_time, the invariant from
// spec.md §3 and §8 invariant 4.
func (e *Event) DurationMS() float64 {
	if e.StartTime == 0 || e.EndTime == 0 {
		return 0
	}
	return e.EndTime - e.StartTime
}

// CreateEventRequest is the direct events API's wire shape (spec.md
// §4.6, §6), standing in for the out-of-scope generated REST model.
// Required keys default to empty maps / 0.0 when absent from the
// canonical event, per spec.md §4.6.
type CreateEventRequest struct {
	Project        string         `json:"project"`
	Source         string         `json:"source"`
	EventName      string         `json:"event_name"`
	EventType      string         `json:"event_type"`
	EventID        string         `json:"event_id"`
	SessionID      string         `json:"session_id"`
	Config         map[string]any `json:"config"`
	Inputs         map[string]any `json:"inputs"`
	Outputs        map[string]any `json:"outputs"`
	Metadata       map[string]any `json:"metadata"`
	StartTime      float64        `json:"start_time"`
	EndTime        float64        `json:"end_time"`
	Duration       float64        `json:"duration"`
	ParentID       string         `json:"parent_id,omitempty"`
	ChildrenIDs    []string       `json:"children_ids,omitempty"`
	Error          string         `json:"error,omitempty"`
	Metrics        map[string]any `json:"metrics,omitempty"`
	Feedback       map[string]any `json:"feedback,omitempty"`
	UserProperties map[string]any `json:"user_properties,omitempty"`
}

// ToCreateEventRequest builds the wire payload from e, defaulting any
// nil section map to an empty one so the JSON always carries the four
// required semantic sections.
func (e *Event) ToCreateEventRequest() *CreateEventRequest {
	return &CreateEventRequest{
		Project:        e.Project,
		Source:         e.Source,
		EventName:      e.EventName,
		EventType:      string(e.EventType),
		EventID:        e.EventID,
		SessionID:      e.SessionID,
		Config:         nonNil(e.Config),
		Inputs:         nonNil(e.Inputs),
		Outputs:        nonNil(e.Outputs),
		Metadata:       nonNil(e.Metadata),
		StartTime:      e.StartTime,
		EndTime:        e.EndTime,
		Duration:       e.DurationMS(),
		ParentID:       e.ParentID,
		ChildrenIDs:    e.ChildrenIDs,
		Error:          e.Error,
		Metrics:        e.Metrics,
		Feedback:       e.Feedback,
		UserProperties: e.UserProperties,
	}
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
