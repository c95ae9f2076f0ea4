// Package export runs the annotation pipeline as a background task and
// reports its outcome over an ordered message channel: zero or more
// progress notifications followed by exactly one terminal result.
package export

import (
	"errors"

	"github.com/bytedance/sonic"
)

// EventKind tags a channel event
type EventKind int

const (
	// EventProgress is a coarse progress notification
	EventProgress EventKind = iota
	// EventDone carries the output document buffer; terminal
	EventDone
	// EventFailed carries the terminal error
	EventFailed
)

// Event is one message on the export channel
type Event struct {
	Kind     EventKind
	Progress string
	Data     []byte
	Err      error

	// Warnings accompany a terminal Done event: per-page anomalies that
	// were recovered locally rather than aborting the export
	Warnings []string
}

// envelope is the wire shape shared by all message kinds. Progress messages
// carry only "progress"; terminal messages carry "ok" plus either "data" or
// "error".
type envelope struct {
	Progress *string `json:"progress,omitempty"`
	OK       *bool   `json:"ok,omitempty"`
	Data     []byte  `json:"data,omitempty"`
	Error    *string `json:"error,omitempty"`
}

// EncodeEvent serializes an event into its wire form
func EncodeEvent(ev Event) ([]byte, error) {
	var env envelope
	switch ev.Kind {
	case EventProgress:
		env.Progress = &ev.Progress
	case EventDone:
		ok := true
		env.OK = &ok
		env.Data = ev.Data
	case EventFailed:
		ok := false
		msg := ""
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		env.OK = &ok
		env.Error = &msg
	}
	return sonic.Marshal(env)
}

// DecodeEvent parses a wire message. Unrecognized shapes return ok=false
// and must be ignored by the caller, never treated as fatal: the channel
// may carry unrelated host messages.
func DecodeEvent(raw []byte) (Event, bool) {
	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return Event{}, false
	}

	switch {
	case env.Progress != nil:
		return Event{Kind: EventProgress, Progress: *env.Progress}, true
	case env.OK != nil && *env.OK:
		return Event{Kind: EventDone, Data: env.Data}, true
	case env.OK != nil:
		msg := "export failed"
		if env.Error != nil {
			msg = *env.Error
		}
		return Event{Kind: EventFailed, Err: errors.New(msg)}, true
	default:
		return Event{}, false
	}
}
