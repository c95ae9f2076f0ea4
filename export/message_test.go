package export

import (
	"bytes"
	"errors"
	"testing"
)

func TestProgressRoundTrip(t *testing.T) {
	raw, err := EncodeEvent(Event{Kind: EventProgress, Progress: "scanning page 10 of 40"})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	ev, ok := DecodeEvent(raw)
	if !ok {
		t.Fatal("progress message should decode")
	}
	if ev.Kind != EventProgress || ev.Progress != "scanning page 10 of 40" {
		t.Errorf("decoded %+v", ev)
	}
}

func TestDoneRoundTrip(t *testing.T) {
	payload := []byte("%PDF-1.4 output")
	raw, err := EncodeEvent(Event{Kind: EventDone, Data: payload})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	ev, ok := DecodeEvent(raw)
	if !ok || ev.Kind != EventDone {
		t.Fatalf("decoded %+v ok=%v", ev, ok)
	}
	if !bytes.Equal(ev.Data, payload) {
		t.Errorf("data = %q", ev.Data)
	}
}

func TestFailedRoundTrip(t *testing.T) {
	raw, err := EncodeEvent(Event{Kind: EventFailed, Err: errors.New("invalid document")})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	ev, ok := DecodeEvent(raw)
	if !ok || ev.Kind != EventFailed {
		t.Fatalf("decoded %+v ok=%v", ev, ok)
	}
	if ev.Err == nil || ev.Err.Error() != "invalid document" {
		t.Errorf("err = %v", ev.Err)
	}
}

func TestUnknownShapesIgnored(t *testing.T) {
	// The channel may carry unrelated host messages; they must be ignored,
	// not treated as fatal
	unknown := [][]byte{
		[]byte(`{"kind":"heartbeat","seq":42}`),
		[]byte(`{}`),
		[]byte(`not json at all`),
		[]byte(`[1,2,3]`),
	}
	for _, raw := range unknown {
		if ev, ok := DecodeEvent(raw); ok {
			t.Errorf("message %s unexpectedly decoded to %+v", raw, ev)
		}
	}
}
