package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestReadEvents(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"keydown","window":"main","code":"AltLeft"}`,
		``,
		`{not json`,
		`{"type":"wheel","deltaY":-100,"altKey":true,"target":{"tag":"IMG","classes":["x"],"src":"data:image/png;base64,iVBOR","width":320,"leaf":"a.md"}}`,
	}, "\n")

	var errs []error
	var got []Event
	for ev := range readEvents(context.Background(), strings.NewReader(input), func(err error) { errs = append(errs, err) }) {
		got = append(got, ev)
	}

	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "line 3") {
		t.Errorf("errors = %v, want one for line 3", errs)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != EventKeyDown || got[0].Code != "AltLeft" || got[0].window() != "main" {
		t.Errorf("first event = %+v", got[0])
	}

	wheel := got[1]
	if wheel.window() != mainWindow {
		t.Errorf("missing window should default to main, got %q", wheel.window())
	}
	if !wheel.Alt || wheel.Ctrl || wheel.DeltaY != -100 {
		t.Errorf("wheel modifiers = %+v, delta %v", wheel.Modifiers, wheel.DeltaY)
	}
	if wheel.Target.Tag != "IMG" || wheel.Target.Width != 320 || wheel.Target.Leaf != "a.md" || len(wheel.Target.Classes) != 1 {
		t.Errorf("wheel target = %+v", wheel.Target)
	}
}

func TestReadEvents_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := readEvents(ctx, strings.NewReader("{\"type\":\"keyup\"}\n{\"type\":\"keyup\"}\n"), func(error) {})
	cancel()

	// The reader gives up instead of blocking on an abandoned channel.
	for range events {
	}
}

func TestJSONHost(t *testing.T) {
	var buf bytes.Buffer
	h := newJSONHost(&buf)

	h.BlockWheel("main")
	h.UnblockWheel("popout")
	h.Zoomed("main", ZoomResult{Path: "a.md", New: 105})

	want := `{"op":"disable-scroll","window":"main"}
{"op":"enable-scroll","window":"popout"}
{"op":"zoomed","window":"main","path":"a.md","width":105}
`
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
