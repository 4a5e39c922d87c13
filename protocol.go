package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

const (
	EventKeyDown     = "keydown"
	EventKeyUp       = "keyup"
	EventWheel       = "wheel"
	EventWindowOpen  = "window-open"
	EventWindowClose = "window-close"
)

// Event is one line of input from the host.
type Event struct {
	Type   string  `json:"type"`
	Window string  `json:"window"`
	Code   string  `json:"code,omitempty"`
	DeltaY float64 `json:"deltaY,omitempty"`
	Modifiers
	Target Target `json:"target"`
}

func (ev Event) window() string {
	if ev.Window == "" {
		return mainWindow
	}
	return ev.Window
}

const (
	opDisableScroll = "disable-scroll"
	opEnableScroll  = "enable-scroll"
	opZoomed        = "zoomed"
)

// Command is one line of output to the host.
type Command struct {
	Op     string `json:"op"`
	Window string `json:"window"`
	Path   string `json:"path,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// Host receives the plugin's requests.
type Host interface {
	ScrollHost
	Zoomed(win string, res ZoomResult) error
}

// jsonHost writes commands as JSON lines.
type jsonHost struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newJSONHost(w io.Writer) *jsonHost {
	return &jsonHost{enc: json.NewEncoder(w)}
}

func (h *jsonHost) send(c Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enc.Encode(c)
}

func (h *jsonHost) BlockWheel(win string) error {
	return h.send(Command{Op: opDisableScroll, Window: win})
}

func (h *jsonHost) UnblockWheel(win string) error {
	return h.send(Command{Op: opEnableScroll, Window: win})
}

func (h *jsonHost) Zoomed(win string, res ZoomResult) error {
	return h.send(Command{Op: opZoomed, Window: win, Path: res.Path, Width: res.New})
}

// Inline images make single events large.
const maxEventSize = 64 << 20

// readEvents decodes JSON lines from r onto the returned channel until r is
// exhausted or ctx is done. Malformed lines are reported through onErr and
// skipped.
func readEvents(ctx context.Context, r io.Reader, onErr func(error)) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)
		line := 0
		for sc.Scan() {
			line++
			data := sc.Bytes()
			if len(data) == 0 {
				continue
			}
			var ev Event
			if err := json.Unmarshal(data, &ev); err != nil {
				onErr(fmt.Errorf("event line %d: %w", line, err))
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			onErr(fmt.Errorf("reading events: %w", err))
		}
	}()
	return out
}
