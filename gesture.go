package main

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

type gestureState int

const (
	stateIdle gestureState = iota
	stateArmed
)

func (s gestureState) String() string {
	if s == stateArmed {
		return "armed"
	}
	return "idle"
}

// Modifiers are the live modifier flags carried by a wheel event.
type Modifiers struct {
	Alt   bool `json:"altKey"`
	Ctrl  bool `json:"ctrlKey"`
	Shift bool `json:"shiftKey"`
	Meta  bool `json:"metaKey"`
}

// Held reports whether the named modifier (alt, ctrl, shift or meta) is down.
func (m Modifiers) Held(name string) bool {
	switch strings.ToLower(name) {
	case "alt":
		return m.Alt
	case "ctrl", "control":
		return m.Ctrl
	case "shift":
		return m.Shift
	case "meta", "cmd":
		return m.Meta
	}
	return false
}

type WheelEvent struct {
	DeltaY float64
	Mods   Modifiers
	Target Target
}

// gestureVerdict is what a wheel tick turned out to be.
type gestureVerdict struct {
	Kind TargetKind
	Zoom bool
}

// gestures tracks, per window, whether the zoom modifier is held. Key-up
// events get lost when focus leaves the window, so every wheel event
// re-checks its own modifier flag before being trusted.
type gestures struct {
	modifier string
	keys     []string
	scroll   *scrollInterceptor

	mu      sync.Mutex
	windows map[string]gestureState
}

func newGestures(cfg GestureConfig, scroll *scrollInterceptor) *gestures {
	return &gestures{
		modifier: cfg.Modifier,
		keys:     cfg.Keys,
		scroll:   scroll,
		windows:  make(map[string]gestureState),
	}
}

func (g *gestures) register(win string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.windows[win]; !ok {
		g.windows[win] = stateIdle
	}
}

// unregister drops the window and restores its default scrolling.
func (g *gestures) unregister(win string) error {
	g.mu.Lock()
	delete(g.windows, win)
	g.mu.Unlock()
	return g.scroll.enable(win)
}

func (g *gestures) state(win string) gestureState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.windows[win]
}

func (g *gestures) set(win string, s gestureState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.windows[win] = s
}

func (g *gestures) isModifierKey(code string) bool {
	return slices.Contains(g.keys, code)
}

func (g *gestures) keyDown(win, code string) {
	if g.isModifierKey(code) {
		g.set(win, stateArmed)
	}
}

func (g *gestures) keyUp(win, code string) error {
	if !g.isModifierKey(code) {
		return nil
	}
	return g.disarm(win)
}

func (g *gestures) disarm(win string) error {
	g.set(win, stateIdle)
	return g.scroll.enable(win)
}

// wheel decides whether ev is a zoom gesture. Zoomable targets capture the
// wheel so the page does not scroll underneath.
func (g *gestures) wheel(win string, ev WheelEvent) (gestureVerdict, error) {
	if g.state(win) != stateArmed {
		g.register(win)
		// A failed enable on key-up left the blocker installed.
		return gestureVerdict{}, g.scroll.enable(win)
	}
	if !ev.Mods.Held(g.modifier) {
		// Stale key state, e.g. after Alt+Tab swallowed the key-up.
		return gestureVerdict{}, g.disarm(win)
	}

	kind := classifyTarget(ev.Target)
	v := gestureVerdict{Kind: kind, Zoom: kind == TargetImage}
	if kind.Zoomable() {
		if err := g.scroll.disable(win); err != nil {
			return v, err
		}
	}
	return v, nil
}

func (g *gestures) windowIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.windows))
	for id := range g.windows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// disarmAll forces every tracked window idle and re-enables its scrolling.
func (g *gestures) disarmAll() (err error) {
	for _, win := range g.windowIDs() {
		if er := g.disarm(win); er != nil {
			err = multierr.Append(err, fmt.Errorf("window %q: %w", win, er))
		}
	}
	return err
}
