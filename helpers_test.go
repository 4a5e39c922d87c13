package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"
)

// createTestPNG encodes a width x 1 image as a PNG data URI.
func createTestPNG(t *testing.T, width int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, 1))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{uint8(x % 256), 64, 200, 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// recordingHost remembers every command the plugin sends.
type recordingHost struct {
	mu       sync.Mutex
	commands []Command
	fail     error
}

func (h *recordingHost) record(c Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail != nil {
		return h.fail
	}
	h.commands = append(h.commands, c)
	return nil
}

func (h *recordingHost) BlockWheel(win string) error {
	return h.record(Command{Op: opDisableScroll, Window: win})
}

func (h *recordingHost) UnblockWheel(win string) error {
	return h.record(Command{Op: opEnableScroll, Window: win})
}

func (h *recordingHost) Zoomed(win string, res ZoomResult) error {
	return h.record(Command{Op: opZoomed, Window: win, Path: res.Path, Width: res.New})
}

func (h *recordingHost) ops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var ops []string
	for _, c := range h.commands {
		ops = append(ops, c.Op+":"+c.Window)
	}
	return ops
}

// memDocs is an in-memory DocumentStore.
type memDocs struct {
	mu     sync.Mutex
	docs   map[string]string
	writes int
}

func newMemDocs(docs map[string]string) *memDocs {
	return &memDocs{docs: docs}
}

func (m *memDocs) get(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[path]
}

func (m *memDocs) Read(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.docs[path]
	if !ok {
		return "", os.ErrNotExist
	}
	return text, nil
}

func (m *memDocs) Modify(_ context.Context, path, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = text
	m.writes++
	return nil
}

func (m *memDocs) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
