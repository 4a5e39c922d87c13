package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestZoomer_BareZoomIn(t *testing.T) {
	uri := createTestPNG(t, 100)
	docs := newMemDocs(map[string]string{"note.md": "# Title\n\n![](" + uri + ")\n"})
	z := NewZoomer(docs, zaptest.NewLogger(t))

	res, err := z.Zoom(context.Background(), ZoomRequest{Path: "note.md", URI: uri, Rendered: 100, DeltaY: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Native != 100 || res.Old != 0 || res.New != 105 {
		t.Errorf("result = %+v", res)
	}
	if res.ID == "" {
		t.Error("expected operation id")
	}

	text := docs.get("note.md")
	if !strings.Contains(text, "![|105]("+uri+")") {
		t.Errorf("annotated embed missing from %q", abbreviate(text, 80))
	}
	if strings.Contains(text, "![]("+uri+")") {
		t.Error("bare embed still present")
	}
}

func TestZoomer_MixedFormsShareWidth(t *testing.T) {
	uri := createTestPNG(t, 100)
	docs := newMemDocs(map[string]string{"note.md": "![|105](" + uri + ")\n![](" + uri + ")\n"})
	z := NewZoomer(docs, zaptest.NewLogger(t))

	res, err := z.Zoom(context.Background(), ZoomRequest{Path: "note.md", URI: uri, Rendered: 105, DeltaY: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.New != 110 {
		t.Errorf("result = %+v", res)
	}
	if got, want := docs.get("note.md"), "![|110]("+uri+")\n![|110]("+uri+")\n"; got != want {
		t.Errorf("document = %q, want %q", abbreviate(got, 80), abbreviate(want, 80))
	}
}

func TestZoomer_InThenOut(t *testing.T) {
	uri := createTestPNG(t, 640)
	docs := newMemDocs(map[string]string{"note.md": "![|640](" + uri + ")"})
	z := NewZoomer(docs, zaptest.NewLogger(t))
	ctx := context.Background()

	in, err := z.Zoom(ctx, ZoomRequest{Path: "note.md", URI: uri, Rendered: 640, DeltaY: -1})
	if err != nil {
		t.Fatalf("zoom in: %v", err)
	}
	if in.Old != 640 || in.New != 672 {
		t.Errorf("zoom in result = %+v", in)
	}

	out, err := z.Zoom(ctx, ZoomRequest{Path: "note.md", URI: uri, Rendered: in.New, DeltaY: 1})
	if err != nil {
		t.Fatalf("zoom out: %v", err)
	}
	if out.New != 640 {
		t.Errorf("zoom out result = %+v", out)
	}
	if got := docs.get("note.md"); got != "![|640]("+uri+")" {
		t.Errorf("document = %q", abbreviate(got, 80))
	}
}

func TestZoomer_NothingWritten(t *testing.T) {
	png := createTestPNG(t, 100)
	tests := []struct {
		name    string
		text    string
		req     ZoomRequest
		wantErr error
	}{
		{
			name:    "not a png",
			text:    "![](data:image/jpeg;base64,/9j/4AAQ)",
			req:     ZoomRequest{URI: "data:image/jpeg;base64,/9j/4AAQ", Rendered: 10, DeltaY: -1},
			wantErr: ErrUnsupportedImage,
		},
		{
			name:    "broken png",
			text:    "![](data:image/png;base64,AAAA)",
			req:     ZoomRequest{URI: "data:image/png;base64,AAAA", Rendered: 10, DeltaY: -1},
			wantErr: ErrDecode,
		},
		{
			name:    "stale rendered width",
			text:    "![|120](" + png + ")",
			req:     ZoomRequest{URI: png, Rendered: 115, DeltaY: -1},
			wantErr: ErrRewriteMismatch,
		},
		{
			name:    "embed missing",
			text:    "no images",
			req:     ZoomRequest{URI: png, Rendered: 100, DeltaY: -1},
			wantErr: ErrRewriteMismatch,
		},
		{
			name: "width at floor",
			text: "![|24](" + png + ")",
			req:  ZoomRequest{URI: png, Rendered: 24, DeltaY: 1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			docs := newMemDocs(map[string]string{"note.md": tc.text})
			z := NewZoomer(docs, zaptest.NewLogger(t))
			tc.req.Path = "note.md"

			_, err := z.Zoom(context.Background(), tc.req)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if n := docs.writeCount(); n != 0 {
				t.Errorf("expected no write, got %d", n)
			}
			if got := docs.get("note.md"); got != tc.text {
				t.Errorf("document changed to %q", abbreviate(got, 80))
			}
		})
	}
}

func TestZoomer_ReadError(t *testing.T) {
	uri := createTestPNG(t, 100)
	z := NewZoomer(newMemDocs(map[string]string{}), zaptest.NewLogger(t))

	if _, err := z.Zoom(context.Background(), ZoomRequest{Path: "missing.md", URI: uri, Rendered: 100}); err == nil {
		t.Fatal("expected error for missing document")
	}
}

func TestZoomer_ConcurrentZoomsKeepEveryUpdate(t *testing.T) {
	const n = 16

	uris := make([]string, n)
	var text strings.Builder
	for i := 0; i < n; i++ {
		uris[i] = createTestPNG(t, 100+i)
		fmt.Fprintf(&text, "image %d\n![](%s)\n", i, uris[i])
	}
	docs := newMemDocs(map[string]string{"note.md": text.String()})
	z := NewZoomer(docs, zaptest.NewLogger(t))

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := z.Zoom(context.Background(), ZoomRequest{Path: "note.md", URI: uris[i], Rendered: 100 + i, DeltaY: -1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	final := docs.get("note.md")
	for i, uri := range uris {
		want := ImageEmbed{URI: uri, Width: ladderWidth(100+i, 1)}.String()
		if !strings.Contains(final, want) {
			t.Errorf("update for image %d lost", i)
		}
	}
	if docs.writeCount() != n {
		t.Errorf("expected %d writes, got %d", n, docs.writeCount())
	}
}

func TestPathLocker(t *testing.T) {
	pl := newPathLocker()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pl.Lock("doc.md")
			v := counter
			counter = v + 1
			pl.Unlock("doc.md")
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if len(pl.locks) != 0 {
		t.Errorf("expected lock table to drain, %d entries left", len(pl.locks))
	}

	// Unlocking an unknown path is harmless.
	pl.Unlock("other.md")
}
