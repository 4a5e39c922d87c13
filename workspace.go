package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/maruel/natural"
	"go.uber.org/zap"
)

var ErrTargetNotFound = errors.New("no open document contains the image")

// Workspace is a directory of markdown documents. Every document under the
// root counts as an open leaf; the index follows the file system while
// watching.
type Workspace struct {
	root string
	cfg  VaultConfig
	log  *zap.Logger

	mu   sync.RWMutex
	docs map[string]struct{} // slash-separated paths relative to root
}

func NewWorkspace(cfg VaultConfig, log *zap.Logger) (*Workspace, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving vault root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root '%s' is not a directory", root)
	}

	w := &Workspace{
		root: root,
		cfg:  cfg,
		log:  log,
		docs: make(map[string]struct{}),
	}
	w.scan(root)
	return w, nil
}

func (w *Workspace) Root() string {
	return w.root
}

// scan indexes every document below dir.
func (w *Workspace) scan(dir string) {
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		w.add(path)
		return nil
	})
}

func (w *Workspace) rel(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Workspace) add(abs string) {
	if !w.cfg.IsDocument(abs) {
		return
	}
	rel, ok := w.rel(abs)
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.docs[rel]; !ok {
		w.docs[rel] = struct{}{}
		w.log.Debug("Document indexed", zap.String("path", rel))
	}
}

// remove drops abs from the index, along with everything below it when abs
// was a directory.
func (w *Workspace) remove(abs string) {
	rel, ok := w.rel(abs)
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for doc := range w.docs {
		if doc == rel || strings.HasPrefix(doc, rel+"/") {
			delete(w.docs, doc)
			w.log.Debug("Document dropped", zap.String("path", doc))
		}
	}
}

func (w *Workspace) has(rel string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.docs[rel]
	return ok
}

// Leaves returns the indexed documents in natural order.
func (w *Workspace) Leaves() []string {
	w.mu.RLock()
	leaves := make([]string, 0, len(w.docs))
	for rel := range w.docs {
		leaves = append(leaves, rel)
	}
	w.mu.RUnlock()
	sort.Sort(natural.StringSlice(leaves))
	return leaves
}

// resolve maps a document path to an absolute path inside the root.
func (w *Workspace) resolve(rel string) (string, error) {
	if rel == "" {
		return "", errors.New("empty document path")
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) {
		r, ok := w.rel(clean)
		if !ok {
			return "", fmt.Errorf("document '%s' is outside the vault", rel)
		}
		clean = filepath.FromSlash(r)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("document '%s' is outside the vault", rel)
	}
	return filepath.Join(w.root, clean), nil
}

func (w *Workspace) normalize(rel string) string {
	abs, err := w.resolve(rel)
	if err != nil {
		return ""
	}
	r, _ := w.rel(abs)
	return r
}

func (w *Workspace) Read(ctx context.Context, rel string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	abs, err := w.resolve(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	return string(data), nil
}

// Modify replaces the document's text. The new text lands through a rename so
// readers never see a partial file.
func (w *Workspace) Modify(ctx context.Context, rel, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := w.resolve(rel)
	if err != nil {
		return err
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), "."+filepath.Base(abs)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("writing document: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("writing document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	w.add(abs)
	return nil
}

// LeafFor finds the open document that renders the target image: the leaf the
// host named when it is an indexed document, otherwise the first document
// whose text contains the image source.
func (w *Workspace) LeafFor(ctx context.Context, t Target) (string, error) {
	if t.Leaf != "" {
		if rel := w.normalize(t.Leaf); rel != "" && w.has(rel) {
			return rel, nil
		}
	}
	if t.Src == "" {
		return "", fmt.Errorf("%w: target has no source", ErrTargetNotFound)
	}

	for _, rel := range w.Leaves() {
		text, err := w.Read(ctx, rel)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			w.log.Debug("Skipping unreadable document", zap.String("path", rel), zap.Error(err))
			continue
		}
		if strings.Contains(text, t.Src) {
			return rel, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTargetNotFound, abbreviate(t.Src, 48))
}
