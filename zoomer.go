package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentStore reads and writes document text by path.
type DocumentStore interface {
	Read(ctx context.Context, path string) (string, error)
	Modify(ctx context.Context, path, text string) error
}

type ZoomRequest struct {
	Path     string  // document holding the embed
	URI      string  // image source
	Rendered int     // width the image is displayed at
	DeltaY   float64 // negative zooms in
}

type ZoomResult struct {
	ID     string
	Path   string
	Native int
	Old    int // 0 when the embed was bare
	New    int
}

// Zoomer applies one zoom step to a document. Steps on the same document
// never overlap, so a fast wheel cannot lose an update.
type Zoomer struct {
	docs  DocumentStore
	locks *pathLocker
	log   *zap.Logger
}

func NewZoomer(docs DocumentStore, log *zap.Logger) *Zoomer {
	return &Zoomer{docs: docs, locks: newPathLocker(), log: log}
}

func (z *Zoomer) Zoom(ctx context.Context, req ZoomRequest) (ZoomResult, error) {
	res := ZoomResult{ID: uuid.NewString(), Path: req.Path}
	if !isPNGDataURI(req.URI) {
		return res, ErrUnsupportedImage
	}
	log := z.log.With(zap.String("op", res.ID), zap.String("path", req.Path))

	z.locks.Lock(req.Path)
	defer z.locks.Unlock(req.Path)

	text, err := z.docs.Read(ctx, req.Path)
	if err != nil {
		return res, err
	}

	native, err := decodePNGWidth(req.URI)
	if err != nil {
		return res, err
	}
	res.Native = native

	prior := priorEmbed(text, req.URI, req.Rendered)
	res.Old = prior.Width
	res.New = calcZoom(ZoomInput{
		Native:    native,
		Current:   req.Rendered,
		Annotated: prior.Width > 0,
		DeltaY:    req.DeltaY,
	})

	updated, err := rewriteEmbed(text, prior, res.New)
	if err != nil {
		return res, err
	}
	if updated == text {
		log.Debug("Width unchanged, nothing to write", zap.Int("width", res.New))
		return res, nil
	}
	if err := z.docs.Modify(ctx, req.Path, updated); err != nil {
		return res, fmt.Errorf("saving %s: %w", req.Path, err)
	}

	log.Debug("Image zoomed", zap.Int("native", native), zap.Int("old", res.Old), zap.Int("new", res.New))
	return res, nil
}
