package main

import (
	"slices"
	"strings"
)

const (
	canvasBlockerClass   = "canvas-node-content-blocker"
	canvasContainerClass = "canvas-node-content"
	imageTag             = "IMG"
)

type TargetKind int

const (
	TargetOther TargetKind = iota
	TargetCanvasBlocker
	TargetCanvasNode
	TargetImage
)

func (k TargetKind) String() string {
	switch k {
	case TargetCanvasBlocker:
		return "canvas-blocker"
	case TargetCanvasNode:
		return "canvas-node"
	case TargetImage:
		return "image"
	default:
		return "other"
	}
}

// Zoomable reports whether wheel ticks over this kind are captured.
func (k TargetKind) Zoomable() bool {
	return k != TargetOther
}

// Target describes the element under the cursor as the host reports it.
type Target struct {
	Tag       string   `json:"tag"`
	Classes   []string `json:"classes,omitempty"`
	Ancestors []string `json:"ancestors,omitempty"` // classes of all ancestors
	Src       string   `json:"src,omitempty"`
	Width     int      `json:"width,omitempty"` // rendered width in pixels
	Leaf      string   `json:"leaf,omitempty"`  // document hosting the element, if known
}

func classifyTarget(t Target) TargetKind {
	switch {
	case slices.Contains(t.Classes, canvasBlockerClass):
		return TargetCanvasBlocker
	case slices.Contains(t.Classes, canvasContainerClass), slices.Contains(t.Ancestors, canvasContainerClass):
		return TargetCanvasNode
	case strings.EqualFold(t.Tag, imageTag):
		return TargetImage
	default:
		return TargetOther
	}
}
