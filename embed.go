package main

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrRewriteMismatch = errors.New("embed text not found in document")

// ImageEmbed is a markdown image reference. Width 0 is the bare form.
type ImageEmbed struct {
	URI   string
	Width int
}

func (e ImageEmbed) String() string {
	if e.Width <= 0 {
		return "![](" + e.URI + ")"
	}
	return "![|" + strconv.Itoa(e.Width) + "](" + e.URI + ")"
}

// priorEmbed picks the form the document is expected to hold for uri: the bare
// embed when present, otherwise the embed annotated with the rendered width.
func priorEmbed(text, uri string, rendered int) ImageEmbed {
	bare := ImageEmbed{URI: uri}
	if strings.Contains(text, bare.String()) {
		return bare
	}
	return ImageEmbed{URI: uri, Width: rendered}
}

// rewriteEmbed annotates every embed of prior's image with width, whether it
// was bare or carried another width, so all of them keep the same form. Text
// is returned unchanged with ErrRewriteMismatch when prior does not occur
// verbatim.
func rewriteEmbed(text string, prior ImageEmbed, width int) (string, error) {
	old := prior.String()
	if !strings.Contains(text, old) {
		return text, fmt.Errorf("%w: %s", ErrRewriteMismatch, abbreviate(old, 48))
	}
	forms := regexp.MustCompile(`!\[(?:\|\d+)?\]\(` + regexp.QuoteMeta(prior.URI) + `\)`)
	return forms.ReplaceAllLiteralString(text, ImageEmbed{URI: prior.URI, Width: width}.String()), nil
}

// abbreviate shortens s for log output; data URIs run to megabytes.
func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
