package main

import (
	"encoding/base64"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/h2non/filetype"
)

// embedPattern matches ![](uri) and ![|width](uri).
var embedPattern = regexp.MustCompile(`!\[(?:\|(\d+))?\]\(([^)\s]+)\)`)

// EmbedInfo is an image embed found in a document.
type EmbedInfo struct {
	ImageEmbed
	Line   int
	MIME   string
	Native int   // PNG header width, 0 if unknown
	Err    error // why Native is unknown for a PNG
}

// IsPNG reports whether the embed is an inline PNG the zoomer can handle.
func (e EmbedInfo) IsPNG() bool {
	return isPNGDataURI(e.URI)
}

func scanEmbeds(text string) []EmbedInfo {
	var embeds []EmbedInfo
	line, last := 1, 0
	for _, m := range embedPattern.FindAllStringSubmatchIndex(text, -1) {
		line += strings.Count(text[last:m[0]], "\n")
		last = m[0]

		e := EmbedInfo{Line: line}
		e.URI = text[m[4]:m[5]]
		if m[2] >= 0 {
			e.Width, _ = strconv.Atoi(text[m[2]:m[3]])
		}
		e.MIME = sniffMIME(e.URI)
		if e.IsPNG() {
			e.Native, e.Err = decodePNGWidth(e.URI)
		}
		embeds = append(embeds, e)
	}
	return embeds
}

// Enough base64 for the longest signature filetype checks (262 bytes).
const sniffChars = 352

// sniffMIME detects the media type of an embed from its leading bytes for
// data URIs, or from its extension otherwise.
func sniffMIME(uri string) string {
	if !strings.HasPrefix(uri, "data:") {
		ext := strings.TrimPrefix(path.Ext(uri), ".")
		if ext == "" || !filetype.IsSupported(ext) {
			return ""
		}
		return filetype.GetType(ext).MIME.Value
	}

	comma := strings.IndexByte(uri, ',')
	if comma < 0 || !strings.Contains(uri[:comma], ";base64") {
		return ""
	}
	payload := strings.TrimRight(uri[comma+1:], "=")
	if len(payload) > sniffChars {
		payload = payload[:sniffChars]
	}
	if len(payload)%4 == 1 {
		payload = payload[:len(payload)-1]
	}
	head, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		return ""
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}
