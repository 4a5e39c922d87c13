package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDecode           = errors.New("png width decode failed")
	ErrUnsupportedImage = errors.New("image is not a base64 png data uri")
)

const (
	pngDataPrefix = "data:image/png"

	// Base64 of the PNG signature's first bytes "\x89PNG".
	pngMarker = "iVBOR"

	// The IHDR width field starts at byte 16 (bit 128). Base64 character 21
	// covers bits 126..131, so seven characters from there hold bits
	// 126..167, which include the full 32-bit width.
	widthCharOffset = 21
	widthCharCount  = 7
)

// isPNGDataURI reports whether the uri looks like an inline PNG.
func isPNGDataURI(uri string) bool {
	return strings.Contains(uri, pngDataPrefix)
}

// decodePNGWidth reads the IHDR width of a base64 PNG straight from its
// textual encoding, without decoding the rest of the image.
func decodePNGWidth(uri string) (int, error) {
	idx := strings.Index(uri, pngMarker)
	if idx < 0 {
		return 0, fmt.Errorf("%w: signature marker not found", ErrDecode)
	}
	start := idx + widthCharOffset
	end := start + widthCharCount
	if end > len(uri) {
		return 0, fmt.Errorf("%w: data too short for IHDR (%d chars)", ErrDecode, len(uri)-idx)
	}

	// Seven characters are not a whole base64 quantum; RawStdEncoding is
	// lenient about the two dangling bits.
	b, err := base64.RawStdEncoding.DecodeString(uri[start:end])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(b) < 5 {
		return 0, fmt.Errorf("%w: got %d bytes, need 5", ErrDecode, len(b))
	}

	// Decoded bytes are shifted by two bits against the PNG bytes.
	width := uint32(b[0]&0b00111111) << 26
	width |= uint32(b[1]) << 18
	width |= uint32(b[2]) << 10
	width |= uint32(b[3]) << 2
	width |= uint32(b[4]&0b11000000) >> 6

	if width == 0 || width > 1<<31-1 {
		return 0, fmt.Errorf("%w: implausible width %d", ErrDecode, width)
	}
	return int(width), nil
}
