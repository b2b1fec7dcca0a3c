package preview

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"
	"strings"
)

// ParseHex parses "#rgb", "#rgba", "#rrggbb" or "#rrggbbaa" (leading '#'
// optional). Alpha digits are ignored; the result is opaque. Anything
// else returns fallback.
func ParseHex(s string, fallback color.RGBA) color.RGBA {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3, 4:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6, 8:
		h = h[:6]
	default:
		return fallback
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// Hex formats c as "#rrggbb".
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	bw := bufio.NewWriter(w)
	if err := png.Encode(bw, img); err != nil {
		return fmt.Errorf("preview: encode png: %w", err)
	}
	return bw.Flush()
}

// EncodePNGBase64 returns img as base64-encoded PNG, the form MCP image
// content carries.
func EncodePNGBase64(img image.Image) (string, error) {
	var sb strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	if err := EncodePNG(enc, img); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("preview: encode base64: %w", err)
	}
	return sb.String(), nil
}
