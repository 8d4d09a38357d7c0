package snapshot

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// Format selects an output encoding.
type Format uint8

const (
	FormatWebP Format = iota
	FormatPNG
)

// ErrUnknownFormat is returned for unsupported format names or extensions.
var ErrUnknownFormat = errors.New("snapshot: unknown image format")

// ParseFormat resolves "webp" or "png" (case-insensitive).
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "webp", "":
		return FormatWebP, nil
	case "png":
		return FormatPNG, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".webp"
}

// Encode writes img to w in format f. WebP output is lossless.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatWebP:
		return nativewebp.Encode(w, img, nil)
	case FormatPNG:
		return png.Encode(w, img)
	}
	return fmt.Errorf("%w: %d", ErrUnknownFormat, f)
}

// EncodeAnimation writes frames as a looping animated WebP, each shown for
// frameMillis milliseconds.
func EncodeAnimation(w io.Writer, frames []image.Image, frameMillis uint) error {
	if len(frames) == 0 {
		return errors.New("snapshot: no frames")
	}
	ani := &nativewebp.Animation{
		Images:    frames,
		Durations: make([]uint, len(frames)),
		Disposals: make([]uint, len(frames)),
	}
	for i := range frames {
		ani.Durations[i] = frameMillis
		ani.Disposals[i] = 1
	}
	return nativewebp.EncodeAll(w, ani, nil)
}

// WriteFile encodes img to path, picking the format from the extension.
func WriteFile(path string, img image.Image) error {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(out, img, f); err != nil {
		_ = out.Close()
		return fmt.Errorf("snapshot: encode %s: %w", path, err)
	}
	return out.Close()
}
