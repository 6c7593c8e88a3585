// Package imaging decodes signature images and prepares them for drawing:
// format detection, resampling to a target pixel size and PNG encoding.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmpty is returned for zero-length image data.
var ErrEmpty = errors.New("empty image data")

// MaxPixels bounds the area of any image this package allocates.
const MaxPixels = 40_000_000

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

// ContentType maps a registered format name to its MIME type.
func ContentType(format string) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Sniff reports the format and pixel size of data without decoding pixels.
func Sniff(data []byte) (format string, size image.Point, err error) {
	if len(data) == 0 {
		return "", image.Point{}, ErrEmpty
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", image.Point{}, fmt.Errorf("reading image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", image.Point{}, fmt.Errorf("image is %dx%d, larger than %d pixels", cfg.Width, cfg.Height, MaxPixels)
	}
	return format, image.Pt(cfg.Width, cfg.Height), nil
}

// Decode decodes any registered format after checking its size.
func Decode(data []byte) (image.Image, string, error) {
	if _, _, err := Sniff(data); err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}
	return img, format, nil
}

// Resample scales src to exactly w x h pixels with Catmull-Rom filtering,
// preserving alpha.
func Resample(src image.Image, w, h int) *image.NRGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// TargetPixels converts a size in page units into a pixel size at density
// pixels per unit, clamped so the area stays under MaxPixels.
func TargetPixels(widthPt, heightPt, density float64) (int, int) {
	w := math.Max(1, math.Round(widthPt*density))
	h := math.Max(1, math.Round(heightPt*density))
	if area := w * h; area > MaxPixels {
		f := math.Sqrt(MaxPixels / area)
		w = math.Max(1, math.Floor(w*f))
		h = math.Max(1, math.Floor(h*f))
	}
	return int(w), int(h)
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// Fit decodes data and returns it as a PNG of exactly w x h pixels. The
// image is stretched to fill the box, matching how overlays are displayed.
func Fit(data []byte, w, h int) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodePNG(Resample(img, w, h))
}

// Blank returns an opaque w x h image filled with c.
func Blank(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}
