// Package preview renders a page raster with its overlays and field outlines
// composited on top, projecting percentage geometry onto the raster's own
// pixel size.
package preview

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ziadkadry99/sigplace/internal/fields"
	"github.com/ziadkadry99/sigplace/internal/geometry"
	"github.com/ziadkadry99/sigplace/internal/imaging"
	"github.com/ziadkadry99/sigplace/internal/overlay"
)

// RasterSource renders a page to pixels.
type RasterSource interface {
	RasterImage(ctx context.Context, pageIndex int) (image.Image, error)
}

// PageSizer reports page sizes in points.
type PageSizer interface {
	PageSize(pageIndex int) (geometry.Size, error)
}

// FieldOutliner projects the form fields of a page onto a raster of the
// given pixel size.
type FieldOutliner interface {
	Outlines(ctx context.Context, pageIndex int, raster geometry.Size) ([]fields.Outline, error)
}

// DefaultDPI is the preview resolution when none is configured.
const DefaultDPI = 72.0

// BlankRaster renders every page as a white sheet of the page's size at DPI.
// It stands in for a real page renderer; clients that display the document
// themselves only need the overlay and field geometry.
type BlankRaster struct {
	Pages PageSizer
	DPI   float64
}

// RasterImage implements RasterSource.
func (b BlankRaster) RasterImage(ctx context.Context, pageIndex int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size, err := b.Pages.PageSize(pageIndex)
	if err != nil {
		return nil, err
	}
	dpi := b.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	scale := geometry.Scale{X: dpi / 72, Y: dpi / 72}
	bounds := scale.Apply(geometry.PageRect{Width: size.Width, Height: size.Height}, size.Height)
	w := int(math.Max(1, math.Round(bounds.Width)))
	h := int(math.Max(1, math.Round(bounds.Height)))
	if int64(w)*int64(h) > imaging.MaxPixels {
		return nil, fmt.Errorf("page %d preview of %dx%d pixels is too large", pageIndex, w, h)
	}
	return imaging.Blank(w, h, color.White), nil
}

var (
	fieldStroke = color.RGBA{R: 30, G: 110, B: 220, A: 255}
	fieldFill   = color.RGBA{R: 30, G: 110, B: 220, A: 40}
	labelColor  = color.RGBA{R: 10, G: 60, B: 140, A: 255}
)

const maxCached = 64

// Renderer composites overlays onto page rasters. Decoded overlay images are
// cached by blob digest. It is safe for concurrent use.
type Renderer struct {
	Raster RasterSource

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewRenderer returns a renderer over src.
func NewRenderer(src RasterSource) *Renderer {
	return &Renderer{Raster: src, cache: make(map[string]image.Image)}
}

// Render draws page pageIndex, then the field outlines from fieldSrc (none
// when it is nil), then the overlays on that page in order. Overlays for
// other pages are ignored; overlays whose image cannot be decoded are logged
// and left out.
func (r *Renderer) Render(ctx context.Context, pageIndex int, overlays []overlay.Overlay, fieldSrc FieldOutliner) (*image.RGBA, error) {
	base, err := r.Raster.RasterImage(ctx, pageIndex)
	if err != nil {
		return nil, fmt.Errorf("rasterizing page %d: %w", pageIndex, err)
	}
	b := base.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), base, b.Min, draw.Src)
	raster := geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}

	if fieldSrc != nil {
		outlines, err := fieldSrc.Outlines(ctx, pageIndex, raster)
		if err != nil {
			return nil, fmt.Errorf("outlining fields on page %d: %w", pageIndex, err)
		}
		for _, f := range outlines {
			drawField(dst, toImageRect(f.Rect), f.Name)
		}
	}

	for _, o := range overlays {
		if o.PageIndex != pageIndex {
			continue
		}
		img, err := r.decode(o.Image)
		if err != nil {
			log.Printf("preview: overlay %s: %v", o.ID, err)
			continue
		}
		target := toImageRect(o.Rect().ToPixels(raster))
		if target.Empty() {
			continue
		}
		draw.ApproxBiLinear.Scale(dst, target, img, img.Bounds(), draw.Over, nil)
	}
	return dst, nil
}

// RenderPNG is Render followed by PNG encoding.
func (r *Renderer) RenderPNG(ctx context.Context, pageIndex int, overlays []overlay.Overlay, fieldSrc FieldOutliner) ([]byte, error) {
	img, err := r.Render(ctx, pageIndex, overlays, fieldSrc)
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNG(img)
}

func (r *Renderer) decode(b *overlay.Blob) (image.Image, error) {
	if b.Len() == 0 {
		return nil, imaging.ErrEmpty
	}
	key := b.Digest()

	r.mu.Lock()
	img, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return img, nil
	}

	img, _, err := imaging.Decode(b.Data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if len(r.cache) >= maxCached {
		clear(r.cache)
	}
	r.cache[key] = img
	r.mu.Unlock()
	return img, nil
}

func toImageRect(r geometry.PixelRect) image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	return image.Rect(x0, y0, x0+int(math.Round(r.Width)), y0+int(math.Round(r.Height)))
}

func drawField(dst *image.RGBA, r image.Rectangle, name string) {
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, image.NewUniform(fieldFill), image.Point{}, draw.Over)
	stroke := image.NewUniform(fieldStroke)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
		image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, stroke, image.Point{}, draw.Src)
	}

	face := basicfont.Face7x13
	if name == "" || r.Dy() < face.Height+2 {
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(r.Min.X+3, r.Min.Y+face.Ascent+2),
	}
	d.DrawString(name)
}
