package geometry

// PercentRect is a rectangle in percentage space, top-left origin.
type PercentRect struct {
	X      float64 `json:"x_percent" yaml:"x"`
	Y      float64 `json:"y_percent" yaml:"y"`
	Width  float64 `json:"width_percent" yaml:"width"`
	Height float64 `json:"height_percent" yaml:"height"`
}

// PixelRect is a rectangle in raster space, top-left origin.
type PixelRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Origin returns the top-left corner.
func (r PixelRect) Origin() Point {
	return Point{X: r.X, Y: r.Y}
}

// Size returns the width and height.
func (r PixelRect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Contains reports whether p lies inside r, edges included.
func (r PixelRect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// PageRect is a rectangle in page space, bottom-left origin.
type PageRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromCorners builds a PageRect from a PDF-style [llx lly urx ury] box.
// Corners given in the wrong order are swapped.
func RectFromCorners(llx, lly, urx, ury float64) PageRect {
	if urx < llx {
		llx, urx = urx, llx
	}
	if ury < lly {
		lly, ury = ury, lly
	}
	return PageRect{X: llx, Y: lly, Width: urx - llx, Height: ury - lly}
}

// Normalize returns r with non-negative width and height.
func (r PageRect) Normalize() PageRect {
	return RectFromCorners(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// ToPixels projects r into raster space for a container of the given size.
func (r PercentRect) ToPixels(container Size) PixelRect {
	return PixelRect{
		X:      PercentToPixel(r.X, container.Width),
		Y:      PercentToPixel(r.Y, container.Height),
		Width:  PercentToPixel(r.Width, container.Width),
		Height: PercentToPixel(r.Height, container.Height),
	}
}

// ToPercent converts r into percentage space for a container of the given
// size. A zero container axis maps to 0 on that axis.
func (r PixelRect) ToPercent(container Size) PercentRect {
	return PercentRect{
		X:      PixelToPercent(r.X, container.Width),
		Y:      PixelToPercent(r.Y, container.Height),
		Width:  PixelToPercent(r.Width, container.Width),
		Height: PixelToPercent(r.Height, container.Height),
	}
}

// Apply projects a page-space rectangle into raster space, flipping the
// vertical origin. pageHeight is in page units.
func (s Scale) Apply(r PageRect, pageHeight float64) PixelRect {
	top := pageHeight - r.Y - r.Height
	return PixelRect{
		X:      r.X * s.X,
		Y:      top * s.Y,
		Width:  r.Width * s.X,
		Height: r.Height * s.Y,
	}
}
