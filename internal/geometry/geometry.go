// Package geometry converts between the three coordinate systems used for
// signature placement:
//
//   - page space: PDF points, origin at the bottom-left corner;
//   - raster space: pixels of a rendered page preview, origin at the top-left;
//   - percentage space: 0-100 on each axis, origin at the top-left.
//
// All persisted overlay geometry lives in percentage space. Raster space is
// always a projection computed from the current container size.
package geometry

// Point is a position in raster space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Size is a width/height pair. Its unit depends on context: points for page
// sizes, pixels for container and raster sizes.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether either axis is zero.
func (s Size) IsZero() bool {
	return s.Width == 0 || s.Height == 0
}

// PercentToPixel converts a percentage of dimensionPx into pixels.
func PercentToPixel(percent, dimensionPx float64) float64 {
	return percent / 100 * dimensionPx
}

// PixelToPercent converts a pixel offset into a percentage of dimensionPx.
// It returns 0 when dimensionPx is 0, which happens before the container has
// been measured.
func PixelToPercent(pixel, dimensionPx float64) float64 {
	if dimensionPx == 0 {
		return 0
	}
	return pixel / dimensionPx * 100
}

// Scale is a per-axis factor from page units to raster pixels.
type Scale struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PageToRasterScale returns raster/page for each axis. Pages may differ in
// size, so the result must not be reused for another page. A zero page axis
// yields a zero factor on that axis.
func PageToRasterScale(page, raster Size) Scale {
	var s Scale
	if page.Width != 0 {
		s.X = raster.Width / page.Width
	}
	if page.Height != 0 {
		s.Y = raster.Height / page.Height
	}
	return s
}
