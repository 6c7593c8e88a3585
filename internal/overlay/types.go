package overlay

import (
	"errors"

	"github.com/ziadkadry99/sigplace/internal/geometry"
)

var (
	// ErrNotFound is returned for an index or ID that does not address an overlay.
	ErrNotFound = errors.New("overlay not found")
	// ErrPageOutOfRange is returned when an overlay targets a page the document does not have.
	ErrPageOutOfRange = errors.New("page index out of range")
	// ErrInvalidGeometry is returned for negative or non-finite sizes.
	ErrInvalidGeometry = errors.New("invalid overlay geometry")
)

// Overlay is a signature image placed on a page. All geometry is in
// percentage space relative to the page, top-left origin.
type Overlay struct {
	ID            string  `json:"id"`
	Image         *Blob   `json:"-"`
	XPercent      float64 `json:"x_percent"`
	YPercent      float64 `json:"y_percent"`
	WidthPercent  float64 `json:"width_percent"`
	HeightPercent float64 `json:"height_percent"`
	PageIndex     int     `json:"page_index"`
}

// Rect returns the overlay's geometry as a percentage rectangle.
func (o Overlay) Rect() geometry.PercentRect {
	return geometry.PercentRect{
		X:      o.XPercent,
		Y:      o.YPercent,
		Width:  o.WidthPercent,
		Height: o.HeightPercent,
	}
}

// Patch is a partial geometry update. Nil fields are left unchanged. Values
// are always percentages; raster pixels never reach the store.
type Patch struct {
	XPercent      *float64
	YPercent      *float64
	WidthPercent  *float64
	HeightPercent *float64
}

// Position returns a patch that moves an overlay.
func Position(x, y float64) Patch {
	return Patch{XPercent: &x, YPercent: &y}
}

// Dimensions returns a patch that resizes an overlay.
func Dimensions(w, h float64) Patch {
	return Patch{WidthPercent: &w, HeightPercent: &h}
}

// FromRect returns a patch that replaces all four values.
func FromRect(r geometry.PercentRect) Patch {
	return Patch{XPercent: &r.X, YPercent: &r.Y, WidthPercent: &r.Width, HeightPercent: &r.Height}
}
