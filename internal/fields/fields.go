// Package fields projects form-field widget rectangles from page space into
// percentage space so they line up with overlays on any raster size.
package fields

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/sigplace/internal/geometry"
	"github.com/ziadkadry99/sigplace/internal/overlay"
)

// Field is a form-field widget as reported by the document. Rect is in page
// units with a bottom-left origin.
type Field struct {
	Name      string            `json:"name"`
	Type      string            `json:"type,omitempty"`
	PageIndex int               `json:"page_index"`
	Rect      geometry.PageRect `json:"rect"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// IsSignature reports whether the widget belongs to a signature field.
func (f Field) IsSignature() bool { return f.Type == "Sig" }

// Projection is a field rectangle in percentage space, top-left origin. It is
// derived on demand and never stored.
type Projection struct {
	Name          string  `json:"name"`
	Type          string  `json:"type,omitempty"`
	PageIndex     int     `json:"page_index"`
	XPercent      float64 `json:"x_percent"`
	YPercent      float64 `json:"y_percent"`
	WidthPercent  float64 `json:"width_percent"`
	HeightPercent float64 `json:"height_percent"`
}

// Rect returns the projection's geometry.
func (p Projection) Rect() geometry.PercentRect {
	return geometry.PercentRect{X: p.XPercent, Y: p.YPercent, Width: p.WidthPercent, Height: p.HeightPercent}
}

// Overlay seeds an overlay covering the field, ready for overlay.Store.Add.
func (p Projection) Overlay(img *overlay.Blob) overlay.Overlay {
	return overlay.Overlay{
		Image:         img,
		XPercent:      p.XPercent,
		YPercent:      p.YPercent,
		WidthPercent:  p.WidthPercent,
		HeightPercent: p.HeightPercent,
		PageIndex:     p.PageIndex,
	}
}

// Project converts a page-space rectangle into percentages of page, flipping
// the vertical origin. A zero page axis yields 0 on that axis.
func Project(rect geometry.PageRect, page geometry.Size) geometry.PercentRect {
	rect = rect.Normalize()
	adjustedY := page.Height - rect.Y - rect.Height
	return geometry.PercentRect{
		X:      geometry.PixelToPercent(rect.X, page.Width),
		Y:      geometry.PixelToPercent(adjustedY, page.Height),
		Width:  geometry.PixelToPercent(rect.Width, page.Width),
		Height: geometry.PixelToPercent(rect.Height, page.Height),
	}
}

// Source lists every widget in a document.
type Source interface {
	ListFields(ctx context.Context) ([]Field, error)
}

// PageSizer reports page dimensions in page units.
type PageSizer interface {
	PageSize(pageIndex int) (geometry.Size, error)
}

// Mapper derives field projections for one page at a time.
type Mapper struct {
	Source Source
	Pages  PageSizer
}

// ForPage returns the projections of the fields on pageIndex, in the order the
// source lists them. Each call re-reads the source and the page size.
func (m Mapper) ForPage(ctx context.Context, pageIndex int) ([]Projection, error) {
	onPage, size, err := m.fieldsOn(ctx, pageIndex)
	if err != nil || len(onPage) == 0 {
		return nil, err
	}
	out := make([]Projection, 0, len(onPage))
	for _, f := range onPage {
		out = append(out, project(f, size))
	}
	return out, nil
}

// Outline is a field widget projected onto a page raster, in pixels with a
// top-left origin.
type Outline struct {
	Name string
	Type string
	Rect geometry.PixelRect
}

// Outlines projects the fields on pageIndex onto a raster of the given pixel
// size. The scale is derived from this page's own size on every call.
func (m Mapper) Outlines(ctx context.Context, pageIndex int, raster geometry.Size) ([]Outline, error) {
	onPage, size, err := m.fieldsOn(ctx, pageIndex)
	if err != nil || len(onPage) == 0 {
		return nil, err
	}
	scale := geometry.PageToRasterScale(size, raster)
	out := make([]Outline, 0, len(onPage))
	for _, f := range onPage {
		out = append(out, Outline{
			Name: f.Name,
			Type: f.Type,
			Rect: scale.Apply(f.Rect.Normalize(), size.Height),
		})
	}
	return out, nil
}

// fieldsOn returns the fields on pageIndex and, when there are any, the
// page's size.
func (m Mapper) fieldsOn(ctx context.Context, pageIndex int) ([]Field, geometry.Size, error) {
	all, err := m.Source.ListFields(ctx)
	if err != nil {
		return nil, geometry.Size{}, fmt.Errorf("listing fields: %w", err)
	}
	var onPage []Field
	for _, f := range all {
		if f.PageIndex == pageIndex {
			onPage = append(onPage, f)
		}
	}
	if len(onPage) == 0 {
		return nil, geometry.Size{}, nil
	}
	size, err := m.Pages.PageSize(pageIndex)
	if err != nil {
		return nil, geometry.Size{}, fmt.Errorf("sizing page %d: %w", pageIndex, err)
	}
	return onPage, size, nil
}

// Find returns the projection of the field named name, on any page. When
// several widgets share the name, the first signature widget wins over
// earlier widgets of other types.
func (m Mapper) Find(ctx context.Context, name string) (Projection, bool, error) {
	all, err := m.Source.ListFields(ctx)
	if err != nil {
		return Projection{}, false, fmt.Errorf("listing fields: %w", err)
	}
	match, found := Field{}, false
	for _, f := range all {
		if f.Name != name {
			continue
		}
		if !found || (!match.IsSignature() && f.IsSignature()) {
			match, found = f, true
		}
		if match.IsSignature() {
			break
		}
	}
	if !found {
		return Projection{}, false, nil
	}
	size, err := m.Pages.PageSize(match.PageIndex)
	if err != nil {
		return Projection{}, false, fmt.Errorf("sizing page %d: %w", match.PageIndex, err)
	}
	return project(match, size), true, nil
}

func project(f Field, size geometry.Size) Projection {
	r := Project(f.Rect, size)
	return Projection{
		Name:          f.Name,
		Type:          f.Type,
		PageIndex:     f.PageIndex,
		XPercent:      r.X,
		YPercent:      r.Y,
		WidthPercent:  r.Width,
		HeightPercent: r.Height,
	}
}

// Static is a fixed field list, used when fields come from a manifest or a
// test instead of a document.
type Static []Field

// ListFields implements Source.
func (s Static) ListFields(context.Context) ([]Field, error) { return s, nil }
