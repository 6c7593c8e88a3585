// Package embed writes committed overlays into the output document.
//
// Each overlay is resolved against its own page, converted from percentage
// space back into page units and drawn independently: a missing page or a
// failed draw skips that overlay only, and overlays already drawn stay drawn.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ziadkadry99/sigplace/internal/geometry"
	"github.com/ziadkadry99/sigplace/internal/overlay"
)

// ErrMissingPage marks an overlay whose page the document does not have.
var ErrMissingPage = errors.New("page not in document")

// Document reports page geometry in page units.
type Document interface {
	PageCount() int
	PageSize(pageIndex int) (geometry.Size, error)
}

// Drawer places an encoded image on a page. rect is in page units with a
// bottom-left origin.
type Drawer interface {
	DrawImage(ctx context.Context, pageIndex int, image []byte, rect geometry.PageRect) error
}

// ToPage converts an overlay's percentage geometry into a page rectangle. It
// is the inverse of fields.Project.
func ToPage(o overlay.Overlay, page geometry.Size) geometry.PageRect {
	h := geometry.PercentToPixel(o.HeightPercent, page.Height)
	return geometry.PageRect{
		X:      geometry.PercentToPixel(o.XPercent, page.Width),
		Y:      page.Height - geometry.PercentToPixel(o.YPercent, page.Height) - h,
		Width:  geometry.PercentToPixel(o.WidthPercent, page.Width),
		Height: h,
	}
}

// Skip records an overlay that was not embedded.
type Skip struct {
	OverlayID string `json:"overlay_id"`
	PageIndex int    `json:"page_index"`
	Err       error  `json:"-"`
}

// Reason is Err as text, for JSON responses.
func (s Skip) Reason() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Report is the outcome of a commit.
type Report struct {
	Embedded []string `json:"embedded"`
	Skipped  []Skip   `json:"skipped"`
}

// OK reports whether every overlay was embedded.
func (r Report) OK() bool { return len(r.Skipped) == 0 }

// Pipeline commits overlays onto a document.
type Pipeline struct {
	Doc    Document
	Drawer Drawer

	// Progress, when set, is called after each overlay with the number
	// processed so far.
	Progress func(done, total int)
}

// Commit draws every overlay on its page in order. Skipped overlays are
// recorded in the report, not returned as errors. The only error is ctx's,
// returned with the partial report when the context ends between overlays.
func (p *Pipeline) Commit(ctx context.Context, overlays []overlay.Overlay) (Report, error) {
	var report Report
	total := len(overlays)
	for i, o := range overlays {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := p.embed(ctx, o); err != nil {
			log.Printf("embed: skipping overlay %s on page %d: %v", o.ID, o.PageIndex, err)
			report.Skipped = append(report.Skipped, Skip{OverlayID: o.ID, PageIndex: o.PageIndex, Err: err})
		} else {
			report.Embedded = append(report.Embedded, o.ID)
		}
		if p.Progress != nil {
			p.Progress(i+1, total)
		}
	}
	return report, nil
}

func (p *Pipeline) embed(ctx context.Context, o overlay.Overlay) error {
	if o.PageIndex < 0 || o.PageIndex >= p.Doc.PageCount() {
		return fmt.Errorf("page %d of %d: %w", o.PageIndex, p.Doc.PageCount(), ErrMissingPage)
	}
	size, err := p.Doc.PageSize(o.PageIndex)
	if err != nil {
		return fmt.Errorf("page %d: %w: %v", o.PageIndex, ErrMissingPage, err)
	}
	if o.Image.Len() == 0 {
		return errors.New("overlay has no image")
	}
	if err := p.Drawer.DrawImage(ctx, o.PageIndex, o.Image.Data, ToPage(o, size)); err != nil {
		return fmt.Errorf("drawing image: %w", err)
	}
	return nil
}
