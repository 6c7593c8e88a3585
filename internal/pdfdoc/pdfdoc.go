// Package pdfdoc adapts pdfcpu to the document interfaces used by the
// signing pipeline: page geometry, widget listing and image stamping.
//
// A Document holds the PDF in memory. Every DrawImage stamps one image and
// replaces the held bytes only on success, so a failed draw leaves earlier
// stamps intact.
package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/ziadkadry99/sigplace/internal/fields"
	"github.com/ziadkadry99/sigplace/internal/geometry"
	"github.com/ziadkadry99/sigplace/internal/imaging"
)

// ErrNoPage is returned for a page index outside the document.
var ErrNoPage = errors.New("no such page")

// DefaultDensity is the number of image pixels per point used when a
// signature is resampled for stamping.
const DefaultDensity = 3.0

var disableConfigDir sync.Once

func configuration() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Document is an in-memory PDF. It is not safe for concurrent use.
type Document struct {
	data    []byte
	conf    *model.Configuration
	ctx     *model.Context
	dims    []types.Dim
	density float64
}

// Option configures a Document.
type Option func(*Document)

// WithDensity sets the stamping resolution in pixels per point.
func WithDensity(pxPerPoint float64) Option {
	return func(d *Document) {
		if pxPerPoint > 0 {
			d.density = pxPerPoint
		}
	}
}

// Open parses data as a PDF.
func Open(data []byte, opts ...Option) (*Document, error) {
	d := &Document{
		data:    data,
		conf:    configuration(),
		density: DefaultDensity,
	}
	for _, opt := range opts {
		opt(d)
	}

	ctx, err := d.parse(data)
	if err != nil {
		return nil, err
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("reading page sizes: %w", err)
	}
	d.ctx = ctx
	d.dims = dims
	return d, nil
}

func (d *Document) parse(data []byte) (*model.Context, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), d.conf)
	if err != nil {
		return nil, fmt.Errorf("reading pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}
	return ctx, nil
}

// OpenFile reads and parses the PDF at path.
func OpenFile(path string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Open(data, opts...)
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.ctx.PageCount }

// PageSize returns the size of the page at pageIndex (0-based) in points.
func (d *Document) PageSize(pageIndex int) (geometry.Size, error) {
	if pageIndex < 0 || pageIndex >= len(d.dims) {
		return geometry.Size{}, fmt.Errorf("page %d of %d: %w", pageIndex, len(d.dims), ErrNoPage)
	}
	dim := d.dims[pageIndex]
	return geometry.Size{Width: dim.Width, Height: dim.Height}, nil
}

// Bytes returns the current PDF, including every successful stamp.
func (d *Document) Bytes() []byte { return d.data }

// WriteFile writes the current PDF to path.
func (d *Document) WriteFile(path string) error {
	if err := os.WriteFile(path, d.data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ListFields returns every widget annotation on every page, in page order.
// Names are fully qualified through the field hierarchy ("parent.child").
func (d *Document) ListFields(ctx context.Context) ([]fields.Field, error) {
	var out []fields.Field
	for pageNr := 1; pageNr <= d.ctx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageDict, _, _, err := d.ctx.PageDict(pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", pageNr, err)
		}
		if pageDict == nil {
			continue
		}
		annotsObj, found := pageDict.Find("Annots")
		if !found {
			continue
		}
		annots, err := d.ctx.DereferenceArray(annotsObj)
		if err != nil {
			return nil, fmt.Errorf("reading annotations on page %d: %w", pageNr, err)
		}
		for _, obj := range annots {
			annot, err := d.ctx.DereferenceDict(obj)
			if err != nil || annot == nil {
				continue
			}
			if st := annot.NameEntry("Subtype"); st == nil || *st != "Widget" {
				continue
			}
			f, ok := d.widgetField(annot, pageNr-1)
			if !ok {
				continue
			}
			if f.Name == "" {
				f.Name = fmt.Sprintf("widget_%d_%d", pageNr, len(out))
			}
			out = append(out, f)
		}
	}
	return out, nil
}

func (d *Document) widgetField(widget types.Dict, pageIndex int) (fields.Field, bool) {
	rectObj, found := widget.Find("Rect")
	if !found {
		return fields.Field{}, false
	}
	arr, err := d.ctx.DereferenceArray(rectObj)
	if err != nil || len(arr) != 4 {
		return fields.Field{}, false
	}
	var c [4]float64
	for i, o := range arr {
		if c[i], err = d.ctx.DereferenceNumber(o); err != nil {
			return fields.Field{}, false
		}
	}

	f := fields.Field{
		PageIndex: pageIndex,
		Rect:      geometry.RectFromCorners(c[0], c[1], c[2], c[3]),
		Metadata:  map[string]string{},
	}

	// Walk up the field hierarchy; the widget and its ancestors may each
	// contribute a partial name, and FT and Ff are inheritable.
	var names []string
	seen := 0
	for dict := widget; dict != nil && seen < 32; seen++ {
		if o, ok := dict.Find("T"); ok {
			if s, err := d.ctx.DereferenceStringOrHexLiteral(o, model.V10, nil); err == nil && s != "" {
				names = append(names, s)
			}
		}
		if f.Type == "" {
			if o, ok := dict.Find("FT"); ok {
				if n, err := d.ctx.DereferenceName(o, model.V10, nil); err == nil {
					f.Type = n.Value()
				}
			}
		}
		if _, ok := f.Metadata["flags"]; !ok {
			if o, ok := dict.Find("Ff"); ok {
				if i, err := d.ctx.DereferenceInteger(o); err == nil && i != nil {
					f.Metadata["flags"] = strconv.Itoa(i.Value())
				}
			}
		}
		parent, ok := dict.Find("Parent")
		if !ok {
			break
		}
		if dict, err = d.ctx.DereferenceDict(parent); err != nil {
			break
		}
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	f.Name = strings.Join(names, ".")
	if len(f.Metadata) == 0 {
		f.Metadata = nil
	}
	return f, true
}

// DrawImage stamps img onto the page at pageIndex so that it fills rect,
// given in points with a bottom-left origin. img may be any format the
// imaging package decodes; it is resampled to rect's aspect ratio first.
func (d *Document) DrawImage(ctx context.Context, pageIndex int, img []byte, rect geometry.PageRect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pageIndex < 0 || pageIndex >= d.PageCount() {
		return fmt.Errorf("page %d of %d: %w", pageIndex, d.PageCount(), ErrNoPage)
	}
	rect = rect.Normalize()
	if rect.Width <= 0 || rect.Height <= 0 {
		return fmt.Errorf("empty target rectangle %vx%v", rect.Width, rect.Height)
	}

	w, h := imaging.TargetPixels(rect.Width, rect.Height, d.density)
	png, err := imaging.Fit(img, w, h)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "sigplace-*.png")
	if err != nil {
		return fmt.Errorf("creating temp image: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing temp image: %w", err)
	}

	// Absolute scale maps one image pixel to scale points; the image already
	// has rect's aspect ratio, so scaling the width fits the height too.
	scale := rect.Width / float64(w)
	desc := fmt.Sprintf("pos:bl, off:0 0, scale:%s abs, rot:0, op:1", strconv.FormatFloat(scale, 'f', -1, 64))
	wm, err := pdfcpu.ParseImageWatermarkDetails(tmp.Name(), desc, true, types.POINTS)
	if err != nil {
		return fmt.Errorf("preparing stamp: %w", err)
	}
	wm.Dx = rect.X
	wm.Dy = rect.Y

	// Stamp a fresh, unvalidated parse of the current bytes. Form widgets
	// in the wild often miss entries strict validation insists on, and a
	// failed stamp must not leave d.ctx half modified.
	work, err := d.parse(d.data)
	if err != nil {
		return err
	}
	if err := pdfcpu.AddWatermarks(work, types.IntSet{pageIndex + 1: true}, wm); err != nil {
		return fmt.Errorf("stamping page %d: %w", pageIndex+1, err)
	}
	var out bytes.Buffer
	if err := api.WriteContext(work, &out); err != nil {
		return fmt.Errorf("writing stamped page %d: %w", pageIndex+1, err)
	}
	d.data = out.Bytes()
	d.ctx = work
	return nil
}
