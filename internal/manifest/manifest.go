// Package manifest describes signature placements in a YAML file and applies
// them to documents without an interactive session.
//
//	placements:
//	  - image: signature.png
//	    field: signer
//	  - image: initials.png
//	    page: 1
//	    x: 70
//	    y: 90
//	    width: 15
//	    height: 5
//
// Geometry is in percentages of the page with a top-left origin, the same
// space interactive sessions store.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/sigplace/internal/embed"
	"github.com/ziadkadry99/sigplace/internal/fields"
	"github.com/ziadkadry99/sigplace/internal/imaging"
	"github.com/ziadkadry99/sigplace/internal/overlay"
)

// ErrFieldNotFound marks a placement whose field the document does not have.
var ErrFieldNotFound = errors.New("field not in document")

// Placement puts one image on a page, either over a named form field or at
// an explicit percentage rectangle.
type Placement struct {
	ID     string   `yaml:"id,omitempty"`
	Image  string   `yaml:"image"`
	Field  string   `yaml:"field,omitempty"`
	Page   int      `yaml:"page,omitempty"`
	X      *float64 `yaml:"x,omitempty"`
	Y      *float64 `yaml:"y,omitempty"`
	Width  *float64 `yaml:"width,omitempty"`
	Height *float64 `yaml:"height,omitempty"`
}

func (p Placement) hasRect() bool {
	return p.X != nil || p.Y != nil || p.Width != nil || p.Height != nil
}

// Manifest is a parsed placement file. Image paths are resolved against the
// directory the manifest was loaded from.
type Manifest struct {
	Placements []Placement `yaml:"placements"`

	dir    string
	images map[string]*overlay.Blob
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	m, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest. Relative image paths resolve against dir.
func Parse(data []byte, dir string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	m.dir = dir
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks every placement.
func (m *Manifest) Validate() error {
	if len(m.Placements) == 0 {
		return errors.New("no placements")
	}
	for i, p := range m.Placements {
		if p.Image == "" {
			return fmt.Errorf("placement %d: image is required", i)
		}
		switch {
		case p.Field != "" && p.hasRect():
			return fmt.Errorf("placement %d: field and x/y/width/height are mutually exclusive", i)
		case p.Field == "" && !p.hasRect():
			return fmt.Errorf("placement %d: either field or x/y/width/height is required", i)
		case p.Field == "":
			if p.X == nil || p.Y == nil || p.Width == nil || p.Height == nil {
				return fmt.Errorf("placement %d: x, y, width and height must be given together", i)
			}
			for _, v := range []float64{*p.X, *p.Y, *p.Width, *p.Height} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("placement %d: non-finite geometry", i)
				}
			}
			if *p.Width < 0 || *p.Height < 0 {
				return fmt.Errorf("placement %d: negative size", i)
			}
			if p.Page < 0 {
				return fmt.Errorf("placement %d: negative page", i)
			}
		}
	}
	return nil
}

// image loads an image once per manifest.
func (m *Manifest) image(path string) (*overlay.Blob, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.dir, path)
	}
	if b, ok := m.images[path]; ok {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	format, _, err := imaging.Sniff(data)
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", path, err)
	}
	b := overlay.NewBlob(data, imaging.ContentType(format))
	if m.images == nil {
		m.images = make(map[string]*overlay.Blob)
	}
	m.images[path] = b
	return b, nil
}

// Document is what a manifest is applied to.
type Document interface {
	embed.Document
	embed.Drawer
	fields.Source
}

// Resolve turns placements into overlays for doc. Placements whose field doc
// lacks are returned as skips; unreadable images are an error since they
// would fail on every document.
func (m *Manifest) Resolve(ctx context.Context, doc Document) ([]overlay.Overlay, []embed.Skip, error) {
	mapper := fields.Mapper{Source: doc, Pages: doc}
	var (
		out   []overlay.Overlay
		skips []embed.Skip
	)
	for i, p := range m.Placements {
		img, err := m.image(p.Image)
		if err != nil {
			return nil, nil, fmt.Errorf("placement %d: %w", i, err)
		}
		id := p.ID
		if id == "" {
			id = fmt.Sprintf("placement-%d", i)
		}

		if p.Field != "" {
			proj, ok, err := mapper.Find(ctx, p.Field)
			if err != nil {
				return nil, nil, fmt.Errorf("placement %d: %w", i, err)
			}
			if !ok {
				skips = append(skips, embed.Skip{OverlayID: id, PageIndex: -1, Err: fmt.Errorf("%q: %w", p.Field, ErrFieldNotFound)})
				continue
			}
			o := proj.Overlay(img)
			o.ID = id
			out = append(out, o)
			continue
		}

		out = append(out, overlay.Overlay{
			ID:            id,
			Image:         img,
			XPercent:      *p.X,
			YPercent:      *p.Y,
			WidthPercent:  *p.Width,
			HeightPercent: *p.Height,
			PageIndex:     p.Page,
		})
	}
	return out, skips, nil
}

// Apply resolves the manifest against doc and commits every overlay. The
// report lists unresolved fields as skips alongside the pipeline's own.
func (m *Manifest) Apply(ctx context.Context, doc Document, progress func(done, total int)) (embed.Report, error) {
	overlays, unresolved, err := m.Resolve(ctx, doc)
	if err != nil {
		return embed.Report{}, err
	}
	p := embed.Pipeline{Doc: doc, Drawer: doc, Progress: progress}
	report, err := p.Commit(ctx, overlays)
	report.Skipped = append(report.Skipped, unresolved...)
	return report, err
}
