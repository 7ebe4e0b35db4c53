package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ByLCY/inkpost/history"
	"github.com/ByLCY/inkpost/layout"
	"github.com/ByLCY/inkpost/renderer"
	canvasrenderer "github.com/ByLCY/inkpost/renderer/canvas"
)

var errReadOnly = errors.New("dataset is read-only")

// MemoryDataset keeps a value for the lifetime of the process.
type MemoryDataset struct {
	mu    sync.Mutex
	value any
	set   bool
}

func (m *MemoryDataset) Load(context.Context) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, ErrMissingInput
	}
	return m.value, nil
}

func (m *MemoryDataset) Save(_ context.Context, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value, m.set = v, true
	return nil
}

// ParamsDataset exposes a fixed configuration value.
type ParamsDataset struct {
	Value any
}

func (p ParamsDataset) Load(context.Context) (any, error) { return p.Value, nil }
func (p ParamsDataset) Save(context.Context, any) error    { return errReadOnly }

// FontDataset exposes a font resource after checking that the typesetter can
// measure with it.
type FontDataset struct {
	Font       layout.FontResource
	Typesetter layout.Typesetter
}

func (f FontDataset) Load(context.Context) (any, error) {
	if f.Typesetter != nil {
		if _, err := f.Typesetter.Measure("a", f.Font); err != nil {
			return nil, fmt.Errorf("font %s: %w", f.Font.Name, err)
		}
	}
	return f.Font, nil
}

func (f FontDataset) Save(context.Context, any) error { return errReadOnly }

// ImageDataset stores an image as a PNG file. The last saved image is kept
// in memory so downstream nodes do not decode it again. When PDFPath is set
// and the saved canvas can export PDF, a vector copy is written there too.
type ImageDataset struct {
	Path    string
	PDFPath string
	Title   string

	mu   sync.Mutex
	last image.Image
}

func (d *ImageDataset) Load(context.Context) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last != nil {
		return d.last, nil
	}
	f, err := os.Open(d.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, d.Path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.Path, err)
	}
	d.last = img
	return img, nil
}

func (d *ImageDataset) Save(_ context.Context, v any) error {
	var img image.Image
	switch t := v.(type) {
	case renderer.Canvas:
		img = t.Image()
	case image.Image:
		img = t
	default:
		return fmt.Errorf("image dataset cannot save %T", v)
	}
	if err := os.MkdirAll(filepath.Dir(d.Path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(d.Path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", d.Path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if pw, ok := v.(pdfWriter); ok && d.PDFPath != "" {
		if err := d.savePDF(pw); err != nil {
			return err
		}
	}
	d.mu.Lock()
	d.last = img
	d.mu.Unlock()
	return nil
}

type pdfWriter interface {
	WritePDF(w io.Writer, meta canvasrenderer.PDFMeta) error
}

func (d *ImageDataset) savePDF(pw pdfWriter) error {
	f, err := os.Create(d.PDFPath)
	if err != nil {
		return err
	}
	if err := pw.WritePDF(f, canvasrenderer.PDFMeta{Title: d.Title}); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", d.PDFPath, err)
	}
	return f.Close()
}

// HistoryDataset loads and saves a history.Store at Path.
type HistoryDataset struct {
	Path string
}

func (h HistoryDataset) Load(context.Context) (any, error) {
	return history.Load(h.Path)
}

func (h HistoryDataset) Save(_ context.Context, v any) error {
	s, ok := v.(*history.Store)
	if !ok {
		return fmt.Errorf("history dataset cannot save %T", v)
	}
	if s.Path() != h.Path {
		s = history.New(h.Path, s.Entries()...)
	}
	return s.Save()
}
