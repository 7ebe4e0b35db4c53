package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/inkpost/history"
	"github.com/ByLCY/inkpost/layout"
	canvasrenderer "github.com/ByLCY/inkpost/renderer/canvas"
)

func TestRunPassesValues(t *testing.T) {
	p := New(
		&Node{
			Name:    "double",
			Inputs:  map[string]string{"n": "number"},
			Outputs: map[string]string{"out": "doubled"},
			Func: func(_ context.Context, in Values) (Values, error) {
				return Values{"out": in["n"].(int) * 2}, nil
			},
		},
		&Node{
			Name:    "seed",
			Outputs: map[string]string{"out": "number"},
			Func: func(context.Context, Values) (Values, error) {
				return Values{"out": 21}, nil
			},
		},
	)
	c := NewCatalog()
	require.NoError(t, Run(context.Background(), p, c))
	v, err := c.Load(context.Background(), "doubled")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRunMissingInput(t *testing.T) {
	p := New(node("a", []string{"absent"}, []string{"x"}))
	err := Run(context.Background(), p, NewCatalog())
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestRunChecksInputsBeforeAnyNode(t *testing.T) {
	var ran atomic.Int32
	p := New(
		&Node{
			Name:    "expensive",
			Outputs: map[string]string{"out": "text"},
			Func: func(context.Context, Values) (Values, error) {
				ran.Add(1)
				return Values{"out": "x"}, nil
			},
		},
		&Node{
			Name:   "layout",
			Inputs: map[string]string{"text": "text", "font": "primary_font"},
			Func:   nop,
		},
	)
	err := Run(context.Background(), p, NewCatalog())
	assert.ErrorIs(t, err, ErrMissingInput)
	assert.Contains(t, err.Error(), "primary_font")
	assert.Zero(t, ran.Load(), "no node should run when an input is unbound")
}

func TestRunMissingResult(t *testing.T) {
	p := New(&Node{Name: "a", Outputs: map[string]string{"x": "x"}, Func: nop})
	err := Run(context.Background(), p, NewCatalog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"x"`)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, New(node("a", nil, nil)), NewCatalog())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerRunsAllPartsAndJoinsErrors(t *testing.T) {
	var ran atomic.Int32
	boom := errors.New("boom")
	mk := func(ns string, fail bool) *Pipeline {
		return New(&Node{
			Name:    "work",
			Outputs: map[string]string{"out": "out"},
			Func: func(context.Context, Values) (Values, error) {
				ran.Add(1)
				if fail {
					return nil, boom
				}
				return Values{"out": ns}, nil
			},
		}).Namespace(ns)
	}
	p := mk("quote.love", false).Add(mk("quote.life", true), mk("fact.science", false))

	r := &Runner{Catalog: NewCatalog(), Parallel: 2}
	err := r.RunAll(context.Background(), p)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), ran.Load())

	v, err := r.Catalog.Load(context.Background(), "fact.science.out")
	require.NoError(t, err)
	assert.Equal(t, "fact.science", v)
}

func TestMemoryDataset(t *testing.T) {
	var m MemoryDataset
	_, err := m.Load(context.Background())
	assert.ErrorIs(t, err, ErrMissingInput)
	require.NoError(t, m.Save(context.Background(), "v"))
	v, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestParamsDatasetIsReadOnly(t *testing.T) {
	p := ParamsDataset{Value: 3}
	v, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Error(t, p.Save(context.Background(), 4))
}

func TestImageDatasetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quote.love", "final.png")
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})

	d := &ImageDataset{Path: path}
	require.NoError(t, d.Save(context.Background(), img))
	assert.FileExists(t, path)

	fresh := &ImageDataset{Path: path}
	v, err := fresh.Load(context.Background())
	require.NoError(t, err)
	got := v.(image.Image)
	assert.Equal(t, 4, got.Bounds().Dx())
	r, _, _, _ := got.At(1, 1).RGBA()
	assert.Equal(t, uint32(200*0x101), r)

	assert.Error(t, d.Save(context.Background(), "not an image"))
	_, err = (&ImageDataset{Path: filepath.Join(t.TempDir(), "none.png")}).Load(context.Background())
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestImageDatasetWritesPDFForVectorCanvas(t *testing.T) {
	dir := t.TempDir()
	r := canvasrenderer.NewRenderer("")
	c := r.NewCanvas(40, 30, layout.Color{R: 255, G: 255, B: 255})
	font := layout.FontResource{Name: "Body", Src: "embed:goregular", Size: 8}
	require.NoError(t, c.DrawText(2, 2, "hi", font, layout.Color{}))

	d := &ImageDataset{Path: filepath.Join(dir, "final.png"), PDFPath: filepath.Join(dir, "final.pdf"), Title: "quote.love"}
	require.NoError(t, d.Save(context.Background(), c))
	assert.FileExists(t, d.Path)
	data, err := os.ReadFile(d.PDFPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	// plain images have no vector form
	noPDF := &ImageDataset{Path: filepath.Join(dir, "raw.png"), PDFPath: filepath.Join(dir, "raw.pdf")}
	require.NoError(t, noPDF.Save(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2))))
	assert.NoFileExists(t, noPDF.PDFPath)
}

func TestHistoryDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "past_texts.csv")
	d := HistoryDataset{Path: path}
	v, err := d.Load(context.Background())
	require.NoError(t, err)
	s := v.(*history.Store)
	s.Append(history.Entry{Text: "hello", Author: "me"})
	require.NoError(t, d.Save(context.Background(), s))

	other := filepath.Join(t.TempDir(), "copy.csv")
	require.NoError(t, HistoryDataset{Path: other}.Save(context.Background(), s))
	copied, err := history.Load(other)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, copied.Texts())

	assert.Error(t, d.Save(context.Background(), 42))
}

func TestCatalogSaveCreatesMemoryDataset(t *testing.T) {
	c := NewCatalog()
	assert.False(t, c.Has("x"))
	require.NoError(t, c.Save(context.Background(), "x", 1))
	assert.True(t, c.Has("x"))
	assert.Equal(t, []string{"x"}, c.Names())
	_, err := c.Load(context.Background(), "y")
	assert.ErrorIs(t, err, ErrMissingInput)
}
