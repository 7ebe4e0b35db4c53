package canvasrenderer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/inkpost/fonts"
	"github.com/ByLCY/inkpost/layout"
)

var body = layout.FontResource{Name: "Body", Src: "embed:goregular", Size: 40}

func TestMeasureEmptyIsZero(t *testing.T) {
	r := NewRenderer(".")
	ext, err := r.Measure("", body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext != (layout.Extent{}) {
		t.Fatalf("expected 0x0, got %+v", ext)
	}
}

func TestMeasureScalesWithSize(t *testing.T) {
	r := NewRenderer(".")
	small, err := r.Measure("hello world", body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if small.Width <= 0 || small.Height <= 0 {
		t.Fatalf("expected positive extent, got %+v", small)
	}
	big := body
	big.Size = 80
	large, err := r.Measure("hello world", big)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if large.Width <= small.Width || large.Height <= small.Height {
		t.Fatalf("80px text should be larger than 40px: %+v vs %+v", large, small)
	}
}

// TestMeasureHeightIsLineHeight 同一字体下各行高度一致，不随内容变化。
func TestMeasureHeightIsLineHeight(t *testing.T) {
	r := NewRenderer(".")
	a, _ := r.Measure("aaa", body)
	b, _ := r.Measure("gjpqy", body)
	if a.Height != b.Height {
		t.Fatalf("line height should not depend on content: %d vs %d", a.Height, b.Height)
	}
}

func TestMeasureRejectsZeroSize(t *testing.T) {
	r := NewRenderer(".")
	if _, err := r.Measure("x", layout.FontResource{Src: "embed:goregular"}); err == nil {
		t.Fatalf("zero font size should fail")
	}
}

// TestUnknownFontFallsBack 无法加载的字体回退到内置字体而不是报错。
func TestUnknownFontFallsBack(t *testing.T) {
	r := NewRenderer(".")
	ext, err := r.Measure("hello", layout.FontResource{Name: "Missing", Src: "embed:does-not-exist", Size: 20})
	if err != nil {
		t.Fatalf("expected fallback font, got error: %v", err)
	}
	if ext.Width <= 0 {
		t.Fatalf("fallback font should measure text, got %+v", ext)
	}
}

func TestInjectedBuiltinFont(t *testing.T) {
	data, err := fonts.Load("goregular")
	if err != nil {
		t.Fatalf("load font: %v", err)
	}
	path := filepath.Join(t.TempDir(), "brand.ttf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	r, err := NewRendererWithOptions(Options{Fonts: map[string]Resource{
		"brand": {Bytes: data},
		"file":  {Path: path},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, src := range []string{"built-in:brand", "builtin:file"} {
		ext, err := r.Measure("brand", layout.FontResource{Name: src, Src: src, Size: 30})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", src, err)
		}
		if ext.Width <= 0 {
			t.Fatalf("%s: expected positive width, got %+v", src, ext)
		}
	}
}

// TestInjectedFontErrors 注入字体读取失败时应返回错误，而不是静默忽略。
func TestInjectedFontErrors(t *testing.T) {
	cases := map[string]Options{
		"missing file": {Fonts: map[string]Resource{"brand": {Path: filepath.Join(t.TempDir(), "none.ttf")}}},
		"empty":        {Fonts: map[string]Resource{"brand": {}}},
		"no name":      {Fonts: map[string]Resource{"": {Bytes: []byte{1}}}},
	}
	for name, opts := range cases {
		if _, err := NewRendererWithOptions(opts); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

func TestCanvasRenderAndExport(t *testing.T) {
	r := NewRenderer(".")
	res, err := layout.Compose(layout.Input{
		Body:          "Simplicity is the soul of efficiency",
		Secondary:     "Austin Freeman",
		Primary:       body,
		SecondaryFont: layout.FontResource{Name: "Author", Src: "embed:goitalic", Size: 30, Style: "italic"},
		ImageWidth:    300,
		Margin:        0.1,
	}, r)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	c := r.NewCanvas(300, 300, layout.Color{R: 255, G: 255, B: 255})
	if w, h := c.Size(); w != 300 || h != 300 {
		t.Fatalf("unexpected size %dx%d", w, h)
	}
	if _, err := layout.Render(c, res, layout.Color{}); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	img := c.Image()
	if img.Bounds().Empty() {
		t.Fatalf("rasterized image should not be empty")
	}

	var buf bytes.Buffer
	if err := c.(*Canvas).WritePDF(&buf, PDFMeta{Title: "quote", Keywords: []string{"a", "b"}}); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestParseFontStyle(t *testing.T) {
	cases := []struct {
		in   string
		want canvas.FontStyle
	}{
		{"", canvas.FontRegular},
		{"bold", canvas.FontBold},
		{"Bold Italic", canvas.FontBold | canvas.FontItalic},
		{"semibold", canvas.FontSemiBold},
		{"italic", canvas.FontRegular | canvas.FontItalic},
	}
	for _, c := range cases {
		if got := parseFontStyle(c.in); got != c.want {
			t.Fatalf("parseFontStyle(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
