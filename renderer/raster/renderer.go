// Package raster draws layout results straight onto an *image.RGBA using
// golang.org/x/image/font. Extents are whole pixels, which keeps the centering
// arithmetic of the layout package exact.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/inkpost/layout"
	"github.com/ByLCY/inkpost/logx"
	"github.com/ByLCY/inkpost/renderer"
)

// Renderer measures and draws text with OpenType faces.
// Faces are not safe for concurrent use, so every access goes through mu.
type Renderer struct {
	baseDir string

	mu     sync.Mutex
	parsed map[string]*opentype.Font
	faces  map[faceKey]font.Face
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ renderer.Canvas   = (*Canvas)(nil)
)

type faceKey struct {
	src  string
	size int
}

// NewRenderer creates a raster renderer rooted at baseDir for resolving font paths.
func NewRenderer(baseDir string) *Renderer {
	return &Renderer{
		baseDir: baseDir,
		parsed:  map[string]*opentype.Font{},
		faces:   map[faceKey]font.Face{},
	}
}

// Measure implements layout.Typesetter.
//
// The box is anchored at the ascender line the way the drawing code places
// text: height runs from the top of the line to the lowest inked pixel.
// Blank text that is not empty still occupies one full line.
func (r *Renderer) Measure(text string, f layout.FontResource) (layout.Extent, error) {
	if text == "" {
		return layout.Extent{}, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	face, err := r.faceLocked(f)
	if err != nil {
		return layout.Extent{}, err
	}
	bounds, advance := font.BoundString(face, text)
	m := face.Metrics()
	ext := layout.Extent{Width: advance.Ceil()}
	if bounds.Empty() {
		ext.Height = (m.Ascent + m.Descent).Ceil()
		return ext, nil
	}
	bottom := bounds.Max.Y
	if bottom < 0 {
		bottom = 0
	}
	ext.Height = (m.Ascent + bottom).Ceil()
	return ext, nil
}

// NewCanvas creates a canvas filled with the background color.
func (r *Renderer) NewCanvas(width, height int, background layout.Color) renderer.Canvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(toRGBA(background)), image.Point{}, draw.Src)
	return &Canvas{r: r, img: img}
}

func (r *Renderer) faceLocked(f layout.FontResource) (font.Face, error) {
	if f.Size <= 0 {
		return nil, fmt.Errorf("字体 %s 的字号无效: %d", f.Name, f.Size)
	}
	key := faceKey{src: f.Src, size: f.Size}
	if face, ok := r.faces[key]; ok {
		return face, nil
	}
	parsed, ok := r.parsed[f.Src]
	if !ok {
		data, err := renderer.LoadFontBytes(r.baseDir, f)
		if err != nil {
			return nil, err
		}
		parsed, err = opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("解析字体 %s 失败: %w", f.Src, err)
		}
		r.parsed[f.Src] = parsed
		logx.L().Debug("font loaded", "src", f.Src)
	}
	// DPI 72: one point per pixel, so Size is the pixel em size.
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(f.Size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("创建字体 %s 失败: %w", f.Src, err)
	}
	r.faces[key] = face
	return face, nil
}

// Canvas is an in-memory RGBA bitmap.
type Canvas struct {
	r   *Renderer
	img *image.RGBA
}

// Size implements layout.Surface.
func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// DrawText draws text with its ascender line at y. Pixels outside the bitmap are clipped.
func (c *Canvas) DrawText(x, y int, text string, f layout.FontResource, col layout.Color) error {
	if text == "" {
		return nil
	}
	c.r.mu.Lock()
	defer c.r.mu.Unlock()

	face, err := c.r.faceLocked(f)
	if err != nil {
		return err
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(toRGBA(col)),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + face.Metrics().Ascent},
	}
	d.DrawString(text)
	return nil
}

// Image implements renderer.Canvas.
func (c *Canvas) Image() image.Image { return c.img }

func toRGBA(c layout.Color) color.RGBA {
	return color.RGBA{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B), A: 0xff}
}
