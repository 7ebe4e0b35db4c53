package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/inkpost/fonts"
	"github.com/ByLCY/inkpost/layout"
	"github.com/ByLCY/inkpost/logx"
	"github.com/ByLCY/inkpost/renderer"
)

// Renderer draws layout results via github.com/tdewolff/canvas.
//
// 画布单位为毫米，这里约定 1mm 对应输出位图的 1 像素，因此布局层的像素坐标可以直接使用；
// 与字体系统交互时再把像素字号换算成 pt。
type Renderer struct {
	baseDir string

	// injected resources
	fontBlobs map[string][]byte // by unique name

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily

	// 同一字体族在多个命名空间间共享，文本整形串行进行。
	shapeMu sync.Mutex
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
	_ renderer.Canvas   = (*Canvas)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Fonts   map[string]Resource // extra fonts accessible via built-in:<name>
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// PDFMeta 写入 PDF 文档信息。
type PDFMeta struct {
	Title    string
	Subject  string
	Author   string
	Keywords []string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer {
	return &Renderer{
		baseDir:      baseDir,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*fontFamilyEntry{},
	}
}

// NewRendererWithOptions creates a renderer with injected fonts. Fonts given
// by path are read up front; an unreadable file is an error.
func NewRendererWithOptions(opts Options) (*Renderer, error) {
	r := NewRenderer(opts.BaseDir)
	for name, res := range opts.Fonts {
		if name == "" {
			return nil, fmt.Errorf("注入字体缺少名称")
		}
		data := res.Bytes
		if len(data) == 0 {
			if res.Path == "" {
				return nil, fmt.Errorf("注入字体 %s 缺少数据或路径", name)
			}
			var err error
			if data, err = os.ReadFile(res.Path); err != nil {
				return nil, fmt.Errorf("读取注入字体 %s 失败: %w", name, err)
			}
		}
		r.fontBlobs[name] = data
	}
	return r, nil
}

// Measure 实现 layout.Typesetter：宽度为排版宽度，高度为字体行高，均向上取整为像素。
func (r *Renderer) Measure(text string, font layout.FontResource) (layout.Extent, error) {
	if text == "" {
		return layout.Extent{}, nil
	}
	face, err := r.fontFace(font, layout.Color{})
	if err != nil {
		return layout.Extent{}, err
	}
	r.shapeMu.Lock()
	defer r.shapeMu.Unlock()
	width := face.TextWidth(text)
	height := face.Metrics().LineHeight
	return layout.Extent{
		Width:  int(math.Ceil(width)),
		Height: int(math.Ceil(height)),
	}, nil
}

// NewCanvas 创建填充了背景色的画布。
func (r *Renderer) NewCanvas(width, height int, background layout.Color) renderer.Canvas {
	c := canvas.New(float64(width), float64(height))
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
	ctx.SetFillColor(colorFromLayout(background))
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.DrawPath(0, 0, canvas.Rectangle(float64(width), float64(height)))
	return &Canvas{r: r, c: c, ctx: ctx, width: width, height: height}
}

// Canvas 是矢量画布，可光栅化为位图或导出 PDF。
type Canvas struct {
	r      *Renderer
	c      *canvas.Canvas
	ctx    *canvas.Context
	width  int
	height int
}

// Size implements layout.Surface.
func (c *Canvas) Size() (int, int) { return c.width, c.height }

// DrawText 以 (x, y) 为行顶部左端绘制一行文本，基线位于行顶部加上升部。
func (c *Canvas) DrawText(x, y int, text string, font layout.FontResource, col layout.Color) error {
	if text == "" {
		return nil
	}
	face, err := c.r.fontFace(font, col)
	if err != nil {
		return err
	}
	c.r.shapeMu.Lock()
	defer c.r.shapeMu.Unlock()
	line := canvas.NewTextLine(face, text, canvas.Left)
	baseline := float64(y) + face.Metrics().Ascent
	c.ctx.DrawText(float64(x), baseline, line)
	return nil
}

// Image 按 1 像素/毫米光栅化画布。
func (c *Canvas) Image() image.Image {
	return rasterizer.Draw(c.c, canvas.DPMM(1.0), canvas.DefaultColorSpace)
}

// WritePDF 将画布写为单页 PDF。
func (c *Canvas) WritePDF(w io.Writer, meta PDFMeta) error {
	writer := pdf.New(w, float64(c.width), float64(c.height), nil)
	applyMeta(writer, meta)
	c.c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return nil
}

func applyMeta(writer *pdf.PDF, meta PDFMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, "inkpost")
}

func (r *Renderer) fontFace(font layout.FontResource, col layout.Color) (*canvas.FontFace, error) {
	if font.Size <= 0 {
		return nil, fmt.Errorf("字体 %s 的字号无效: %d", font.Name, font.Size)
	}
	family, style, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	// 字号以像素（= mm）给出，字体系统需要 pt。
	return family.Face(layout.PxToPt(float64(font.Size)), colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(font.Style)
	familyName := font.Name
	if familyName == "" {
		familyName = "Body"
	}
	family := canvas.NewFontFamily(familyName)

	if err := r.loadFontIntoFamily(family, font, style); err != nil {
		fallback, fbStyle, fbErr := r.fallback()
		if fbErr != nil {
			return nil, canvas.FontRegular, err
		}
		logx.L().Warn("font load failed, using fallback", "font", font.Name, "src", font.Src, "err", err)
		r.fontFamilies[key] = &fontFamilyEntry{family: fallback, style: fbStyle}
		return fallback, fbStyle, nil
	}

	entry := &fontFamilyEntry{family: family, style: style}
	r.fontFamilies[key] = entry
	return family, style, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, font layout.FontResource, style canvas.FontStyle) error {
	data, err := r.loadFontBytes(font)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, style)
}

func (r *Renderer) loadFontBytes(font layout.FontResource) ([]byte, error) {
	src := font.Src
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		name := fonts.Trim(src)
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
	}
	return renderer.LoadFontBytes(r.baseDir, font)
}

func (r *Renderer) fallback() (*canvas.FontFamily, canvas.FontStyle, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, canvas.FontRegular, nil
	}
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, canvas.FontRegular, err
	}
	family := canvas.NewFontFamily("inkpost-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, canvas.FontRegular, err
	}
	r.fallbackFamily = family
	return family, canvas.FontRegular, nil
}

func parseFontStyle(style string) canvas.FontStyle {
	if style == "" {
		return canvas.FontRegular
	}
	s := strings.ToLower(style)
	result := canvas.FontRegular
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func fontCacheKey(font layout.FontResource) string {
	return fmt.Sprintf("%s|%s|%s", font.Name, font.Src, font.Style)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}
