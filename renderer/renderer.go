package renderer

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ByLCY/inkpost/fonts"
	"github.com/ByLCY/inkpost/layout"
)

// Renderer 是渲染后端：既负责测量文本（layout.Typesetter），也负责创建可绘制的画布。
type Renderer interface {
	layout.Typesetter
	NewCanvas(width, height int, background layout.Color) Canvas
}

// Canvas 是内存中的位图画布，绘制会原地修改它。
type Canvas interface {
	layout.Surface
	Image() image.Image
}

// EncodePNG 将画布编码为 PNG 写入 w。
func EncodePNG(w io.Writer, c Canvas) error {
	if c == nil {
		return fmt.Errorf("画布为空")
	}
	if err := png.Encode(w, c.Image()); err != nil {
		return fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return nil
}

// LoadFontBytes 按 src 读取字体数据：embed:/builtin: 使用内置字体，其余按文件路径处理，
// 相对路径基于 baseDir 解析。
func LoadFontBytes(baseDir string, font layout.FontResource) ([]byte, error) {
	src := font.Src
	if src == "" {
		return nil, fmt.Errorf("字体 %s 缺少 src", font.Name)
	}
	if fonts.IsBuiltin(src) {
		return fonts.Load(src)
	}
	path := src
	if baseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 embed: 或绝对路径）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", src, err)
	}
	return data, nil
}

// ParseColor 解析 "#RGB"、"#RRGGBB" 或元组形式 "(r, g, b)" 的颜色。
func ParseColor(value string) (layout.Color, error) {
	v := strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(v, "#"):
		hex := strings.TrimPrefix(v, "#")
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return layout.Color{}, fmt.Errorf("颜色格式错误: %s", value)
		}
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return layout.Color{}, fmt.Errorf("颜色格式错误: %s: %w", value, err)
		}
		return layout.Color{R: int(n >> 16 & 0xff), G: int(n >> 8 & 0xff), B: int(n & 0xff)}, nil
	case strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")"):
		parts := strings.Split(strings.Trim(v, "()"), ",")
		if len(parts) != 3 {
			return layout.Color{}, fmt.Errorf("颜色格式错误: %s", value)
		}
		var rgb [3]int
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < 0 || n > 255 {
				return layout.Color{}, fmt.Errorf("颜色分量越界: %s", value)
			}
			rgb[i] = n
		}
		return layout.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
	}
	return layout.Color{}, fmt.Errorf("无法识别的颜色: %s", value)
}
