package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// referenceChar 用于近似估算每行可容纳的字符数（等宽近似）。
const referenceChar = "a"

// spacerLine 是正文与作者之间的空行。
const spacerLine = " "

var (
	// ErrInvalidFont 表示字体无法用于排版：参考字符宽度为 0，或由此得到的最大行长不为正。
	ErrInvalidFont = errors.New("layout: 字体无效")
	// ErrInvalidMargin 表示边距比例不在 [0, 0.5) 范围内。
	ErrInvalidMargin = errors.New("layout: 边距比例无效")
)

// Compose 串联最大行长计算、折行、分段与测量，返回可直接放置的排版结果。
func Compose(in Input, ts Typesetter) (*Result, error) {
	if ts == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	maxLen, err := MaxLineLength(in.ImageWidth, in.Margin, in.Primary, ts)
	if err != nil {
		return nil, err
	}
	lines, err := WrapLines(in.Body, maxLen)
	if err != nil {
		return nil, err
	}
	segments := BuildSegments(lines, in.Primary, in.Secondary, in.SecondaryFont)
	return Measure(segments, ts)
}

// MaxLineLength 以参考字符 "a" 的宽度估算一行最多容纳的字符数。
func MaxLineLength(imageWidth int, margin float64, font FontResource, ts Typesetter) (int, error) {
	if margin < 0 || margin >= 0.5 || math.IsNaN(margin) {
		return 0, fmt.Errorf("%w: %g", ErrInvalidMargin, margin)
	}
	ext, err := ts.Measure(referenceChar, font)
	if err != nil {
		return 0, fmt.Errorf("测量参考字符失败: %w", err)
	}
	if ext.Width <= 0 {
		return 0, fmt.Errorf("%w: 字体 %s 的参考字符宽度为 %d", ErrInvalidFont, fontLabel(font), ext.Width)
	}
	usable := float64(imageWidth) * (1 - margin*2)
	n := int(math.Floor(usable / float64(ext.Width)))
	if n <= 0 {
		return 0, fmt.Errorf("%w: 字体 %s 在宽度 %d 下最大行长为 %d", ErrInvalidFont, fontLabel(font), imageWidth, n)
	}
	return n, nil
}

// WrapLines 使用贪心算法按单个空格分词并折行，每行保留结尾空格。
// 超长单词不拆分，独占一行（可能溢出可用宽度）。
func WrapLines(text string, maxLen int) ([]string, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("%w: 最大行长 %d 必须为正", ErrInvalidFont, maxLen)
	}
	var (
		lines   []string
		current strings.Builder
		length  int
	)
	for _, word := range strings.Split(text, " ") {
		n := utf8.RuneCountInString(word)
		if length+n >= maxLen && length > 0 {
			lines = append(lines, current.String())
			current.Reset()
			length = 0
		}
		current.WriteString(word)
		current.WriteString(" ")
		length += n + 1
	}
	lines = append(lines, current.String())
	return lines, nil
}

// BuildSegments 按绘制顺序生成 (文本, 字体) 序列：正文各行、空行、作者（若有）。
// 使用有序切片而非 map，相同文本的段落不会互相覆盖。
func BuildSegments(lines []string, primary FontResource, secondary string, secondaryFont FontResource) []Segment {
	out := make([]Segment, 0, len(lines)+2)
	for _, line := range lines {
		out = append(out, Segment{Content: line, Font: primary})
	}
	out = append(out, Segment{Content: spacerLine, Font: primary})
	if secondary != "" {
		out = append(out, Segment{Content: secondary, Font: secondaryFont})
	}
	return out
}

// Measure 逐段测量包围盒，总高度为各段高度之和，宽度取最大值。
func Measure(segments []Segment, ts Typesetter) (*Result, error) {
	if ts == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	res := &Result{Segments: make([]Segment, len(segments))}
	for i, seg := range segments {
		ext, err := ts.Measure(seg.Content, seg.Font)
		if err != nil {
			return nil, fmt.Errorf("测量第 %d 段文本失败: %w", i, err)
		}
		seg.Extent = ext
		res.Segments[i] = seg
		res.Height += ext.Height
		if ext.Width > res.Width {
			res.Width = ext.Width
		}
	}
	return res, nil
}

// Place 计算每段的左上角坐标：整体垂直居中、每段水平居中。
// 文本高于画布时起始 y 为负，照常返回。
func Place(canvasWidth, canvasHeight int, res *Result) []Placement {
	if res == nil {
		return nil
	}
	out := make([]Placement, 0, len(res.Segments))
	y := floorDiv(canvasHeight-res.Height, 2)
	for _, seg := range res.Segments {
		out = append(out, Placement{
			Segment: seg,
			X:       floorDiv(canvasWidth-seg.Extent.Width, 2),
			Y:       y,
		})
		y += seg.Extent.Height
	}
	return out
}

// Render 将排版结果按 Place 的坐标绘制到画布上，原地修改并返回同一画布。
func Render(s Surface, res *Result, c Color) (Surface, error) {
	if s == nil {
		return nil, fmt.Errorf("layout: 画布为空")
	}
	w, h := s.Size()
	for _, p := range Place(w, h, res) {
		if err := s.DrawText(p.X, p.Y, p.Segment.Content, p.Segment.Font, c); err != nil {
			return s, fmt.Errorf("绘制文本 %q 失败: %w", p.Segment.Content, err)
		}
	}
	return s, nil
}

// floorDiv 是向下取整的整数除法（负数同样向下取整）。
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func fontLabel(font FontResource) string {
	if font.Name != "" {
		return font.Name
	}
	return font.Src
}
