package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Default 是未指定字体时使用的内置字体名。
const Default = "goregular"

var builtin = map[string][]byte{
	"goregular":    goregular.TTF,
	"gobold":       gobold.TTF,
	"goitalic":     goitalic.TTF,
	"gobolditalic": gobolditalic.TTF,
	"gomedium":     gomedium.TTF,
	"gomono":       gomono.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:goitalic"、"builtin:goitalic" 或直接 "goitalic"。
func Load(name string) ([]byte, error) {
	key := Trim(name)
	key = strings.TrimSuffix(strings.ToLower(key), ".ttf")
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 可用字体为 %s", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// IsBuiltin 判断 src 是否引用内置字体。
func IsBuiltin(src string) bool {
	return strings.HasPrefix(src, "embed:") || strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:")
}

// Trim 去掉 embed:/builtin: 前缀。
func Trim(src string) string {
	for _, p := range []string{"embed:", "built-in:", "builtin:"} {
		src = strings.TrimPrefix(src, p)
	}
	return src
}

// Names 返回全部内置字体名（已排序）。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
