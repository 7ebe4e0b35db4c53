package binding

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 若 data 为空或路径不存在，则返回原占位符。
func Interpolate(text string, data any) string {
	if data == nil {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-1])
		if val, ok := Lookup(data, path); ok {
			return fmt.Sprint(val)
		}
		return match
	})
}

// step 是路径中的一级：字段/键名，或下标。
type step struct {
	key   string
	index int
	isIdx bool
}

// Lookup 按 "a.b[0].c" 形式的路径在 data 中取值。
// 支持任意以 string 为键的 map、切片/数组，以及结构体（按字段名或 yaml 标签匹配）。
func Lookup(data any, path string) (any, bool) {
	steps, ok := parsePath(path)
	if !ok || data == nil {
		return nil, false
	}
	cur := reflect.ValueOf(data)
	for _, s := range steps {
		cur = indirect(cur)
		if !cur.IsValid() {
			return nil, false
		}
		if s.isIdx {
			cur, ok = descendIndex(cur, s.index)
		} else {
			cur, ok = descendKey(cur, s.key)
		}
		if !ok {
			return nil, false
		}
	}
	cur = indirect(cur)
	if !cur.IsValid() || !cur.CanInterface() {
		return nil, false
	}
	return cur.Interface(), true
}

// parsePath 把路径拆成逐级步骤；空段、未闭合或非数字的下标都视为无效路径。
func parsePath(path string) ([]step, bool) {
	if path == "" {
		return nil, false
	}
	var steps []step
	for _, segment := range strings.Split(path, ".") {
		name, rest, _ := strings.Cut(segment, "[")
		if name == "" && rest == "" {
			return nil, false
		}
		if name != "" {
			steps = append(steps, step{key: name})
		}
		if !strings.Contains(segment, "[") {
			continue
		}
		rest = "[" + rest
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end == -1 {
				return nil, false
			}
			idx, err := strconv.Atoi(rest[1:end])
			if err != nil {
				return nil, false
			}
			steps = append(steps, step{index: idx, isIdx: true})
			rest = rest[end+1:]
		}
	}
	return steps, true
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func descendKey(v reflect.Value, key string) (reflect.Value, bool) {
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		val := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key()))
		return val, val.IsValid()
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			tag, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
			if f.Name == key || tag == key {
				return v.Field(i), true
			}
		}
	}
	return reflect.Value{}, false
}

func descendIndex(v reflect.Value, idx int) (reflect.Value, bool) {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if idx < 0 || idx >= v.Len() {
			return reflect.Value{}, false
		}
		return v.Index(idx), true
	}
	return reflect.Value{}, false
}
