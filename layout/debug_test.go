package layout

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteDebugJSON(t *testing.T) {
	res := &Result{
		Segments: []Segment{{Content: "hi ", Font: quoteFont, Extent: Extent{Width: 30, Height: 40}}},
		Width:    30,
		Height:   40,
	}
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := WriteDebugJSON(res, Place(100, 100, res), path); err != nil {
		t.Fatalf("写入调试 JSON 失败: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取调试 JSON 失败: %v", err)
	}
	var dump debugDump
	if err := json.Unmarshal(data, &dump); err != nil {
		t.Fatalf("解析调试 JSON 失败: %v", err)
	}
	if dump.Result.Height != 40 || len(dump.Placements) != 1 {
		t.Fatalf("调试 JSON 内容不符: %+v", dump)
	}
	if p := dump.Placements[0]; p.X != 35 || p.Y != 30 {
		t.Fatalf("放置坐标 = (%d,%d), want (35,30)", p.X, p.Y)
	}
}

func TestWriteDebugJSONNilResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.json")
	if err := WriteDebugJSON(nil, nil, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("nil result should not write a file")
	}
}
