package layout

import (
	"encoding/json"
	"os"
)

// debugDump 是调试 JSON 的顶层结构。
type debugDump struct {
	Result     *Result     `json:"result"`
	Placements []Placement `json:"placements,omitempty"`
}

// WriteDebugJSON 将排版结果与放置坐标输出为 JSON，便于调试或可视化。
func WriteDebugJSON(res *Result, placements []Placement, path string) error {
	if res == nil {
		return nil
	}
	data, err := json.MarshalIndent(debugDump{Result: res, Placements: placements}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
