package layout

// 该文件定义排版结果与字体描述，供排版计算、画布绘制与调试 JSON 共用。

// FontResource 描述一个字体资源，src 可以是文件路径、embed:<name> 或 builtin:<name>。
// Size 以像素计，与 TrueType 字体加载时的字号一致。
type FontResource struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Src   string `json:"src" yaml:"src" toml:"src"`
	Size  int    `json:"size" yaml:"size" toml:"size"`
	Style string `json:"style,omitempty" yaml:"style" toml:"style"`
}

// Extent 是渲染后文本的包围盒尺寸（像素）。
type Extent struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Segment 是按绘制顺序排列的一段文本（一行正文、空行或作者），与其字体一一对应。
type Segment struct {
	Content string       `json:"content"`
	Font    FontResource `json:"font"`
	Extent  Extent       `json:"extent"`
}

// Result 保存排版后的段落序列与总尺寸。
// Height 恒等于各段 Extent.Height 之和，Width 为各段宽度的最大值（仅供参考）。
type Result struct {
	Segments []Segment `json:"segments"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
}

// Placement 记录某一段在画布上的左上角坐标。
type Placement struct {
	Segment Segment `json:"segment"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Input 汇总一次排版所需的全部输入。
type Input struct {
	Body          string
	Secondary     string
	Primary       FontResource
	SecondaryFont FontResource
	ImageWidth    int
	Margin        float64
}
