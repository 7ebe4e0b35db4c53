package layout

// Typesetter 负责测量文本在指定字体下的包围盒，由渲染后端实现。
type Typesetter interface {
	Measure(text string, font FontResource) (Extent, error)
}

// Surface 是可以绘制文本的画布，绘制会原地修改画布。
type Surface interface {
	Size() (width, height int)
	DrawText(x, y int, text string, font FontResource, c Color) error
}
