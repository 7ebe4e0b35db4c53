package layout

// This file defines unit helpers shared by the rendering backends.
//
// Pixel backends work in whole pixels. The vector backend lays out on a
// millimetre canvas rasterized at one dot per millimetre, so 1 mm == 1 px and
// font sizes must be handed over in points.

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// PxToPt converts a pixel font size to points on a 1 px/mm canvas.
func PxToPt(px float64) float64 { return px * MmToPt }

// PtToPx converts points back to pixels on a 1 px/mm canvas.
func PtToPx(pt float64) float64 { return pt * PtToMm }
