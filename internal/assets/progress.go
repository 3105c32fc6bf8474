package assets

import (
	"image"
	"image/color"

	"github.com/vbncursed/vkr/pass-service/internal/passdata"
)

// MaxSlots caps the number of stamp slots drawn on the strip.
const MaxSlots = 30

const (
	LayoutGrid = "grid"
	LayoutRow  = "row"
)

// ResolveLayout maps name to a known layout, falling back to LayoutGrid.
func ResolveLayout(name string) (string, bool) {
	switch name {
	case LayoutGrid, LayoutRow:
		return name, true
	}
	return LayoutGrid, false
}

// ProgressSpec describes the "earned / required" visualization.
type ProgressSpec struct {
	Earned   int
	Required int
	Palette  passdata.Palette
	Icon     string
	Layout   string
	// Stamp, when set, replaces the vector icon for earned slots.
	Stamp image.Image
}

// ComposeProgress draws the stamp card strip at w×h.
func ComposeProgress(w, h int, spec ProgressSpec) *image.RGBA {
	dst := newCanvas(w, h, spec.Palette.Background)

	required := max(spec.Required, 1)
	slots := min(required, MaxSlots)
	filled := max(spec.Earned, 0) * slots / required
	filled = min(filled, slots)

	layout, _ := ResolveLayout(spec.Layout)
	cols, rows := gridShape(layout, slots)
	cell := min(w/cols, h/rows)
	stamp := max(cell*72/100, 1)
	ox := (w - cols*cell) / 2
	oy := (h - rows*cell) / 2

	lb := spec.Palette.Label
	faded := color.NRGBA{R: lb.R, G: lb.G, B: lb.B, A: 90}

	for i := 0; i < slots; i++ {
		x := ox + (i%cols)*cell + (cell-stamp)/2
		y := oy + (i/cols)*cell + (cell-stamp)/2
		r := image.Rect(x, y, x+stamp, y+stamp)
		switch {
		case i < filled && spec.Stamp != nil:
			coverInto(dst, r, spec.Stamp)
		case i < filled:
			drawIcon(dst, r, spec.Icon, spec.Palette.Foreground)
		default:
			drawIcon(dst, r, spec.Icon, faded)
		}
	}
	return dst
}

func gridShape(layout string, slots int) (cols, rows int) {
	if layout == LayoutRow {
		return slots, 1
	}
	switch {
	case slots <= 5:
		rows = 1
	case slots <= 12:
		rows = 2
	default:
		rows = 3
	}
	cols = (slots + rows - 1) / rows
	return cols, rows
}
