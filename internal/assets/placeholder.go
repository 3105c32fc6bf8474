package assets

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/vbncursed/vkr/pass-service/internal/passdata"
)

// placeholderIcon is the background colour with the stamp icon centred.
func placeholderIcon(w, h int, pal passdata.Palette, icon string) *image.RGBA {
	dst := newCanvas(w, h, pal.Background)
	side := min(w, h) * 70 / 100
	x0, y0 := (w-side)/2, (h-side)/2
	drawIcon(dst, image.Rect(x0, y0, x0+side, y0+side), icon, pal.Foreground)
	return dst
}

// placeholderLogo is a transparent tile with the initials of text in the
// foreground colour, left-aligned as wallet logos are.
func placeholderLogo(w, h int, pal passdata.Palette, text string) *image.RGBA {
	dst := newCanvas(w, h, nil)
	label := initials(text)
	if label == "" {
		side := h * 80 / 100
		y0 := (h - side) / 2
		drawIcon(dst, image.Rect(0, y0, side, y0+side), passdata.DefaultStampIcon, pal.Foreground)
		return dst
	}
	glyphs := renderText(label, pal.Foreground)
	target := fitRect(glyphs.Bounds(), image.Rect(0, h/10, w, h-h/10))
	target = target.Sub(image.Pt(target.Min.X, 0))
	fitInto(dst, target, glyphs)
	return dst
}

func renderText(s string, c color.Color) *image.RGBA {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face, Src: image.NewUniform(c)}
	m := face.Metrics()
	w := max(d.MeasureString(s).Ceil(), 1)
	h := max((m.Ascent + m.Descent).Ceil(), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	d.Dst = dst
	d.Dot = fixed.P(0, m.Ascent.Ceil())
	d.DrawString(s)
	return dst
}

// initials keeps at most three upper-cased word initials in ASCII; the
// bitmap face has no other glyphs.
func initials(s string) string {
	var b strings.Builder
	for _, w := range strings.Fields(s) {
		r := w[0]
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteByte(r)
		}
		if b.Len() == 3 {
			break
		}
	}
	return b.String()
}
