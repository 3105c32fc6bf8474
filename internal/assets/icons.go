package assets

import (
	"image"
	"image/color"
	"math"
	"sort"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// DefaultIcon replaces unknown stamp icon identifiers.
const DefaultIcon = "star"

// iconPath traces an icon into the square [0,s]×[0,s].
type iconPath func(z *vector.Rasterizer, s float32)

var iconRegistry = map[string]iconPath{
	"star":    star,
	"heart":   heart,
	"cup":     cup,
	"circle":  circle,
	"check":   check,
	"diamond": diamond,
}

// KnownIcons lists the registry in sorted order.
func KnownIcons() []string {
	out := make([]string, 0, len(iconRegistry))
	for name := range iconRegistry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ResolveIcon maps name to a registered icon, falling back to DefaultIcon.
// The second result reports whether name was known.
func ResolveIcon(name string) (string, bool) {
	if _, ok := iconRegistry[name]; ok {
		return name, true
	}
	return DefaultIcon, false
}

// drawIcon rasterizes a registry icon into the square r of dst.
func drawIcon(dst draw.Image, r image.Rectangle, name string, c color.Color) {
	name, _ = ResolveIcon(name)
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return
	}
	z := vector.NewRasterizer(w, h)
	iconRegistry[name](z, float32(min(w, h)))
	z.Draw(dst, r, image.NewUniform(c), image.Point{})
}

func polygon(z *vector.Rasterizer, s float32, pts ...[2]float32) {
	for i, p := range pts {
		if i == 0 {
			z.MoveTo(p[0]*s, p[1]*s)
			continue
		}
		z.LineTo(p[0]*s, p[1]*s)
	}
	z.ClosePath()
}

func ellipse(z *vector.Rasterizer, cx, cy, r float32) {
	k := 0.5523 * r
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()
}

func star(z *vector.Rasterizer, s float32) {
	cx, cy := s/2, s/2
	outer := s * 0.48
	inner := outer * 0.45
	for i := 0; i < 10; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := -math.Pi/2 + float64(i)*math.Pi/5
		x := cx + r*float32(math.Cos(a))
		y := cy + r*float32(math.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}

func heart(z *vector.Rasterizer, s float32) {
	z.MoveTo(s*0.5, s*0.9)
	z.CubeTo(s*0.1, s*0.6, s*0.0, s*0.3, s*0.25, s*0.15)
	z.CubeTo(s*0.38, s*0.08, s*0.48, s*0.15, s*0.5, s*0.28)
	z.CubeTo(s*0.52, s*0.15, s*0.62, s*0.08, s*0.75, s*0.15)
	z.CubeTo(s*1.0, s*0.3, s*0.9, s*0.6, s*0.5, s*0.9)
	z.ClosePath()
}

func cup(z *vector.Rasterizer, s float32) {
	polygon(z, s, [2]float32{0.15, 0.25}, [2]float32{0.70, 0.25}, [2]float32{0.63, 0.80}, [2]float32{0.22, 0.80})
	polygon(z, s, [2]float32{0.68, 0.35}, [2]float32{0.86, 0.35}, [2]float32{0.86, 0.62}, [2]float32{0.66, 0.62})
	polygon(z, s, [2]float32{0.08, 0.84}, [2]float32{0.92, 0.84}, [2]float32{0.92, 0.92}, [2]float32{0.08, 0.92})
}

func circle(z *vector.Rasterizer, s float32) {
	ellipse(z, s/2, s/2, s*0.46)
}

func check(z *vector.Rasterizer, s float32) {
	polygon(z, s,
		[2]float32{0.08, 0.52}, [2]float32{0.22, 0.38}, [2]float32{0.40, 0.56},
		[2]float32{0.78, 0.18}, [2]float32{0.92, 0.32}, [2]float32{0.40, 0.84})
}

func diamond(z *vector.Rasterizer, s float32) {
	polygon(z, s, [2]float32{0.5, 0.04}, [2]float32{0.94, 0.5}, [2]float32{0.5, 0.96}, [2]float32{0.06, 0.5})
}
