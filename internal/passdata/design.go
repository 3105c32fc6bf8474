package passdata

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/vbncursed/vkr/pass-service/internal/models"
)

// Named defaults for missing catalog data. Each one is part of the pass
// contract and shows up verbatim on issued passes.
const (
	DefaultFirstName      = "Valued"
	DefaultLastName       = "Customer"
	DefaultStampsRequired = 10
	DefaultRewardText     = "Free reward"
	DefaultOfferTitle     = "Loyalty card"
	DefaultStampIcon      = "star"
	DefaultProgressLayout = "grid"
)

var (
	DefaultBackground = color.RGBA{R: 24, G: 24, B: 27, A: 255}
	DefaultForeground = color.RGBA{R: 250, G: 250, B: 250, A: 255}
	DefaultLabel      = color.RGBA{R: 161, G: 161, B: 170, A: 255}
)

// Palette holds the three pass colours.
type Palette struct {
	Background color.RGBA
	Foreground color.RGBA
	Label      color.RGBA
}

// ResolvedDesign is a design with every field defaulted.
type ResolvedDesign struct {
	Palette        Palette
	LogoText       string
	IconURL        string
	LogoURL        string
	StampImageURL  string
	StampIcon      string
	ProgressLayout string
	// Fallbacks lists the design fields that were replaced by defaults
	// because they were present but invalid.
	Fallbacks []string
}

// ResolveDesign applies the default for every missing or invalid field.
// A nil design yields the default palette and no custom images.
func ResolveDesign(d *models.Design) ResolvedDesign {
	out := ResolvedDesign{
		Palette:        Palette{Background: DefaultBackground, Foreground: DefaultForeground, Label: DefaultLabel},
		StampIcon:      DefaultStampIcon,
		ProgressLayout: DefaultProgressLayout,
	}
	if d == nil {
		return out
	}
	slots := []struct {
		name string
		in   string
		dst  *color.RGBA
	}{
		{"background_color", d.BackgroundColor, &out.Palette.Background},
		{"foreground_color", d.ForegroundColor, &out.Palette.Foreground},
		{"label_color", d.LabelColor, &out.Palette.Label},
	}
	for _, s := range slots {
		if strings.TrimSpace(s.in) == "" {
			continue
		}
		c, ok := ParseColor(s.in)
		if !ok {
			out.Fallbacks = append(out.Fallbacks, s.name)
			continue
		}
		*s.dst = c
	}
	out.LogoText = strings.TrimSpace(d.LogoText)
	out.IconURL = strings.TrimSpace(d.IconURL)
	out.LogoURL = strings.TrimSpace(d.LogoURL)
	out.StampImageURL = strings.TrimSpace(d.StampImageURL)
	if v := strings.ToLower(strings.TrimSpace(d.StampIcon)); v != "" {
		out.StampIcon = v
	}
	if v := strings.ToLower(strings.TrimSpace(d.ProgressLayout)); v != "" {
		out.ProgressLayout = v
	}
	return out
}

// ParseColor accepts #rgb and #rrggbb, with or without the leading '#'.
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, false
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, true
}

// FormatColor renders the wallet's rgb(r, g, b) colour encoding.
func FormatColor(c color.RGBA) string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// NormalizeColor converts a design colour into the wallet encoding, using
// fallback when the input is empty or unparseable.
func NormalizeColor(in string, fallback color.RGBA) string {
	if c, ok := ParseColor(in); ok && strings.TrimSpace(in) != "" {
		return FormatColor(c)
	}
	return FormatColor(fallback)
}
