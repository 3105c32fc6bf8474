package assets

import "github.com/vbncursed/vkr/pass-service/internal/models"

type Kind int

const (
	KindIcon Kind = iota
	KindLogo
	KindStrip
)

// FileSpec is one output image of the bundle.
type FileSpec struct {
	Name     string
	Width    int
	Height   int
	Kind     Kind
	Required bool
}

// Files is the exact image set of a store card bundle, in bundle order.
var Files = []FileSpec{
	{Name: models.FileIcon, Width: 29, Height: 29, Kind: KindIcon, Required: true},
	{Name: models.FileIcon2x, Width: 58, Height: 58, Kind: KindIcon, Required: true},
	{Name: models.FileLogo, Width: 160, Height: 50, Kind: KindLogo},
	{Name: models.FileLogo2x, Width: 320, Height: 100, Kind: KindLogo},
	{Name: models.FileStrip, Width: 375, Height: 123, Kind: KindStrip},
	{Name: models.FileStrip2x, Width: 750, Height: 246, Kind: KindStrip},
}

// SpecFor looks up a file spec by bundle name.
func SpecFor(name string) (FileSpec, bool) {
	for _, f := range Files {
		if f.Name == name {
			return f, true
		}
	}
	return FileSpec{}, false
}
