// Package assets renders the image files of a pass bundle. Custom sources
// are fetched best-effort; anything missing or broken is replaced by a
// deterministic placeholder so a bundle can always be built.
package assets

import (
	"context"
	"image"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/passdata"
)

// Request is the asset input of one pass.
type Request struct {
	Design       passdata.ResolvedDesign
	Offer        models.Offer
	Progress     models.Progress
	BusinessName string
}

type Pipeline struct {
	fetcher Fetcher
	opts    FetchOptions
	logger  *slog.Logger
}

// NewPipeline wires a fetcher; a nil fetcher disables custom sources.
func NewPipeline(fetcher Fetcher, opts FetchOptions, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{fetcher: fetcher, opts: opts.withDefaults(), logger: logger}
}

type sources struct {
	icon, logo, stamp image.Image
}

// Build produces every file in Files. It only fails when a rendered image
// cannot be encoded.
func (p *Pipeline) Build(ctx context.Context, req Request) (models.AssetSet, error) {
	d := req.Design
	src := p.fetchSources(ctx, d, req.Offer.ID)

	icon, ok := ResolveIcon(d.StampIcon)
	if !ok {
		p.logger.Warn("unknown stamp icon, using default", "icon", d.StampIcon, "default", icon, "offer_id", req.Offer.ID)
	}
	layout, ok := ResolveLayout(d.ProgressLayout)
	if !ok {
		p.logger.Warn("unknown progress layout, using default", "layout", d.ProgressLayout, "default", layout, "offer_id", req.Offer.ID)
	}
	required := req.Offer.StampsRequired
	if required <= 0 {
		required = passdata.DefaultStampsRequired
	}
	progress := ProgressSpec{
		Earned:   req.Progress.StampsEarned,
		Required: required,
		Palette:  d.Palette,
		Icon:     icon,
		Layout:   layout,
		Stamp:    src.stamp,
	}
	logoText := d.LogoText
	if logoText == "" {
		logoText = req.BusinessName
	}

	set := make(models.AssetSet, len(Files))
	for _, f := range Files {
		var img image.Image
		switch f.Kind {
		case KindIcon:
			if src.icon != nil {
				dst := newCanvas(f.Width, f.Height, d.Palette.Background)
				coverInto(dst, dst.Bounds(), src.icon)
				img = dst
			} else {
				img = placeholderIcon(f.Width, f.Height, d.Palette, icon)
			}
		case KindLogo:
			if src.logo != nil {
				dst := newCanvas(f.Width, f.Height, nil)
				fitInto(dst, dst.Bounds(), src.logo)
				img = dst
			} else {
				img = placeholderLogo(f.Width, f.Height, d.Palette, logoText)
			}
		case KindStrip:
			img = ComposeProgress(f.Width, f.Height, progress)
		}
		data, err := encodePNG(img)
		if err != nil {
			return nil, apperr.Infra(err, apperr.StageAssets, "png_encode", "asset "+f.Name+" could not be encoded")
		}
		set[f.Name] = data
	}
	return set, nil
}

// fetchSources loads the custom images concurrently. Failures leave the
// slot nil and are only logged.
func (p *Pipeline) fetchSources(ctx context.Context, d passdata.ResolvedDesign, offerID string) sources {
	var out sources
	if p.fetcher == nil {
		return out
	}
	var g errgroup.Group
	load := func(kind, url string, dst *image.Image) {
		if url == "" {
			return
		}
		g.Go(func() error {
			*dst = p.source(ctx, kind, url, offerID)
			return nil
		})
	}
	load("icon", d.IconURL, &out.icon)
	load("logo", d.LogoURL, &out.logo)
	load("stamp", d.StampImageURL, &out.stamp)
	_ = g.Wait()
	return out
}

func (p *Pipeline) source(ctx context.Context, kind, url, offerID string) image.Image {
	data, err := p.fetcher.Fetch(ctx, url, p.opts)
	if err != nil {
		p.logger.Warn("custom image unavailable, using placeholder",
			"kind", kind, "offer_id", offerID, "err", err)
		return nil
	}
	img, err := decodeImage(data)
	if err != nil {
		p.logger.Warn("custom image undecodable, using placeholder",
			"kind", kind, "offer_id", offerID, "err", err)
		return nil
	}
	return img
}
