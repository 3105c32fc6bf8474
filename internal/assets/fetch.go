package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultAllowedContentTypes are the image types custom sources may use.
var DefaultAllowedContentTypes = []string{"image/png", "image/jpeg", "image/webp"}

const (
	DefaultFetchTimeout = 3 * time.Second
	DefaultMaxBytes     = 2 << 20
)

var (
	ErrFetchTimeout   = errors.New("image fetch timed out")
	ErrTooLarge       = errors.New("image exceeds size limit")
	ErrContentType    = errors.New("image content type not allowed")
	ErrBadStatus      = errors.New("image source returned non-200 status")
	ErrUnsupportedURL = errors.New("image url must be http or https")
)

// FetchOptions bounds a single image fetch.
type FetchOptions struct {
	Timeout             time.Duration
	MaxBytes            int64
	AllowedContentTypes []string
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultFetchTimeout
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if len(o.AllowedContentTypes) == 0 {
		o.AllowedContentTypes = DefaultAllowedContentTypes
	}
	return o
}

// Fetcher retrieves raw image bytes for a custom design source.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts FetchOptions) ([]byte, error)
}

// HTTPFetcher fetches over net/http with the timeout, size and type limits
// from FetchOptions.
type HTTPFetcher struct {
	Client *http.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context, rawURL string, opts FetchOptions) ([]byte, error) {
	opts = opts.withDefaults()
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrUnsupportedURL
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", strings.Join(opts.AllowedContentTypes, ", "))

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrFetchTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !slices.Contains(opts.AllowedContentTypes, mt) {
		return nil, fmt.Errorf("%w: %q", ErrContentType, resp.Header.Get("Content-Type"))
	}
	if resp.ContentLength > opts.MaxBytes {
		return nil, fmt.Errorf("%w: %s > %s", ErrTooLarge,
			humanize.IBytes(uint64(resp.ContentLength)), humanize.IBytes(uint64(opts.MaxBytes)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxBytes+1))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrFetchTimeout
		}
		return nil, err
	}
	if int64(len(data)) > opts.MaxBytes {
		return nil, fmt.Errorf("%w: more than %s", ErrTooLarge, humanize.IBytes(uint64(opts.MaxBytes)))
	}
	return data, nil
}
