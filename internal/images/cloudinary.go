// Package images uploads base64 image payloads to Cloudinary and hands back
// hosted URLs.
package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var ErrNotConfigured = errors.New("image uploads are not configured")

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, file string) (*Upload, error)
}

type Upload struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// IsDataURI reports whether s is an inline base64 payload rather than a URL.
func IsDataURI(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "data:")
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	// BaseURL overrides the upload API host.
	BaseURL string
}

type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(cfg CloudinaryConfig) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	if cfg.BaseURL != "" {
		cld.Upload.Config.API.UploadPrefix = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Cloudinary{cld: cld, folder: cfg.Folder}, nil
}

// Upload sends file (a data URI or remote URL) to the upload API.
func (c *Cloudinary) Upload(ctx context.Context, file string) (*Upload, error) {
	res, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{Folder: c.folder})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return nil, errors.New("cloudinary upload: response carried no url")
	}
	return &Upload{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

// Resolve replaces every data URI in refs with an uploaded URL and leaves
// plain URLs alone. Blank entries are dropped. A nil uploader with a data
// URI present yields ErrNotConfigured.
func Resolve(ctx context.Context, up Uploader, refs []string) ([]string, error) {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if !IsDataURI(ref) {
			out = append(out, ref)
			continue
		}
		if up == nil {
			return nil, ErrNotConfigured
		}
		u, err := up.Upload(ctx, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, u.URL)
	}
	return out, nil
}
