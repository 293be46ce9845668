package backend

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Files stores uploaded bytes and returns their public URL.
type Files interface {
	Upload(ctx context.Context, data []byte, path string) (string, error)
}

// Cloudinary uploads to a Cloudinary account. The directory of the gateway path
// becomes the folder and the file name, minus extension, the public id.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, data []byte, p string) (string, error) {
	folder, publicID := splitUploadPath(p)
	res, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("failed to upload to Cloudinary: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

func splitUploadPath(p string) (folder, publicID string) {
	p = strings.Trim(path.Clean("/"+p), "/")
	folder = path.Dir(p)
	if folder == "." {
		folder = ""
	}
	base := path.Base(p)
	return folder, strings.TrimSuffix(base, path.Ext(base))
}
