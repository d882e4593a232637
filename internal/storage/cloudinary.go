package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryConfig holds Cloudinary credentials.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	// APIBaseURL overrides the upload API prefix (tests).
	APIBaseURL string
}

// Cloudinary stores images through the signed upload API and expresses
// transformations in delivery URLs.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinary creates a Cloudinary backend.
func NewCloudinary(cfg CloudinaryConfig, client *http.Client) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary cloud name, api key and api secret are required")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	if cfg.APIBaseURL != "" {
		cld.Config.API.UploadPrefix = strings.TrimSuffix(cfg.APIBaseURL, "/")
	}
	if client != nil {
		cld.Upload.Client = *client
	}
	cld.Config.URL.Secure = true
	cld.Config.URL.Analytics = false

	return &Cloudinary{cld: cld}, nil
}

// Upload sends data to the image upload endpoint.
func (c *Cloudinary) Upload(ctx context.Context, data []byte, opts UploadOptions) (*Object, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	params := uploader.UploadParams{ResourceType: "image"}
	if opts.Transform != nil {
		if err := opts.Transform.Validate(); err != nil {
			return nil, err
		}
		params.Transformation = transformationString(*opts.Transform)
	}

	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), params)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload failed: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary upload returned no secure_url")
	}

	return &Object{PublicID: resp.PublicID, SecureURL: resp.SecureURL}, nil
}

// URLFor builds a delivery URL that applies t without another upload.
func (c *Cloudinary) URLFor(publicID string, t Transform) (string, error) {
	if publicID == "" {
		return "", fmt.Errorf("public id is required")
	}
	if err := t.Validate(); err != nil {
		return "", err
	}

	img, err := c.cld.Image(publicID)
	if err != nil {
		return "", fmt.Errorf("failed to build cloudinary asset: %w", err)
	}
	img.Transformation = transformationString(t)

	url, err := img.String()
	if err != nil {
		return "", fmt.Errorf("failed to build delivery url: %w", err)
	}
	return url, nil
}

// transformationString renders t in Cloudinary URL syntax.
func transformationString(t Transform) string {
	if t.Effect == EffectGenerativeRemove {
		return "e_gen_remove:prompt_" + t.Prompt
	}
	return "e_" + string(t.Effect)
}
