// Package imaging renders images from text prompts through ClipDrop.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/quickai/quickai/internal/httpclient"
)

// DefaultClipdropURL is the ClipDrop text-to-image endpoint.
const DefaultClipdropURL = "https://clipdrop-api.co/text-to-image/v1"

// maxImageBytes caps the size of a rendered image read into memory.
const maxImageBytes = 20 << 20

// ErrEmptyImage is returned when the service answers with no image data.
var ErrEmptyImage = errors.New("image service returned no data")

// Clipdrop generates images from prompts.
type Clipdrop struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewClipdrop creates a ClipDrop client.
func NewClipdrop(endpoint, apiKey string, client *http.Client) (*Clipdrop, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("clipdrop api key is required")
	}
	if endpoint == "" {
		endpoint = DefaultClipdropURL
	}
	return &Clipdrop{endpoint: endpoint, apiKey: apiKey, client: client}, nil
}

// GenerateImage renders prompt and returns the encoded image bytes.
func (c *Clipdrop) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("failed to write prompt field: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("User-Agent", httpclient.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call clipdrop: %w", err)
	}
	defer resp.Body.Close()

	if err := httpclient.CheckResponse("clipdrop", resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return data, nil
}
