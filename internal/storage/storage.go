// Package storage uploads generated and user-supplied media to object storage
// and builds delivery URLs, optionally with on-the-fly transformations.
package storage

import (
	"context"
	"errors"
	"regexp"
)

// Effect is a server-side image transformation.
type Effect string

const (
	// EffectBackgroundRemoval strips the background of an uploaded image.
	EffectBackgroundRemoval Effect = "background_removal"
	// EffectGenerativeRemove erases the object named by Transform.Prompt.
	EffectGenerativeRemove Effect = "gen_remove"
)

// Transform describes a transformation applied on upload or delivery.
type Transform struct {
	Effect Effect
	Prompt string
}

// UploadOptions tune a single upload.
type UploadOptions struct {
	// ContentType of the payload; sniffed when empty.
	ContentType string
	// Transform is applied at upload time when set.
	Transform *Transform
}

// Object is a stored asset.
type Object struct {
	PublicID  string
	SecureURL string
}

// ObjectStorage is implemented by every storage backend.
type ObjectStorage interface {
	Upload(ctx context.Context, data []byte, opts UploadOptions) (*Object, error)
	URLFor(publicID string, t Transform) (string, error)
}

// Storage errors.
var (
	ErrEmptyPayload         = errors.New("empty upload payload")
	ErrTransformUnsupported = errors.New("transformation not supported by storage provider")
	ErrInvalidTransform     = errors.New("invalid transformation")
)

// promptPattern restricts generative prompts to a single URL-safe word.
var promptPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks that the transform can be expressed in a delivery URL.
func (t Transform) Validate() error {
	switch t.Effect {
	case EffectBackgroundRemoval:
		return nil
	case EffectGenerativeRemove:
		if !promptPattern.MatchString(t.Prompt) {
			return ErrInvalidTransform
		}
		return nil
	default:
		return ErrInvalidTransform
	}
}
