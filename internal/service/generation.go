package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quickai/quickai/internal/metrics"
	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/storage"
	"github.com/quickai/quickai/internal/usage"
)

// TextGenerator completes a prompt with a language model.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}

// ImageGenerator renders an image from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// TextExtractor pulls plain text out of a document.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// Generation defaults.
const (
	DefaultArticleLength = 800
	MaxArticleLength     = 4096
	BlogTitleMaxTokens   = 100
	ResumeMaxTokens      = 1000
	Temperature          = 0.7

	DefaultExternalCallTimeout = 60 * time.Second
	DefaultMaxResumeSize       = 5 << 20
	DefaultMaxImageSize        = 10 << 20
)

// Fixed prompts recorded for file-based operations.
const (
	PromptRemoveBackground = "Remove background from image"
	PromptResumeReview     = "review the uploaded resume"
)

// External service names used in logs and metrics.
const (
	serviceLLM       = "llm"
	serviceImage     = "image"
	serviceStorage   = "storage"
	serviceExtractor = "extractor"
)

const resumeReviewTemplate = `Review the resume below and give:
1. Its strengths.
2. Its weaknesses and what to improve.
3. Concrete suggestions to make it more impactful and professional.

Resume:
%s
`

// Caller-facing messages.
const (
	msgPromptRequired   = "Prompt is required."
	msgInvalidLength    = "Length must be a positive number."
	msgImageRequired    = "Please upload an image first."
	msgImageTooLarge    = "Image is too large (max %dMB)."
	msgObjectInvalid    = "Please enter a single object name to remove."
	msgResumeRequired   = "No resume file uploaded."
	msgResumeTooLarge   = "File size is too large (max %dMB)."
	msgExternalFailure  = "Content generation failed. Please try again."
	msgPersistFailure   = "Failed to save your creation. Please try again."
	msgResumeUnreadable = "Could not read text from the uploaded resume."
)

// GenerationConfig tunes limits and timeouts.
type GenerationConfig struct {
	ExternalCallTimeout time.Duration
	MaxResumeSize       int64
	MaxImageSize        int64
}

// GenerationDeps are the collaborators of a GenerationService.
type GenerationDeps struct {
	Gate      *usage.Gate
	Recorder  *usage.Recorder
	Text      TextGenerator
	Images    ImageGenerator
	Storage   storage.ObjectStorage
	Extractor TextExtractor
	Logger    *slog.Logger
	Metrics   metrics.Recorder
}

// GenerationService runs every gated AI operation:
// validate, authorize, call external services, persist, record usage.
type GenerationService struct {
	gate      *usage.Gate
	recorder  *usage.Recorder
	text      TextGenerator
	images    ImageGenerator
	storage   storage.ObjectStorage
	extractor TextExtractor
	logger    *slog.Logger
	metrics   metrics.Recorder
	cfg       GenerationConfig
}

// NewGenerationService creates a GenerationService.
func NewGenerationService(deps GenerationDeps, cfg GenerationConfig) *GenerationService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.ExternalCallTimeout <= 0 {
		cfg.ExternalCallTimeout = DefaultExternalCallTimeout
	}
	if cfg.MaxResumeSize <= 0 {
		cfg.MaxResumeSize = DefaultMaxResumeSize
	}
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = DefaultMaxImageSize
	}

	return &GenerationService{
		gate:      deps.Gate,
		recorder:  deps.Recorder,
		text:      deps.Text,
		images:    deps.Images,
		storage:   deps.Storage,
		extractor: deps.Extractor,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		cfg:       cfg,
	}
}

// ArticleInput defines input for generating an article.
type ArticleInput struct {
	Prompt string
	// Length is the token budget; 0 means DefaultArticleLength.
	Length int
}

// ImageInput defines input for generating an image.
type ImageInput struct {
	Prompt  string
	Publish bool
}

// GenerateArticle writes an article for prompt.
func (s *GenerationService) GenerateArticle(ctx context.Context, caller *model.Caller, input ArticleInput) (string, error) {
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return "", validationError(msgPromptRequired)
	}

	length := input.Length
	switch {
	case length < 0:
		return "", validationError(msgInvalidLength)
	case length == 0:
		length = DefaultArticleLength
	case length > MaxArticleLength:
		length = MaxArticleLength
	}

	return s.run(ctx, caller, operation{
		feature:      model.FeatureArticle,
		creationType: model.CreationArticle,
		prompt:       prompt,
		invoke: func(ctx context.Context) (string, error) {
			return s.complete(ctx, prompt, length)
		},
	})
}

// GenerateBlogTitle suggests blog titles for prompt.
func (s *GenerationService) GenerateBlogTitle(ctx context.Context, caller *model.Caller, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", validationError(msgPromptRequired)
	}

	return s.run(ctx, caller, operation{
		feature:      model.FeatureBlogTitle,
		creationType: model.CreationBlogTitle,
		prompt:       prompt,
		invoke: func(ctx context.Context) (string, error) {
			return s.complete(ctx, prompt, BlogTitleMaxTokens)
		},
	})
}

// GenerateImage renders prompt, stores the image and returns its URL.
func (s *GenerationService) GenerateImage(ctx context.Context, caller *model.Caller, input ImageInput) (string, error) {
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return "", validationError(msgPromptRequired)
	}

	return s.run(ctx, caller, operation{
		feature:      model.FeatureImage,
		creationType: model.CreationImage,
		prompt:       prompt,
		publish:      input.Publish,
		invoke: func(ctx context.Context) (string, error) {
			var img []byte
			err := s.callExternal(ctx, serviceImage, func(ctx context.Context) error {
				var err error
				img, err = s.images.GenerateImage(ctx, prompt)
				return err
			})
			if err != nil {
				return "", err
			}

			obj, err := s.upload(ctx, img, storage.UploadOptions{ContentType: "image/png"})
			if err != nil {
				return "", err
			}
			return obj.SecureURL, nil
		},
	})
}

// RemoveBackground uploads image with background removal and returns its URL.
func (s *GenerationService) RemoveBackground(ctx context.Context, caller *model.Caller, image []byte) (string, error) {
	if err := s.validateImage(image); err != nil {
		return "", err
	}

	return s.run(ctx, caller, operation{
		feature:      model.FeatureRemoveBackground,
		creationType: model.CreationImage,
		prompt:       PromptRemoveBackground,
		invoke: func(ctx context.Context) (string, error) {
			obj, err := s.upload(ctx, image, storage.UploadOptions{
				Transform: &storage.Transform{Effect: storage.EffectBackgroundRemoval},
			})
			if err != nil {
				return "", err
			}
			return obj.SecureURL, nil
		},
	})
}

// RemoveObject uploads image and returns a URL that erases object from it.
// object must be a single word.
func (s *GenerationService) RemoveObject(ctx context.Context, caller *model.Caller, image []byte, object string) (string, error) {
	if err := s.validateImage(image); err != nil {
		return "", err
	}

	object = strings.TrimSpace(object)
	transform := storage.Transform{Effect: storage.EffectGenerativeRemove, Prompt: object}
	if err := transform.Validate(); err != nil {
		return "", validationError(msgObjectInvalid)
	}

	return s.run(ctx, caller, operation{
		feature:      model.FeatureRemoveObject,
		creationType: model.CreationImage,
		prompt:       fmt.Sprintf("Removed %s from image", object),
		invoke: func(ctx context.Context) (string, error) {
			obj, err := s.upload(ctx, image, storage.UploadOptions{})
			if err != nil {
				return "", err
			}

			url, err := s.storage.URLFor(obj.PublicID, transform)
			if err != nil {
				return "", s.externalError(serviceStorage, err)
			}
			return url, nil
		},
	})
}

// ResumeTooLarge is the validation failure for a resume over limit bytes.
func ResumeTooLarge(limit int64) error {
	return validationError(fmt.Sprintf(msgResumeTooLarge, limit>>20))
}

// ImageTooLarge is the validation failure for an image over limit bytes.
func ImageTooLarge(limit int64) error {
	return validationError(fmt.Sprintf(msgImageTooLarge, limit>>20))
}

// ReviewResume extracts the text of a PDF resume and reviews it.
func (s *GenerationService) ReviewResume(ctx context.Context, caller *model.Caller, resume []byte) (string, error) {
	if len(resume) == 0 {
		return "", validationError(msgResumeRequired)
	}
	if int64(len(resume)) > s.cfg.MaxResumeSize {
		return "", ResumeTooLarge(s.cfg.MaxResumeSize)
	}

	return s.run(ctx, caller, operation{
		feature:      model.FeatureResumeReview,
		creationType: model.CreationResumeReview,
		prompt:       PromptResumeReview,
		invoke: func(ctx context.Context) (string, error) {
			var text string
			err := s.callExternal(ctx, serviceExtractor, func(ctx context.Context) error {
				var err error
				text, err = s.extractor.ExtractText(ctx, resume)
				return err
			})
			if err != nil {
				var svcErr *Error
				if errors.As(err, &svcErr) {
					svcErr.Message = msgResumeUnreadable
				}
				return "", err
			}

			return s.complete(ctx, fmt.Sprintf(resumeReviewTemplate, text), ResumeMaxTokens)
		},
	})
}

// operation is one gated generation.
type operation struct {
	feature      model.Feature
	creationType model.CreationType
	prompt       string
	publish      bool
	invoke       func(ctx context.Context) (string, error)
}

// run authorizes the caller, invokes the operation, persists the result and
// records usage. Inputs are validated by the caller of run.
func (s *GenerationService) run(ctx context.Context, caller *model.Caller, op operation) (string, error) {
	feature := string(op.feature)

	decision := s.gate.AuthorizeFeature(op.feature, caller.Plan, caller.FreeUsage)
	s.metrics.IncGateDecision(feature, decision.Allowed)
	if !decision.Allowed {
		s.metrics.IncGeneration(feature, metrics.StatusDenied)
		s.logger.InfoContext(ctx, "usage_denied",
			slog.String("user_id", caller.UserID),
			slog.String("operation", feature),
			slog.Int("free_usage", caller.FreeUsage),
		)
		return "", &Error{Kind: ErrQuotaExceeded, Message: decision.Message, Stage: StageAuthorizing}
	}

	content, err := op.invoke(ctx)
	if err != nil {
		s.metrics.IncGeneration(feature, metrics.StatusFailed)
		return "", err
	}

	creation, err := s.recorder.PersistCreation(ctx, caller.UserID, op.prompt, content, op.creationType, op.publish)
	if err != nil {
		s.metrics.IncGeneration(feature, metrics.StatusFailed)
		return "", &Error{Kind: ErrPersistence, Message: msgPersistFailure, Stage: StagePersisting, Err: err}
	}

	if err := s.recorder.RecordUsage(ctx, caller); err != nil {
		// The creation is stored; a lost increment only loosens the soft quota.
		s.metrics.IncUsageIncrement(metrics.StatusFailed)
		s.logger.WarnContext(ctx, "usage increment failed",
			slog.String("user_id", caller.UserID),
			slog.String("operation", feature),
			slog.String("creation_id", creation.ID),
			slog.String("error", err.Error()),
		)
	} else if !caller.Plan.IsPremium() {
		s.metrics.IncUsageIncrement(metrics.StatusSuccess)
	}

	s.metrics.IncGeneration(feature, metrics.StatusSuccess)
	s.logger.InfoContext(ctx, "creation_recorded",
		slog.String("user_id", caller.UserID),
		slog.String("operation", feature),
		slog.String("creation_id", creation.ID),
		slog.String("plan", string(caller.Plan)),
	)

	return content, nil
}

func (s *GenerationService) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var content string
	err := s.callExternal(ctx, serviceLLM, func(ctx context.Context) error {
		var err error
		content, err = s.text.Complete(ctx, prompt, maxTokens, Temperature)
		return err
	})
	return content, err
}

func (s *GenerationService) upload(ctx context.Context, data []byte, opts storage.UploadOptions) (*storage.Object, error) {
	var obj *storage.Object
	err := s.callExternal(ctx, serviceStorage, func(ctx context.Context) error {
		var err error
		obj, err = s.storage.Upload(ctx, data, opts)
		return err
	})
	return obj, err
}

// callExternal runs fn under the per-call timeout and reports failures,
// including timeouts, as ErrExternalService.
func (s *GenerationService) callExternal(ctx context.Context, service string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalCallTimeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	s.metrics.ObserveExternalCall(service, time.Since(start), err != nil)

	if err != nil {
		return s.externalError(service, err)
	}
	return nil
}

func (s *GenerationService) externalError(service string, err error) *Error {
	return &Error{
		Kind:    ErrExternalService,
		Message: msgExternalFailure,
		Stage:   StageInvoking,
		Err:     fmt.Errorf("%s: %w", service, err),
	}
}

func (s *GenerationService) validateImage(image []byte) error {
	if len(image) == 0 {
		return validationError(msgImageRequired)
	}
	if int64(len(image)) > s.cfg.MaxImageSize {
		return ImageTooLarge(s.cfg.MaxImageSize)
	}
	return nil
}
