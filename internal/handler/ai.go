package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/quickai/quickai/internal/handler/dto"
	"github.com/quickai/quickai/internal/middleware"
	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/service"
)

// multipartOverhead is allowed on top of the file limit for form framing.
const multipartOverhead = 1 << 20

// Generator runs the gated AI operations.
type Generator interface {
	GenerateArticle(ctx context.Context, caller *model.Caller, input service.ArticleInput) (string, error)
	GenerateBlogTitle(ctx context.Context, caller *model.Caller, prompt string) (string, error)
	GenerateImage(ctx context.Context, caller *model.Caller, input service.ImageInput) (string, error)
	RemoveBackground(ctx context.Context, caller *model.Caller, image []byte) (string, error)
	RemoveObject(ctx context.Context, caller *model.Caller, image []byte, object string) (string, error)
	ReviewResume(ctx context.Context, caller *model.Caller, resume []byte) (string, error)
}

// AIHandler handles the /api/ai routes.
type AIHandler struct {
	svc           Generator
	logger        *slog.Logger
	maxImageSize  int64
	maxResumeSize int64
}

// NewAIHandler creates a new AIHandler. Uploads larger than the given
// limits are rejected by the service; the handler only bounds how much
// of the body it is willing to read.
func NewAIHandler(svc Generator, logger *slog.Logger, maxImageSize, maxResumeSize int64) *AIHandler {
	if maxImageSize <= 0 {
		maxImageSize = service.DefaultMaxImageSize
	}
	if maxResumeSize <= 0 {
		maxResumeSize = service.DefaultMaxResumeSize
	}
	return &AIHandler{
		svc:           svc,
		logger:        logger,
		maxImageSize:  maxImageSize,
		maxResumeSize: maxResumeSize,
	}
}

// GenerateArticle handles POST /api/ai/generate-article.
func (h *AIHandler) GenerateArticle(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req dto.ArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	content, err := h.svc.GenerateArticle(r.Context(), caller, service.ArticleInput{
		Prompt: req.Prompt,
		Length: req.Length,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, string(model.FeatureArticle), err)
		return
	}
	writeContent(w, content)
}

// GenerateBlogTitle handles POST /api/ai/generate-blog-title.
func (h *AIHandler) GenerateBlogTitle(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req dto.BlogTitleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	content, err := h.svc.GenerateBlogTitle(r.Context(), caller, req.Prompt)
	if err != nil {
		handleServiceError(w, r, h.logger, string(model.FeatureBlogTitle), err)
		return
	}
	writeContent(w, content)
}

// GenerateImage handles POST /api/ai/generate-image.
func (h *AIHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req dto.ImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	content, err := h.svc.GenerateImage(r.Context(), caller, service.ImageInput{
		Prompt:  req.Prompt,
		Publish: req.Publish,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, string(model.FeatureImage), err)
		return
	}
	writeContent(w, content)
}

// RemoveBackground handles POST /api/ai/remove-image-background.
// Expects a multipart form with an "image" file.
func (h *AIHandler) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	image, ok := h.readFile(w, r, "image", h.maxImageSize, model.FeatureRemoveBackground, service.ImageTooLarge)
	if !ok {
		return
	}

	content, err := h.svc.RemoveBackground(r.Context(), caller, image)
	if err != nil {
		handleServiceError(w, r, h.logger, string(model.FeatureRemoveBackground), err)
		return
	}
	writeContent(w, content)
}

// RemoveObject handles POST /api/ai/remove-image-object.
// Expects a multipart form with an "image" file and an "object" field.
func (h *AIHandler) RemoveObject(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	image, ok := h.readFile(w, r, "image", h.maxImageSize, model.FeatureRemoveObject, service.ImageTooLarge)
	if !ok {
		return
	}

	content, err := h.svc.RemoveObject(r.Context(), caller, image, r.FormValue("object"))
	if err != nil {
		handleServiceError(w, r, h.logger, string(model.FeatureRemoveObject), err)
		return
	}
	writeContent(w, content)
}

// ReviewResume handles POST /api/ai/resume-review.
// Expects a multipart form with a "resume" PDF file.
func (h *AIHandler) ReviewResume(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	resume, ok := h.readFile(w, r, "resume", h.maxResumeSize, model.FeatureResumeReview, service.ResumeTooLarge)
	if !ok {
		return
	}

	content, err := h.svc.ReviewResume(r.Context(), caller, resume)
	if err != nil {
		handleServiceError(w, r, h.logger, string(model.FeatureResumeReview), err)
		return
	}
	writeContent(w, content)
}

// readFile reads the named multipart file. A missing file yields nil data so
// the service can report it as a validation failure. At most limit+1 bytes
// are read so the service still sees that the file is oversized. A body too
// large to parse at all gets the same validation failure, built by tooLarge.
func (h *AIHandler) readFile(w http.ResponseWriter, r *http.Request, field string, limit int64, feature model.Feature, tooLarge func(int64) error) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*limit+multipartOverhead)

	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handleServiceError(w, r, h.logger, string(feature), tooLarge(limit))
			return nil, false
		}
		middleware.WriteJSONError(w, http.StatusBadRequest, "INVALID_FORM", "Expected a multipart form upload")
		return nil, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		middleware.WriteJSONError(w, http.StatusBadRequest, "INVALID_FORM", fmt.Sprintf("Could not read %q upload", field))
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		middleware.WriteJSONError(w, http.StatusBadRequest, "INVALID_FORM", fmt.Sprintf("Could not read %q upload", field))
		return nil, false
	}
	return data, true
}
