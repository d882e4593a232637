package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickai/quickai/internal/metrics"
	"github.com/quickai/quickai/internal/model"
	"github.com/quickai/quickai/internal/storage"
	"github.com/quickai/quickai/internal/testutil"
	"github.com/quickai/quickai/internal/usage"
)

type fixture struct {
	svc        *GenerationService
	identities *testutil.MemoryIdentityStore
	creations  *testutil.MemoryCreationStore
	text       *testutil.StubTextGenerator
	images     *testutil.StubImageGenerator
	storage    *testutil.StubStorage
	extractor  *testutil.StubExtractor
	metrics    *metrics.InMemoryRecorder
}

type fixtureOption func(*GenerationConfig, *[]model.Feature)

func withTimeout(d time.Duration) fixtureOption {
	return func(cfg *GenerationConfig, _ *[]model.Feature) { cfg.ExternalCallTimeout = d }
}

func withPremiumOnly(features ...model.Feature) fixtureOption {
	return func(_ *GenerationConfig, premium *[]model.Feature) { *premium = features }
}

func newFixture(t *testing.T, callers []*model.Caller, opts ...fixtureOption) *fixture {
	t.Helper()

	cfg := GenerationConfig{}
	var premiumOnly []model.Feature
	for _, opt := range opts {
		opt(&cfg, &premiumOnly)
	}

	f := &fixture{
		identities: testutil.NewMemoryIdentityStore(callers...),
		creations:  testutil.NewMemoryCreationStore(),
		text:       &testutil.StubTextGenerator{Text: "Hello"},
		images:     &testutil.StubImageGenerator{Image: []byte("png")},
		storage:    &testutil.StubStorage{},
		extractor:  &testutil.StubExtractor{Text: "Jane Doe, Go engineer"},
		metrics:    metrics.NewInMemory(),
	}

	f.svc = NewGenerationService(GenerationDeps{
		Gate:      usage.NewGate(usage.DefaultFreeLimit, premiumOnly...),
		Recorder:  usage.NewRecorder(f.identities, f.creations),
		Text:      f.text,
		Images:    f.images,
		Storage:   f.storage,
		Extractor: f.extractor,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   f.metrics,
	}, cfg)

	return f
}

func (f *fixture) caller(t *testing.T, userID string) *model.Caller {
	t.Helper()
	c, err := f.identities.Get(context.Background(), userID)
	require.NoError(t, err)
	return c
}

func (f *fixture) externalCalls() int {
	return f.text.CallCount() + f.images.CallCount() + f.storage.UploadCount() + f.storage.URLCalls + f.extractor.Calls
}

func TestGenerateArticle_FreeCallerReachesLimit(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 9)})

	content, err := f.svc.GenerateArticle(context.Background(), f.caller(t, "u1"), ArticleInput{Prompt: "Write about Go"})
	require.NoError(t, err)
	assert.Equal(t, "Hello", content)

	records := f.creations.All()
	require.Len(t, records, 1)
	assert.Equal(t, model.CreationArticle, records[0].Type)
	assert.Equal(t, "u1", records[0].UserID)
	assert.Equal(t, "Write about Go", records[0].Prompt)
	assert.Equal(t, "Hello", records[0].Content)
	assert.False(t, records[0].Publish)

	assert.Equal(t, 10, f.identities.FreeUsage("u1"))

	require.Len(t, f.text.Calls, 1)
	assert.Equal(t, testutil.CompleteCall{Prompt: "Write about Go", MaxTokens: DefaultArticleLength, Temperature: Temperature}, f.text.Calls[0])

	snap := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.Generations["article/success"])
	assert.Equal(t, uint64(1), snap.UsageIncrements)
}

func TestGenerateBlogTitle_DeniedAtLimit(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 10)})

	_, err := f.svc.GenerateBlogTitle(context.Background(), f.caller(t, "u1"), "golang")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, "QUOTA_EXCEEDED", Code(err))
	assert.Equal(t, "Limit reached. Upgrade to continue.", Message(err))
	assert.Equal(t, StageAuthorizing, Stage(err))

	assert.Empty(t, f.creations.All())
	assert.Equal(t, 10, f.identities.FreeUsage("u1"))
	assert.Zero(t, f.identities.Increments)
	assert.Zero(t, f.externalCalls())
}

func TestGenerateImage_PremiumPublishes(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("p1", model.PlanPremium, 0)})

	url, err := f.svc.GenerateImage(context.Background(), f.caller(t, "p1"), ImageInput{Prompt: "a cat in space", Publish: true})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/obj1", url)

	records := f.creations.All()
	require.Len(t, records, 1)
	assert.True(t, records[0].Publish)
	assert.Equal(t, model.CreationImage, records[0].Type)
	assert.Equal(t, url, records[0].Content)

	assert.Equal(t, 0, f.identities.FreeUsage("p1"))
	assert.Zero(t, f.identities.Increments)

	assert.Equal(t, []string{"a cat in space"}, f.images.Prompts)
	require.Len(t, f.storage.Uploads, 1)
	assert.Equal(t, []byte("png"), f.storage.Uploads[0].Data)
}

func TestRemoveObject_MultiWordObjectRejected(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 0)})

	_, err := f.svc.RemoveObject(context.Background(), f.caller(t, "u1"), []byte("img"), "watch chair")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "VALIDATION_FAILED", Code(err))

	assert.Zero(t, f.storage.UploadCount())
	assert.Zero(t, f.storage.URLCalls)
	assert.Empty(t, f.creations.All())
	assert.Equal(t, 0, f.identities.FreeUsage("u1"))
}

func TestRemoveObject(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 0)})

	url, err := f.svc.RemoveObject(context.Background(), f.caller(t, "u1"), []byte("img"), " watch ")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/e_gen_remove:prompt_watch/obj1", url)

	records := f.creations.All()
	require.Len(t, records, 1)
	assert.Equal(t, "Removed watch from image", records[0].Prompt)
	assert.Equal(t, url, records[0].Content)
	assert.Nil(t, f.storage.Uploads[0].Opts.Transform)
	assert.Equal(t, 1, f.identities.FreeUsage("u1"))
}

func TestRemoveBackground(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 2)})

	url, err := f.svc.RemoveBackground(context.Background(), f.caller(t, "u1"), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/e_background_removal/obj1", url)

	require.Len(t, f.storage.Uploads, 1)
	require.NotNil(t, f.storage.Uploads[0].Opts.Transform)
	assert.Equal(t, storage.EffectBackgroundRemoval, f.storage.Uploads[0].Opts.Transform.Effect)

	records := f.creations.All()
	require.Len(t, records, 1)
	assert.Equal(t, PromptRemoveBackground, records[0].Prompt)
	assert.Equal(t, model.CreationImage, records[0].Type)
	assert.Equal(t, 3, f.identities.FreeUsage("u1"))
}

func TestReviewResume(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 0)})
	f.text.Text = "Strong resume."

	content, err := f.svc.ReviewResume(context.Background(), f.caller(t, "u1"), []byte("%PDF-1.4 ..."))
	require.NoError(t, err)
	assert.Equal(t, "Strong resume.", content)

	assert.Equal(t, 1, f.extractor.Calls)
	require.Len(t, f.text.Calls, 1)
	assert.Equal(t, ResumeMaxTokens, f.text.Calls[0].MaxTokens)
	assert.Contains(t, f.text.Calls[0].Prompt, "Jane Doe, Go engineer")

	records := f.creations.All()
	require.Len(t, records, 1)
	assert.Equal(t, model.CreationResumeReview, records[0].Type)
	assert.Equal(t, PromptResumeReview, records[0].Prompt)
}

func TestReviewResume_OversizedSkipsExtraction(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 0)})

	oversized := make([]byte, DefaultMaxResumeSize+1)
	_, err := f.svc.ReviewResume(context.Background(), f.caller(t, "u1"), oversized)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "File size is too large (max 5MB).", Message(err))

	assert.Zero(t, f.extractor.Calls)
	assert.Zero(t, f.text.CallCount())
}

func TestReviewResume_ExactlyAtLimitAccepted(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 0)})

	_, err := f.svc.ReviewResume(context.Background(), f.caller(t, "u1"), make([]byte, DefaultMaxResumeSize))
	require.NoError(t, err)
	assert.Equal(t, 1, f.extractor.Calls)
}

func TestDenyPreventsExternalCalls(t *testing.T) {
	testCases := []struct {
		name string
		run  func(svc *GenerationService, c *model.Caller) error
	}{
		{"article", func(svc *GenerationService, c *model.Caller) error {
			_, err := svc.GenerateArticle(context.Background(), c, ArticleInput{Prompt: "p"})
			return err
		}},
		{"blog title", func(svc *GenerationService, c *model.Caller) error {
			_, err := svc.GenerateBlogTitle(context.Background(), c, "p")
			return err
		}},
		{"image", func(svc *GenerationService, c *model.Caller) error {
			_, err := svc.GenerateImage(context.Background(), c, ImageInput{Prompt: "p"})
			return err
		}},
		{"remove background", func(svc *GenerationService, c *model.Caller) error {
			_, err := svc.RemoveBackground(context.Background(), c, []byte("img"))
			return err
		}},
		{"remove object", func(svc *GenerationService, c *model.Caller) error {
			_, err := svc.RemoveObject(context.Background(), c, []byte("img"), "cup")
			return err
		}},
		{"resume review", func(svc *GenerationService, c *model.Caller) error {
			_, err := svc.ReviewResume(context.Background(), c, []byte("%PDF-"))
			return err
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 12)})

			err := tc.run(f.svc, f.caller(t, "u1"))
			assert.ErrorIs(t, err, ErrQuotaExceeded)
			assert.Zero(t, f.externalCalls())
			assert.Empty(t, f.creations.All())
			assert.Zero(t, f.identities.Increments)
		})
	}
}

func TestPremiumAllowedAtAnyUsage(t *testing.T) {
	for _, usageCount := range []int{-5, 0, 10, 1 << 20} {
		f := newFixture(t, []*model.Caller{testutil.NewTestCaller("p1", model.PlanPremium, usageCount)})

		_, err := f.svc.GenerateBlogTitle(context.Background(), f.caller(t, "p1"), "go")
		require.NoError(t, err, "usage=%d", usageCount)
		assert.Zero(t, f.identities.Increments)
	}
}

func TestPremiumOnlyFeatureDeniesFreeCaller(t *testing.T) {
	f := newFixture(t, []*model.Caller{
		testutil.NewTestCaller("u1", model.PlanFree, 0),
		testutil.NewTestCaller("p1", model.PlanPremium, 0),
	}, withPremiumOnly(model.FeatureRemoveObject))

	_, err := f.svc.RemoveObject(context.Background(), f.caller(t, "u1"), []byte("img"), "cup")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, usage.MessagePremiumOnly, Message(err))
	assert.Zero(t, f.externalCalls())

	_, err = f.svc.RemoveObject(context.Background(), f.caller(t, "p1"), []byte("img"), "cup")
	assert.NoError(t, err)
}

func TestValidationRunsBeforeAuthorization(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 10)})

	_, err := f.svc.GenerateArticle(context.Background(), f.caller(t, "u1"), ArticleInput{Prompt: "   "})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.metrics.Snapshot().GateDenied)
}

func TestGenerateArticle_Length(t *testing.T) {
	testCases := []struct {
		name    string
		length  int
		want    int
		wantErr bool
	}{
		{"default", 0, DefaultArticleLength, false},
		{"explicit", 1200, 1200, false},
		{"capped", 100000, MaxArticleLength, false},
		{"negative", -1, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 0)})

			_, err := f.svc.GenerateArticle(context.Background(), f.caller(t, "u1"), ArticleInput{Prompt: "p", Length: tc.length})
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				assert.Zero(t, f.text.CallCount())
				return
			}
			require.NoError(t, err)
			require.Len(t, f.text.Calls, 1)
			assert.Equal(t, tc.want, f.text.Calls[0].MaxTokens)
		})
	}
}

func TestExternalFailure(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 3)})
	upstream := errors.New("upstream 503")
	f.text.Err = upstream

	_, err := f.svc.GenerateArticle(context.Background(), f.caller(t, "u1"), ArticleInput{Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExternalService)
	assert.ErrorIs(t, err, upstream)
	assert.Equal(t, "EXTERNAL_FAILURE", Code(err))
	assert.Equal(t, StageInvoking, Stage(err))

	assert.Empty(t, f.creations.All())
	assert.Equal(t, 3, f.identities.FreeUsage("u1"))

	snap := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.ExternalFailures["llm"])
	assert.Equal(t, uint64(1), snap.Generations["article/failed"])
}

func TestExternalTimeout(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 0)}, withTimeout(20*time.Millisecond))
	f.text.Block = true

	start := time.Now()
	_, err := f.svc.GenerateBlogTitle(context.Background(), f.caller(t, "u1"), "go")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.ErrorIs(t, err, ErrExternalService)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, f.creations.All())
	assert.Equal(t, 0, f.identities.FreeUsage("u1"))
}

func TestImageUploadFailureAfterGeneration(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 0)})
	f.storage.UploadErr = errors.New("cloudinary down")

	_, err := f.svc.GenerateImage(context.Background(), f.caller(t, "u1"), ImageInput{Prompt: "p"})
	assert.ErrorIs(t, err, ErrExternalService)
	assert.Equal(t, 1, f.images.CallCount())
	assert.Empty(t, f.creations.All())
	assert.Equal(t, 0, f.identities.FreeUsage("u1"))
}

func TestResumeExtractionFailure(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 0)})
	f.extractor.Err = errors.New("not a pdf")

	_, err := f.svc.ReviewResume(context.Background(), f.caller(t, "u1"), []byte("data"))
	assert.ErrorIs(t, err, ErrExternalService)
	assert.Equal(t, "Could not read text from the uploaded resume.", Message(err))
	assert.Zero(t, f.text.CallCount())
}

func TestPersistenceFailure(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 4)})
	f.creations.InsertErr = errors.New("db down")

	content, err := f.svc.GenerateArticle(context.Background(), f.caller(t, "u1"), ArticleInput{Prompt: "p"})
	require.Error(t, err)
	assert.Empty(t, content)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, "PERSISTENCE_FAILURE", Code(err))
	assert.Equal(t, StagePersisting, Stage(err))

	assert.Equal(t, 1, f.text.CallCount())
	assert.Equal(t, 4, f.identities.FreeUsage("u1"))
	assert.Zero(t, f.identities.Increments)
}

func TestUsageIncrementFailureStillSucceeds(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 4)})
	f.identities.IncrementErr = errors.New("clerk unavailable")

	content, err := f.svc.GenerateBlogTitle(context.Background(), f.caller(t, "u1"), "go")
	require.NoError(t, err)
	assert.Equal(t, "Hello", content)
	assert.Len(t, f.creations.All(), 1)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().UsageIncrementErrs)
}

func TestValidationErrors(t *testing.T) {
	f := newFixture(t, []*model.Caller{testutil.NewTestCaller("u1", model.PlanFree, 0)})
	c := f.caller(t, "u1")
	ctx := context.Background()

	_, err := f.svc.GenerateImage(ctx, c, ImageInput{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.RemoveBackground(ctx, c, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.RemoveBackground(ctx, c, make([]byte, DefaultMaxImageSize+1))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.RemoveObject(ctx, c, []byte("img"), "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.RemoveObject(ctx, c, nil, "cup")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.ReviewResume(ctx, c, nil)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, f.externalCalls())
	assert.Equal(t, 0, f.identities.FreeUsage("u1"))
}

func TestErrorHelpers(t *testing.T) {
	assert.Equal(t, "", Code(errors.New("plain")))
	assert.Equal(t, "Something went wrong. Please try again.", Message(errors.New("plain")))
	assert.Equal(t, "", Stage(errors.New("plain")))

	err := &Error{Kind: ErrCreationNotFound, Message: "Creation not found."}
	assert.Equal(t, "NOT_FOUND", Code(err))
	assert.True(t, strings.Contains(err.Error(), "Creation not found."))
}
