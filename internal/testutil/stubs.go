package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/quickai/quickai/internal/storage"
)

// CompleteCall records one TextGenerator call.
type CompleteCall struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// StubTextGenerator returns a canned completion.
type StubTextGenerator struct {
	mu    sync.Mutex
	Text  string
	Err   error
	Calls []CompleteCall
	// Block makes Complete wait for context cancellation.
	Block bool
}

// Complete records the call and returns Text or Err.
func (s *StubTextGenerator) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, CompleteCall{Prompt: prompt, MaxTokens: maxTokens, Temperature: temperature})
	s.mu.Unlock()

	if s.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, nil
}

// CallCount returns the number of calls.
func (s *StubTextGenerator) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

// StubImageGenerator returns canned image bytes.
type StubImageGenerator struct {
	mu      sync.Mutex
	Image   []byte
	Err     error
	Prompts []string
}

// GenerateImage records the prompt and returns Image or Err.
func (s *StubImageGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Image, nil
}

// CallCount returns the number of calls.
func (s *StubImageGenerator) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}

// UploadCall records one ObjectStorage upload.
type UploadCall struct {
	Data []byte
	Opts storage.UploadOptions
}

// StubStorage is an ObjectStorage that keeps uploads in memory.
type StubStorage struct {
	mu        sync.Mutex
	BaseURL   string
	UploadErr error
	URLErr    error
	Uploads   []UploadCall
	URLCalls  int
}

// Upload records the call and returns an object with a predictable URL.
func (s *StubStorage) Upload(ctx context.Context, data []byte, opts storage.UploadOptions) (*storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Uploads = append(s.Uploads, UploadCall{Data: data, Opts: opts})
	if s.UploadErr != nil {
		return nil, s.UploadErr
	}

	id := "obj" + strconv.Itoa(len(s.Uploads))
	url := s.base() + "/" + id
	if opts.Transform != nil {
		url = s.base() + "/e_" + string(opts.Transform.Effect) + "/" + id
	}
	return &storage.Object{PublicID: id, SecureURL: url}, nil
}

// URLFor renders a transformation URL in a Cloudinary-like shape.
func (s *StubStorage) URLFor(publicID string, t storage.Transform) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.URLCalls++
	if s.URLErr != nil {
		return "", s.URLErr
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	return s.base() + "/e_" + string(t.Effect) + ":prompt_" + t.Prompt + "/" + publicID, nil
}

// UploadCount returns the number of uploads.
func (s *StubStorage) UploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Uploads)
}

func (s *StubStorage) base() string {
	if s.BaseURL == "" {
		return "https://cdn.test"
	}
	return s.BaseURL
}

// StubExtractor returns canned document text.
type StubExtractor struct {
	mu    sync.Mutex
	Text  string
	Err   error
	Calls int
}

// ExtractText records the call and returns Text or Err.
func (s *StubExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, nil
}
