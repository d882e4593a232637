package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"

	"github.com/quickai/quickai/internal/httpclient"
	"github.com/quickai/quickai/internal/model"
)

// DefaultClerkAPIURL is the Clerk Backend API base URL. The SDK adds the
// version segment itself.
const DefaultClerkAPIURL = "https://api.clerk.com"

// ClerkStore keeps the plan in public metadata and the free usage
// counter in private metadata of the Clerk user.
//
// IncrementUsage is a read-modify-write: concurrent increments for the
// same user can be lost. Use RedisStore when that matters.
type ClerkStore struct {
	users *user.Client
}

// NewClerkStore creates a ClerkStore backed by the Clerk users API.
func NewClerkStore(baseURL, secretKey string, client *http.Client) (*ClerkStore, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("clerk secret key is required")
	}
	if baseURL == "" {
		baseURL = DefaultClerkAPIURL
	}

	config := &clerk.ClientConfig{}
	config.Key = clerk.String(secretKey)
	config.URL = clerk.String(apiRoot(baseURL))
	config.HTTPClient = client

	return &ClerkStore{users: user.NewClient(config)}, nil
}

type publicMetadata struct {
	Plan string `json:"plan"`
}

type privateMetadata struct {
	FreeUsage int `json:"free_usage"`
}

// Get reads the caller's plan and free usage.
func (s *ClerkStore) Get(ctx context.Context, userID string) (*model.Caller, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, clerkError(err)
	}

	var pub publicMetadata
	if err := decodeMetadata(u.PublicMetadata, &pub); err != nil {
		return nil, fmt.Errorf("failed to decode public metadata: %w", err)
	}
	var priv privateMetadata
	if err := decodeMetadata(u.PrivateMetadata, &priv); err != nil {
		return nil, fmt.Errorf("failed to decode private metadata: %w", err)
	}

	id := u.ID
	if id == "" {
		id = userID
	}
	return &model.Caller{
		UserID:    id,
		Plan:      model.ParsePlan(pub.Plan),
		FreeUsage: priv.FreeUsage,
	}, nil
}

// IncrementUsage adds one to the stored counter and returns the new value.
func (s *ClerkStore) IncrementUsage(ctx context.Context, userID string) (int, error) {
	caller, err := s.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	next := caller.FreeUsage + 1
	if err := s.setFreeUsage(ctx, userID, next); err != nil {
		return 0, err
	}
	return next, nil
}

// ResetUsage sets the stored counter to zero.
func (s *ClerkStore) ResetUsage(ctx context.Context, userID string) error {
	return s.setFreeUsage(ctx, userID, 0)
}

// setFreeUsage patches private metadata. Clerk merges the patch into the
// existing metadata, so other private keys survive.
func (s *ClerkStore) setFreeUsage(ctx context.Context, userID string, value int) error {
	raw, err := json.Marshal(privateMetadata{FreeUsage: value})
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	patch := json.RawMessage(raw)

	if _, err := s.users.UpdateMetadata(ctx, userID, &user.UpdateMetadataParams{
		PrivateMetadata: &patch,
	}); err != nil {
		return clerkError(err)
	}
	return nil
}

// apiRoot strips a trailing version segment so that CLERK_API_URL values
// copied from the dashboard ("https://api.clerk.com/v1") keep working.
func apiRoot(baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return strings.TrimSuffix(baseURL, "/v1")
}

func decodeMetadata(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// clerkError maps SDK API errors onto ErrUserNotFound and StatusError.
func clerkError(err error) error {
	var apiErr *clerk.APIErrorResponse
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("clerk request failed: %w", err)
	}
	if apiErr.HTTPStatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	return &httpclient.StatusError{
		Service:    "clerk",
		StatusCode: apiErr.HTTPStatusCode,
		Body:       apiErr.Error(),
	}
}
