// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/quickai/quickai/internal/model"
)

// ArticleRequest is the body of POST /api/ai/generate-article.
type ArticleRequest struct {
	Prompt string `json:"prompt"`
	Length int    `json:"length,omitempty"`
}

// BlogTitleRequest is the body of POST /api/ai/generate-blog-title.
type BlogTitleRequest struct {
	Prompt string `json:"prompt"`
}

// ImageRequest is the body of POST /api/ai/generate-image.
type ImageRequest struct {
	Prompt  string `json:"prompt"`
	Publish bool   `json:"publish"`
}

// ToggleLikeRequest is the body of POST /api/user/toggle-like-creation.
type ToggleLikeRequest struct {
	ID string `json:"id"`
}

// Response is the envelope of generation, like and error responses.
type Response struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Liked   *bool  `json:"liked,omitempty"`
}

// CreationListResponse is returned by the creation listing routes.
type CreationListResponse struct {
	Success   bool               `json:"success"`
	Creations []CreationResponse `json:"creations"`
}

// CreationResponse represents a creation in API responses.
type CreationResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Prompt    string    `json:"prompt"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Publish   bool      `json:"publish"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
}

// ToCreationResponse converts a Creation model to its DTO.
func ToCreationResponse(c *model.Creation) CreationResponse {
	likes := c.Likes
	if likes == nil {
		likes = []string{}
	}
	return CreationResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Prompt:    c.Prompt,
		Content:   c.Content,
		Type:      string(c.Type),
		Publish:   c.Publish,
		Likes:     likes,
		CreatedAt: c.CreatedAt,
	}
}

// ToCreationList converts creations to DTOs. The result is never nil so an
// empty list encodes as [] rather than null.
func ToCreationList(creations []*model.Creation) []CreationResponse {
	out := make([]CreationResponse, 0, len(creations))
	for _, c := range creations {
		out = append(out, ToCreationResponse(c))
	}
	return out
}
