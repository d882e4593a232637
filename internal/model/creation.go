package model

import (
	"slices"
	"time"
)

// CreationType classifies a generated artifact.
type CreationType string

const (
	CreationArticle      CreationType = "article"
	CreationBlogTitle    CreationType = "blog-title"
	CreationImage        CreationType = "image"
	CreationResumeReview CreationType = "resume-review"
)

// IsValid checks if the creation type is known.
func (t CreationType) IsValid() bool {
	switch t {
	case CreationArticle, CreationBlogTitle, CreationImage, CreationResumeReview:
		return true
	}
	return false
}

// Creation is the persisted record of one successful generation.
type Creation struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Prompt    string       `json:"prompt"`
	Content   string       `json:"content"`
	Type      CreationType `json:"type"`
	Publish   bool         `json:"publish"`
	Likes     []string     `json:"likes"`
	CreatedAt time.Time    `json:"created_at"`
}

// IsLikedBy reports whether userID has liked the creation.
func (c *Creation) IsLikedBy(userID string) bool {
	return slices.Contains(c.Likes, userID)
}

// ToggleLike adds or removes userID from the likes and reports the new state.
func (c *Creation) ToggleLike(userID string) bool {
	if c.IsLikedBy(userID) {
		c.Likes = slices.DeleteFunc(c.Likes, func(id string) bool { return id == userID })
		return false
	}
	c.Likes = append(c.Likes, userID)
	return true
}
