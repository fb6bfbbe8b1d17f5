package models

import (
	"time"

	"github.com/google/uuid"
)

// Video is shared video metadata. VideoURL and ImageURL hold blob store keys.
type Video struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	VideoURL    string    `json:"video_url"`
	ImageURL    string    `json:"image_url"`
	Tags        *string   `json:"tags"`
	SharedBy    uuid.UUID `json:"shared_by"`
	Likes       int       `json:"likes"`
	Dislikes    int       `json:"dislikes"`
	SharedAt    time.Time `json:"shared_at"`
}

// VideoListItem is a Video joined with its owner's email for feed listings.
type VideoListItem struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	VideoURL    string    `json:"video_url"`
	ImageURL    string    `json:"image_url"`
	Tags        *string   `json:"tags"`
	SharedBy    string    `json:"shared_by"`
	Likes       int       `json:"likes"`
	Dislikes    int       `json:"dislikes"`
	SharedAt    time.Time `json:"shared_at"`
}

// VideoPatch is a partial update; nil fields keep their stored value. An empty
// Description or Tags clears the field.
type VideoPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	VideoURL    *string `json:"video_url"`
	ImageURL    *string `json:"image_url"`
	Tags        *string `json:"tags"`
}

// Empty reports whether the patch changes nothing.
func (p VideoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.VideoURL == nil && p.ImageURL == nil && p.Tags == nil
}

// Apply returns a copy of v with the patch fields applied.
func (p VideoPatch) Apply(v Video) Video {
	if p.Title != nil {
		v.Title = *p.Title
	}
	if p.Description != nil {
		v.Description = nonEmpty(*p.Description)
	}
	if p.VideoURL != nil {
		v.VideoURL = *p.VideoURL
	}
	if p.ImageURL != nil {
		v.ImageURL = *p.ImageURL
	}
	if p.Tags != nil {
		v.Tags = nonEmpty(*p.Tags)
	}
	return v
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
