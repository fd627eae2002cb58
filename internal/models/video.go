package models

import (
	"errors"
	"time"
)

// VideoRecord represents one creator upload from the video feed.
// Records are immutable once fetched; the collector may re-fetch the same
// video to refresh view counts, which replaces the row wholesale.
type VideoRecord struct {
	VideoID      string    `json:"video_id"`
	ChannelID    string    `json:"channel_id"`
	ChannelTitle string    `json:"channel_title"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// URL returns the canonical watch URL for the video.
func (v *VideoRecord) URL() string {
	return "https://youtube.com/watch?v=" + v.VideoID
}

// Validate checks that all video fields are valid
func (v *VideoRecord) Validate() error {
	if v.VideoID == "" {
		return errors.New("video ID must not be empty")
	}
	if v.ChannelID == "" {
		return errors.New("channel ID must not be empty")
	}
	if v.PublishedAt.IsZero() {
		return errors.New("published at must be set")
	}
	if v.ViewCount < 0 {
		return errors.New("view count must not be negative")
	}
	if v.LikeCount < 0 {
		return errors.New("like count must not be negative")
	}
	if v.FetchedAt.IsZero() {
		return errors.New("fetched at must be set")
	}
	return nil
}
