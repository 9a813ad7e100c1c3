package models

import (
	"time"

	"github.com/matlukowski/readTube-sub000/pkg/youtube"
)

// VideoRef identifies a source video. The ID never changes after creation;
// only the metadata columns are refreshed.
type VideoRef struct {
	ID              string     `json:"id" gorm:"primaryKey;size:11"`
	Title           string     `json:"title"`
	DurationSeconds *int       `json:"durationSeconds,omitempty"`
	ChannelName     string     `json:"channelName,omitempty"`
	HasCaptions     bool       `json:"hasCaptions"`
	RefreshedAt     *time.Time `json:"refreshedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (VideoRef) TableName() string {
	return "videos"
}

// NewVideoRef validates id and returns a reference without metadata.
func NewVideoRef(id string) (*VideoRef, error) {
	if err := youtube.ValidateVideoID(id); err != nil {
		return nil, err
	}
	return &VideoRef{ID: id}, nil
}

// Duration returns the known duration in seconds, or 0 when unknown.
func (v *VideoRef) Duration() int {
	if v == nil || v.DurationSeconds == nil {
		return 0
	}
	return *v.DurationSeconds
}

// SetDuration records a known duration; non-positive values clear it.
func (v *VideoRef) SetDuration(seconds int) {
	if seconds <= 0 {
		v.DurationSeconds = nil
		return
	}
	v.DurationSeconds = &seconds
}

// NeedsRefresh reports whether the metadata is older than ttl.
func (v *VideoRef) NeedsRefresh(ttl time.Duration, now time.Time) bool {
	if v.RefreshedAt == nil {
		return true
	}
	return now.Sub(*v.RefreshedAt) >= ttl
}
