// Package jobs stores queued video-generation requests. Job rows are
// operational state and live in the relational database, unlike the content
// entities, which live in the remote document store.
package jobs

import "time"

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Job struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	UserID string `gorm:"size:128;index;not null"`
	Topic  string `gorm:"type:text;not null"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_user_idempo,unique" json:"idempotency_key"`

	Status Status `gorm:"type:varchar(16);index;not null"`

	// Filled when succeeded: the document id of the saved video, which may
	// be a fallback id when the store degraded during the run.
	VideoDocID *string `gorm:"size:128"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Job) TableName() string { return "video_jobs" }
