// Package video persists finished generated videos.
package video

import (
	"context"
	"time"

	"github.com/edustack/edustack/internal/docstore"
	"github.com/edustack/edustack/internal/persist"
	"github.com/pkg/errors"
)

const Collection = "generatedVideos"

var ErrMissingUser = errors.New("video: user id is required")

// GeneratedVideo is created once at successful pipeline completion and is
// immutable thereafter.
type GeneratedVideo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Script    string    `json:"script"`
	Images    []string  `json:"images"`
	VideoURL  string    `json:"video_url"`
	Timestamp time.Time `json:"timestamp"`
}

type Store struct {
	facade *persist.Facade
}

func NewStore(facade *persist.Facade) *Store {
	return &Store{facade: facade}
}

// Save writes the finished artifact, best-effort.
func (s *Store) Save(ctx context.Context, v GeneratedVideo) (persist.WriteResult, error) {
	if v.UserID == "" {
		return persist.WriteResult{}, ErrMissingUser
	}
	res := s.facade.Create(ctx, Collection, docstore.Fields{
		"userId":    v.UserID,
		"title":     v.Title,
		"script":    v.Script,
		"images":    v.Images,
		"videoUrl":  v.VideoURL,
		"timestamp": s.facade.Now().UTC(),
	}, persist.FallbackPrefix)
	return res, nil
}

// List returns the user's most recent videos, newest first.
func (s *Store) List(ctx context.Context, userID string) []GeneratedVideo {
	docs := s.facade.Query(ctx, Collection, docstore.Query{
		Filters: []docstore.Filter{{Field: "userId", Op: "==", Value: userID}},
		OrderBy: "timestamp",
		Desc:    true,
		Limit:   10,
	})

	out := make([]GeneratedVideo, 0, len(docs))
	for _, d := range docs {
		out = append(out, GeneratedVideo{
			ID:        d.ID,
			UserID:    d.Fields.String("userId"),
			Title:     d.Fields.String("title"),
			Script:    d.Fields.String("script"),
			Images:    d.Fields.Strings("images"),
			VideoURL:  d.Fields.String("videoUrl"),
			Timestamp: d.Fields.Time("timestamp"),
		})
	}
	return out
}
