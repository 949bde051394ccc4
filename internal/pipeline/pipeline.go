// Package pipeline drives a video-generation request through its ordered
// stages: script, then images, then video assembly. A run either reaches
// complete with a full artifact or terminates at error; persistence of the
// finished artifact is a best-effort side effect that never reverts a
// completed run.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/edustack/edustack/internal/genai"
	"github.com/edustack/edustack/internal/persist"
	"github.com/edustack/edustack/internal/stats"
	"github.com/edustack/edustack/internal/video"
	"github.com/pkg/errors"
)

// State is the stage a run is currently in. States only advance forward,
// except into the terminal error state from any non-terminal state.
type State string

const (
	StateIdle             State = "idle"
	StateGeneratingScript State = "generating-script"
	StateGeneratingImages State = "generating-images"
	StateGeneratingVideo  State = "generating-video"
	StateComplete         State = "complete"
	StateError            State = "error"
)

// Terminal reports whether no further automatic transition occurs.
func (s State) Terminal() bool { return s == StateComplete || s == StateError }

var (
	ErrEmptyTopic  = errors.New("pipeline: topic is required")
	ErrMissingUser = errors.New("pipeline: user id is required")
)

// Run is the in-memory state of one generation request. It is never
// persisted; it lives for exactly one run and is discarded when a new run
// starts.
type Run struct {
	UserID string `json:"-"`
	Topic  string `json:"topic"`
	State  State  `json:"state"`

	Script   string   `json:"script,omitempty"`
	Images   []string `json:"images,omitempty"`
	VideoURL string   `json:"video_url,omitempty"`

	Error string `json:"error,omitempty"`

	// Side-effect bookkeeping, filled on complete.
	VideoDocID  string          `json:"video_doc_id,omitempty"`
	SaveOutcome persist.Outcome `json:"save_outcome,omitempty"`
	StatOutcome persist.Outcome `json:"stat_outcome,omitempty"`

	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

func validate(userID, topic string) error {
	if userID == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(topic) == "" {
		return ErrEmptyTopic
	}
	return nil
}

// Engine executes runs. Stages run strictly sequentially; independent runs
// share no mutable state.
type Engine struct {
	gen      genai.Generator
	videos   *video.Store
	counters *stats.Counters
	log      *slog.Logger
}

func NewEngine(gen genai.Generator, videos *video.Store, counters *stats.Counters, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{gen: gen, videos: videos, counters: counters, log: logger}
}

// Execute runs the full pipeline for one request. A non-nil error is
// returned only for inputs rejected before any stage begins; the returned
// run stays idle in that case. Stage failures are terminal states on the
// run itself, not errors. observe, when non-nil, is called with a snapshot
// after every transition.
func (e *Engine) Execute(ctx context.Context, userID, topic string, observe func(Run)) (Run, error) {
	run := Run{UserID: userID, Topic: topic, State: StateIdle}
	if err := validate(userID, topic); err != nil {
		return run, err
	}

	notify := func() {
		if observe != nil {
			observe(run)
		}
	}

	run.StartedAt = time.Now().UTC()
	run.State = StateGeneratingScript
	notify()

	script, err := e.gen.GenerateText(ctx, topic)
	if err != nil {
		return e.fail(run, "script", err, notify), nil
	}
	run.Script = script

	run.State = StateGeneratingImages
	notify()

	images, err := e.gen.GenerateImages(ctx, script)
	if err != nil {
		return e.fail(run, "images", err, notify), nil
	}
	run.Images = images

	run.State = StateGeneratingVideo
	notify()

	videoURL, err := e.gen.GenerateVideo(ctx, script, images)
	if err != nil {
		return e.fail(run, "video", err, notify), nil
	}
	run.VideoURL = videoURL

	run.State = StateComplete
	run.FinishedAt = time.Now().UTC()
	e.persistArtifact(ctx, &run)
	notify()
	return run, nil
}

// fail moves the run to the terminal error state, keeping partial outputs
// for display. There is no automatic retry; a retry is a new run.
func (e *Engine) fail(run Run, stage string, err error, notify func()) Run {
	e.log.Warn("generation stage failed", "stage", stage, "topic", run.Topic, "err", err)
	run.State = StateError
	run.Error = "An error occurred while generating your video. Please try again."
	run.FinishedAt = time.Now().UTC()
	notify()
	return run
}

// persistArtifact saves the finished video and bumps the user's counter.
// Both are best-effort; the run stays complete whatever their outcomes.
func (e *Engine) persistArtifact(ctx context.Context, run *Run) {
	res, err := e.videos.Save(ctx, video.GeneratedVideo{
		UserID:   run.UserID,
		Title:    run.Topic,
		Script:   run.Script,
		Images:   run.Images,
		VideoURL: run.VideoURL,
	})
	if err != nil {
		// Save only errors on a missing user id, which validate rules out.
		e.log.Warn("video save rejected", "err", err)
		run.SaveOutcome = persist.OutcomeFailed
	} else {
		run.VideoDocID = res.ID
		run.SaveOutcome = res.Outcome
	}

	run.StatOutcome = e.counters.Increment(ctx, run.UserID, stats.CounterVideosGenerated)
}
