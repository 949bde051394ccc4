package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/edustack/edustack/internal/docstore"
	"github.com/edustack/edustack/internal/genai"
	"github.com/edustack/edustack/internal/persist"
	"github.com/edustack/edustack/internal/stats"
	"github.com/edustack/edustack/internal/video"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var errService = errors.New("generative service unavailable")

// fakeGen wraps the canned provider with per-stage failure injection and an
// optional gate that blocks the script stage until released.
type fakeGen struct {
	canned genai.Canned

	failText   bool
	failImages bool
	failVideo  bool

	gate chan struct{}
}

func (g *fakeGen) GenerateText(ctx context.Context, prompt string) (string, error) {
	if g.gate != nil {
		<-g.gate
	}
	if g.failText {
		return "", errService
	}
	return g.canned.GenerateText(ctx, prompt)
}

func (g *fakeGen) GenerateImages(ctx context.Context, script string) ([]string, error) {
	if g.failImages {
		return nil, errService
	}
	return g.canned.GenerateImages(ctx, script)
}

func (g *fakeGen) GenerateVideo(ctx context.Context, script string, images []string) (string, error) {
	if g.failVideo {
		return "", errService
	}
	return g.canned.GenerateVideo(ctx, script, images)
}

type failStore struct {
	mem        *docstore.Memory
	failCreate bool
	failSet    bool
}

func newFailStore() *failStore { return &failStore{mem: docstore.NewMemory()} }

func (s *failStore) CreateDocument(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	if s.failCreate {
		return "", errors.New("store unavailable")
	}
	return s.mem.CreateDocument(ctx, collection, fields)
}

func (s *failStore) GetDocument(ctx context.Context, collection, id string) (docstore.Fields, error) {
	return s.mem.GetDocument(ctx, collection, id)
}

func (s *failStore) SetDocument(ctx context.Context, collection, id string, fields docstore.Fields, merge bool) error {
	if s.failSet {
		return errors.New("store unavailable")
	}
	return s.mem.SetDocument(ctx, collection, id, fields, merge)
}

func (s *failStore) QueryDocuments(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	return s.mem.QueryDocuments(ctx, collection, q)
}

func newEngine(gen genai.Generator, store docstore.Store) (*Engine, *stats.Counters, *video.Store) {
	facade := persist.New(store, nil)
	counters := stats.NewCounters(facade, nil)
	videos := video.NewStore(facade)
	return NewEngine(gen, videos, counters, nil), counters, videos
}

func TestExecute_CompletesWithFullArtifact(t *testing.T) {
	store := newFailStore()
	engine, counters, videos := newEngine(&fakeGen{}, store)

	var seen []State
	run, err := engine.Execute(context.Background(), "u1", "quantum physics", func(r Run) {
		seen = append(seen, r.State)
	})
	require.NoError(t, err)

	require.Equal(t, StateComplete, run.State)
	require.NotEmpty(t, run.Script)
	require.Len(t, run.Images, 4)
	require.NotEmpty(t, run.VideoURL)
	require.Empty(t, run.Error)

	require.Equal(t, []State{
		StateGeneratingScript,
		StateGeneratingImages,
		StateGeneratingVideo,
		StateComplete,
	}, seen)

	// completion persisted the artifact and bumped the counter
	require.Equal(t, persist.OutcomeCommitted, run.SaveOutcome)
	require.NotEmpty(t, run.VideoDocID)

	saved := videos.List(context.Background(), "u1")
	require.Len(t, saved, 1)
	require.Equal(t, "quantum physics", saved[0].Title)

	s, found := counters.Get(context.Background(), "u1")
	require.True(t, found)
	require.Equal(t, 1, s.TotalVideosGenerated)
}

func TestExecute_StageFailureIsTerminal(t *testing.T) {
	store := newFailStore()
	engine, counters, videos := newEngine(&fakeGen{failImages: true}, store)

	var seen []State
	run, err := engine.Execute(context.Background(), "u1", "history of rome", func(r Run) {
		seen = append(seen, r.State)
	})
	require.NoError(t, err)

	require.Equal(t, StateError, run.State)
	require.NotEmpty(t, run.Error)
	require.NotEmpty(t, run.Script, "partial output is retained for display")
	require.Empty(t, run.Images)
	require.Empty(t, run.VideoURL)

	require.Equal(t, []State{StateGeneratingScript, StateGeneratingImages, StateError}, seen)

	// no persistence side effects for a failed run
	require.Empty(t, videos.List(context.Background(), "u1"))
	_, found := counters.Get(context.Background(), "u1")
	require.False(t, found)
}

func TestExecute_RejectsInvalidInputBeforeStages(t *testing.T) {
	engine, _, _ := newEngine(&fakeGen{failText: true}, newFailStore())

	run, err := engine.Execute(context.Background(), "u1", "   ", nil)
	require.ErrorIs(t, err, ErrEmptyTopic)
	require.Equal(t, StateIdle, run.State)

	run, err = engine.Execute(context.Background(), "", "ai", nil)
	require.ErrorIs(t, err, ErrMissingUser)
	require.Equal(t, StateIdle, run.State)
}

func TestExecute_PersistenceFailureKeepsComplete(t *testing.T) {
	store := newFailStore()
	store.failCreate = true
	store.failSet = true
	engine, _, _ := newEngine(&fakeGen{}, store)

	run, err := engine.Execute(context.Background(), "u1", "science basics", nil)
	require.NoError(t, err)

	require.Equal(t, StateComplete, run.State)
	require.Equal(t, persist.OutcomeDegraded, run.SaveOutcome)
	require.True(t, persist.IsFallbackID(run.VideoDocID))
	require.Equal(t, persist.OutcomeFailed, run.StatOutcome)
}

func waitForTerminal(t *testing.T, r *Runner, userID string) Run {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if run := r.Snapshot(userID); run.State.Terminal() && !r.Busy(userID) {
			return run
		}
		select {
		case <-deadline:
			t.Fatalf("run did not reach a terminal state, last state %q", r.Snapshot(userID).State)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRunner_RejectsConcurrentStart(t *testing.T) {
	gen := &fakeGen{gate: make(chan struct{})}
	engine, _, _ := newEngine(gen, newFailStore())
	r := NewRunner(engine, nil, nil)

	require.NoError(t, r.Start(context.Background(), "u1", "programming"))
	require.True(t, r.Busy("u1"))

	err := r.Start(context.Background(), "u1", "another topic")
	require.ErrorIs(t, err, ErrBusy)

	close(gen.gate)
	run := waitForTerminal(t, r, "u1")
	require.Equal(t, StateComplete, run.State)
}

func TestRunner_StateIsScopedPerUser(t *testing.T) {
	gen := &fakeGen{gate: make(chan struct{})}
	engine, _, _ := newEngine(gen, newFailStore())
	r := NewRunner(engine, nil, nil)

	require.NoError(t, r.Start(context.Background(), "user-a", "artificial intelligence"))

	// user-a's in-flight run is invisible to user-b, who can start their own
	require.False(t, r.Busy("user-b"))
	require.Equal(t, StateIdle, r.Snapshot("user-b").State)
	require.Empty(t, r.Snapshot("user-b").Topic)
	require.NoError(t, r.Start(context.Background(), "user-b", "world history"))

	close(gen.gate)
	runA := waitForTerminal(t, r, "user-a")
	runB := waitForTerminal(t, r, "user-b")

	require.Equal(t, StateComplete, runA.State)
	require.Equal(t, "artificial intelligence", runA.Topic)
	require.Equal(t, StateComplete, runB.State)
	require.Equal(t, "world history", runB.Topic)
}

func TestRunner_InvalidInputDoesNotFlipBusy(t *testing.T) {
	engine, _, _ := newEngine(&fakeGen{}, newFailStore())
	r := NewRunner(engine, nil, nil)

	require.ErrorIs(t, r.Start(context.Background(), "u1", ""), ErrEmptyTopic)
	require.False(t, r.Busy("u1"))
	require.Equal(t, StateIdle, r.Snapshot("u1").State)
}

type recordingSink struct {
	runs []Run
}

func (s *recordingSink) SaveRunSnapshot(_ context.Context, _ string, run Run) error {
	s.runs = append(s.runs, run)
	return nil
}

func TestRunner_PublishesSnapshots(t *testing.T) {
	engine, _, _ := newEngine(&fakeGen{}, newFailStore())
	sink := &recordingSink{}
	r := NewRunner(engine, sink, nil)

	require.NoError(t, r.Start(context.Background(), "u1", "ai"))
	run := waitForTerminal(t, r, "u1")

	require.Equal(t, StateComplete, run.State)
	require.NotEmpty(t, sink.runs)
	require.Equal(t, StateComplete, sink.runs[len(sink.runs)-1].State)
}
