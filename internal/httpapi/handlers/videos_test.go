package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edustack/edustack/internal/docstore"
	"github.com/edustack/edustack/internal/genai"
	"github.com/edustack/edustack/internal/httpapi/middleware"
	"github.com/edustack/edustack/internal/persist"
	"github.com/edustack/edustack/internal/pipeline"
	"github.com/edustack/edustack/internal/stats"
	"github.com/edustack/edustack/internal/video"
	"github.com/gin-gonic/gin"
)

func newVideoTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	facade := persist.New(docstore.NewMemory(), nil)
	counters := stats.NewCounters(facade, nil)
	videos := video.NewStore(facade)
	engine := pipeline.NewEngine(genai.NewCanned(), videos, counters, nil)

	h := &Handler{
		Videos:   videos,
		Counters: counters,
		Runner:   pipeline.NewRunner(engine, nil, nil),
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if u := c.GetHeader("X-Test-User"); u != "" {
			c.Set(middleware.UserIDKey, u)
		}
		c.Next()
	})
	r.POST("/videos/generate", h.GenerateVideo)
	r.GET("/videos/generation", h.GetGeneration)
	return r
}

type generationResp struct {
	Data struct {
		Busy bool `json:"busy"`
		Run  struct {
			State  string `json:"state"`
			Topic  string `json:"topic"`
			Script string `json:"script"`
		} `json:"run"`
	} `json:"data"`
}

func getGeneration(t *testing.T, r *gin.Engine, user string) generationResp {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/videos/generation", nil)
	req.Header.Set("X-Test-User", user)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get generation: expected 200, got %d", w.Code)
	}
	var resp generationResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestGetGeneration_DoesNotLeakOtherUsersRun(t *testing.T) {
	r := newVideoTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/videos/generate",
		strings.NewReader(`{"topic":"artificial intelligence"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", "user-a")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("generate: expected 202, got %d", w.Code)
	}

	deadline := time.After(2 * time.Second)
	for {
		resp := getGeneration(t, r, "user-a")
		if resp.Data.Run.State == string(pipeline.StateComplete) && !resp.Data.Busy {
			if resp.Data.Run.Topic != "artificial intelligence" {
				t.Fatalf("owner sees wrong topic: %q", resp.Data.Run.Topic)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("run did not complete, state %q", resp.Data.Run.State)
		case <-time.After(5 * time.Millisecond):
		}
	}

	other := getGeneration(t, r, "user-b")
	if other.Data.Run.State != string(pipeline.StateIdle) {
		t.Fatalf("another user's run leaked: state=%q topic=%q", other.Data.Run.State, other.Data.Run.Topic)
	}
	if other.Data.Run.Topic != "" || other.Data.Run.Script != "" {
		t.Fatalf("another user's run content leaked: topic=%q", other.Data.Run.Topic)
	}
	if other.Data.Busy {
		t.Fatalf("another user's busy flag leaked")
	}
}

func TestGenerateVideo_BusyIsPerUser(t *testing.T) {
	r := newVideoTestRouter(t)

	post := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/videos/generate",
			strings.NewReader(`{"topic":"science basics"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := post("user-a"); code != http.StatusAccepted {
		t.Fatalf("user-a start: expected 202, got %d", code)
	}
	// user-a's run must not block user-b
	if code := post("user-b"); code != http.StatusAccepted {
		t.Fatalf("user-b start: expected 202, got %d", code)
	}
}
