package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultSystemPrompt = "You are an AI learning assistant for an educational platform. Provide clear, accurate and encouraging answers."

// Gemini calls the Gemini REST API. It implements both Generator and
// Chatter.
type Gemini struct {
	BaseURL    string
	APIKey     string
	TextModel  string
	ImageModel string
	VideoModel string
	Client     *http.Client
}

func NewGemini(baseURL, apiKey, textModel string) *Gemini {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if textModel == "" {
		textModel = "gemini-pro"
	}
	return &Gemini{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		TextModel:  textModel,
		ImageModel: "imagen-3.0",
		VideoModel: "veo-1.0",
		Client:     &http.Client{Timeout: 90 * time.Second},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateReq struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		TopK            int     `json:"topK"`
		TopP            float64 `json:"topP"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiGenerateResp struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *Gemini) post(ctx context.Context, url string, body, out any) error {
	if g.Client == nil {
		return errors.New("gemini: http client is nil")
	}
	if strings.TrimSpace(g.APIKey) == "" {
		return errors.New("gemini: api key is required")
	}

	b, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "gemini: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "gemini: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "gemini: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return errors.Errorf("gemini: %s", msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "gemini: decode response")
	}
	return nil
}

func (g *Gemini) modelURL(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s?key=%s",
		strings.TrimRight(g.BaseURL, "/"), model, method, g.APIKey)
}

func (g *Gemini) generate(ctx context.Context, contents []geminiContent) (string, error) {
	reqBody := geminiGenerateReq{Contents: contents}
	reqBody.GenerationConfig.Temperature = 0.7
	reqBody.GenerationConfig.TopK = 40
	reqBody.GenerationConfig.TopP = 0.95
	reqBody.GenerationConfig.MaxOutputTokens = 1024

	var decoded geminiGenerateResp
	if err := g.post(ctx, g.modelURL(g.TextModel, "generateContent"), reqBody, &decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: no text returned")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

// GenerateText produces a narration script for the given topic prompt.
func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, []geminiContent{{
		Role: "user",
		Parts: []geminiPart{
			{Text: defaultSystemPrompt},
			{Text: "Write the narration script for a short educational video about: " + prompt},
		},
	}})
}

// Chat produces one assistant reply for a conversation. Assistant turns map
// to the "model" role on the wire.
func (g *Gemini) Chat(ctx context.Context, messages []Message) (string, error) {
	contents := make([]geminiContent, 0, len(messages)+1)
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: defaultSystemPrompt}},
	})
	for _, m := range messages {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	return g.generate(ctx, contents)
}

type geminiImagesResp struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *Gemini) GenerateImages(ctx context.Context, script string) ([]string, error) {
	var decoded geminiImagesResp
	body := map[string]any{"prompt": script, "count": 4}
	if err := g.post(ctx, g.modelURL(g.ImageModel, "generateImages"), body, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, errors.New(decoded.Error.Message)
	}
	if len(decoded.Images) == 0 {
		return nil, errors.New("gemini: no images returned")
	}
	urls := make([]string, 0, len(decoded.Images))
	for _, img := range decoded.Images {
		urls = append(urls, img.URL)
	}
	return urls, nil
}

type geminiVideoResp struct {
	URL   string `json:"url"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *Gemini) GenerateVideo(ctx context.Context, script string, images []string) (string, error) {
	var decoded geminiVideoResp
	body := map[string]any{"script": script, "images": images}
	if err := g.post(ctx, g.modelURL(g.VideoModel, "generateVideo"), body, &decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	if decoded.URL == "" {
		return "", errors.New("gemini: no video returned")
	}
	return decoded.URL, nil
}
