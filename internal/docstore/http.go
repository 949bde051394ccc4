package docstore

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

// HTTPStore talks to the hosted document store over its REST API.
type HTTPStore struct {
	BaseURL string
	APIKey  string
	Project string
	Client  *http.Client
}

func NewHTTPStore(baseURL, apiKey, project string) *HTTPStore {
	if baseURL == "" {
		baseURL = "https://docstore.googleapis.com"
	}
	return &HTTPStore{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Project: project,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type createDocResp struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

type getDocResp struct {
	Fields Fields `json:"fields"`
	Error  string `json:"error,omitempty"`
}

type queryDocsReq struct {
	Filters []queryFilter `json:"filters,omitempty"`
	OrderBy string        `json:"order_by,omitempty"`
	Desc    bool          `json:"desc,omitempty"`
	Limit   int           `json:"limit,omitempty"`
}

type queryFilter struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

type queryDocsResp struct {
	Documents []struct {
		ID     string `json:"id"`
		Fields Fields `json:"fields"`
	} `json:"documents"`
	Error string `json:"error,omitempty"`
}

func (s *HTTPStore) collectionURL(collection string) string {
	return fmt.Sprintf("%s/v1/projects/%s/collections/%s/documents",
		strings.TrimRight(s.BaseURL, "/"), s.Project, collection)
}

func (s *HTTPStore) do(ctx context.Context, method, url string, body any, out any) error {
	if s.Client == nil {
		return errors.New("docstore: http client is nil")
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "docstore: marshal request")
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return errors.Wrap(err, "docstore: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "docstore: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return errors.Errorf("docstore: %s", msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "docstore: decode response")
	}
	return nil
}

func (s *HTTPStore) CreateDocument(ctx context.Context, collection string, fields Fields) (string, error) {
	var decoded createDocResp
	err := s.do(ctx, http.MethodPost, s.collectionURL(collection), map[string]any{"fields": fields}, &decoded)
	if err != nil {
		return "", err
	}
	if decoded.Error != "" {
		return "", errors.New(decoded.Error)
	}
	if decoded.ID == "" {
		return "", errors.New("docstore: empty document id in response")
	}
	return decoded.ID, nil
}

func (s *HTTPStore) GetDocument(ctx context.Context, collection, id string) (Fields, error) {
	url := fmt.Sprintf("%s/%s", s.collectionURL(collection), id)
	var decoded getDocResp
	if err := s.do(ctx, http.MethodGet, url, nil, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, errors.New(decoded.Error)
	}
	return decoded.Fields, nil
}

func (s *HTTPStore) SetDocument(ctx context.Context, collection, id string, fields Fields, merge bool) error {
	url := fmt.Sprintf("%s/%s?merge=%t", s.collectionURL(collection), id, merge)
	return s.do(ctx, http.MethodPut, url, map[string]any{"fields": fields}, nil)
}

func (s *HTTPStore) QueryDocuments(ctx context.Context, collection string, q Query) ([]Document, error) {
	reqBody := queryDocsReq{
		OrderBy: q.OrderBy,
		Desc:    q.Desc,
		Limit:   q.Limit,
	}
	for _, f := range q.Filters {
		reqBody.Filters = append(reqBody.Filters, queryFilter{Field: f.Field, Op: f.Op, Value: f.Value})
	}

	url := s.collectionURL(collection) + ":query"
	var decoded queryDocsResp
	if err := s.do(ctx, http.MethodPost, url, reqBody, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, errors.New(decoded.Error)
	}

	docs := make([]Document, 0, len(decoded.Documents))
	for _, d := range decoded.Documents {
		docs = append(docs, Document{ID: d.ID, Fields: d.Fields})
	}
	return docs, nil
}
