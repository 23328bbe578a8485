// Package memory provides the HTTP client for the memory service: hybrid
// search, entity fetch/upsert, reflections, and the skill store.
//
// The service is a black box to the pipeline. Every operation here can fail
// without breaking an observation: callers treat non-2xx and transport
// errors as "no data" and fall back to their stage defaults.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haasonsaas/vigil/internal/retry"
	"github.com/haasonsaas/vigil/pkg/models"
)

// Client talks to the memory service. Instances are stateless and safe to
// share across pipelines.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryCfg   retry.Config
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry overrides the transport retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retryCfg = cfg }
}

// NewClient creates a memory client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retryCfg: retry.Config{
			MaxAttempts:  2,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     time.Second,
			Factor:       2.0,
			Jitter:       true,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchResult is one hybrid search hit.
type SearchResult struct {
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// searchResponse tolerates both field names the service has used.
type searchResponse struct {
	Items   []SearchResult `json:"items"`
	Results []SearchResult `json:"results"`
}

// HybridSearch runs a hybrid (lexical+vector) search over stored memories.
func (c *Client) HybridSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	var resp searchResponse
	err := c.post(ctx, "/api/memory/search", map[string]any{
		"q":     query,
		"limit": limit,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Items != nil {
		return resp.Items, nil
	}
	return resp.Results, nil
}

// GetUserEntity fetches an entity by canonical id ("user:<authorId>").
// A missing entity returns (nil, nil).
func (c *Client) GetUserEntity(ctx context.Context, id string) (*models.UserEntity, error) {
	var entity models.UserEntity
	status, err := c.get(ctx, "/api/entities/"+url.PathEscape(id), &entity)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if entity.ID == "" {
		entity.ID = id
	}
	return &entity, nil
}

// UpsertUserEntity merges partial traits into an entity. Idempotent on
// traits: re-sending the same traits is a no-op server-side.
func (c *Client) UpsertUserEntity(ctx context.Context, id string, traits map[string]any) error {
	return c.post(ctx, "/api/entities/"+url.PathEscape(id), map[string]any{
		"id":     id,
		"traits": traits,
	}, nil)
}

// SkillSearch returns stored skills ordered by similarity to the query.
func (c *Client) SkillSearch(ctx context.Context, query string, limit int) ([]models.SkillMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	var matches []models.SkillMatch
	err := c.post(ctx, "/api/skills/search", map[string]any{
		"query": query,
		"limit": limit,
	}, &matches)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// SkillList returns every stored skill with its bookkeeping. The decay
// loop walks this list.
func (c *Client) SkillList(ctx context.Context) ([]models.SkillMatch, error) {
	var skills []models.SkillMatch
	if _, err := c.get(ctx, "/api/skills", &skills); err != nil {
		return nil, err
	}
	return skills, nil
}

// SkillPromote submits a candidate's skill body to the store.
func (c *Client) SkillPromote(ctx context.Context, skill *models.Skill) error {
	return c.post(ctx, "/api/skills/promote", map[string]any{"skill": skill}, nil)
}

// SkillStatusPatch updates a stored skill's lifecycle status. Idempotent.
func (c *Client) SkillStatusPatch(ctx context.Context, skillID string, status models.SkillStatus, reason string) error {
	body := map[string]any{"status": string(status)}
	if reason != "" {
		body["reason"] = reason
	}
	return c.do(ctx, http.MethodPatch, "/api/skills/"+url.PathEscape(skillID)+"/status", body, nil)
}

// Reflection is a persisted summary of (observation, plan, outcome).
type Reflection struct {
	Text    string         `json:"text"`
	Scope   string         `json:"scope"` // user | channel | guild
	ScopeID string         `json:"scopeId"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// ReflectUpsert persists a reflection entry.
func (c *Client) ReflectUpsert(ctx context.Context, r *Reflection) error {
	return c.post(ctx, "/api/reflections", r, nil)
}

// post issues a JSON POST and decodes the response into out (when non-nil).
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// get issues a GET, returning the status code so callers can distinguish
// "not found" from transport failure.
func (c *Client) get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}

	resp, result := retry.DoWithValue(ctx, c.retryCfg, func() (*http.Response, error) {
		return c.httpClient.Do(req)
	})
	if result.Err != nil {
		return 0, fmt.Errorf("memory get %s: %w", path, result.Err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("memory get %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(text)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("memory get %s: decode: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// do issues a JSON request with the given method.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("memory %s %s: encode: %w", method, path, err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			err := fmt.Errorf("memory %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(text)))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return retry.Permanent(err)
			}
			return err
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return retry.Permanent(fmt.Errorf("memory %s %s: decode: %w", method, path, err))
			}
		}
		return nil
	}

	result := retry.Do(ctx, c.retryCfg, op)
	return result.Err
}
