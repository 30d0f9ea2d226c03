package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"staychat/internal/llm"
)

// Client talks to the Gemini generative language API. It implements
// both llm.Embedder and llm.Completer. Transient failures are retried
// exactly once before surfacing llm.ErrUnavailable.
type Client struct {
	baseURL         string
	apiKey          string
	embeddingModel  string
	completionModel string
	client          *http.Client
}

// Config configures the Gemini client.
type Config struct {
	BaseURL         string
	APIKeyEnv       string
	EmbeddingModel  string
	CompletionModel string
	Timeout         time.Duration
}

// NewClient creates a new Gemini client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-004"
	}
	if cfg.CompletionModel == "" {
		cfg.CompletionModel = "gemini-1.5-flash-latest"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL:         cfg.BaseURL,
		apiKey:          key,
		embeddingModel:  cfg.EmbeddingModel,
		completionModel: cfg.CompletionModel,
		client:          &http.Client{Timeout: t},
	}, nil
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	body := map[string]any{
		"model":   "models/" + c.embeddingModel,
		"content": map[string]any{"parts": []map[string]string{{"text": text}}},
	}
	url := fmt.Sprintf("%s/models/%s:embedContent", c.baseURL, c.embeddingModel)
	var out struct {
		Embedding struct {
			Values []float64 `json:"values"`
		} `json:"embedding"`
	}
	if err := c.postWithRetry(ctx, url, body, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", llm.ErrUnavailable)
	}
	return out.Embedding.Values, nil
}

// Complete generates text for a prompt. A safety block is surfaced as
// llm.ErrContentBlocked.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.completionModel)
	var out struct {
		Candidates []struct {
			FinishReason string `json:"finishReason"`
			Content      struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}
	if err := c.postWithRetry(ctx, url, body, &out); err != nil {
		return "", err
	}
	if out.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", llm.ErrContentBlocked, out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", llm.ErrUnavailable)
	}
	cand := out.Candidates[0]
	if cand.FinishReason == "SAFETY" {
		return "", fmt.Errorf("%w: response blocked", llm.ErrContentBlocked)
	}
	if len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty candidate", llm.ErrUnavailable)
	}
	return cand.Content.Parts[0].Text, nil
}

// postWithRetry performs the call and retries once on network errors,
// rate limiting, and server errors. Non-retryable API errors come back
// as-is so safety blocks are not masked.
func (c *Client) postWithRetry(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	var lastErr error
	for attempt := 0; attempt <= 1; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", llm.ErrUnavailable, ctx.Err())
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%w: gemini returned %s", llm.ErrUnavailable, resp.Status)
			continue
		}
		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return fmt.Errorf("gemini request failed: %s", resp.Status)
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: decode response: %v", llm.ErrUnavailable, err)
			continue
		}
		return nil
	}
	return lastErr
}
