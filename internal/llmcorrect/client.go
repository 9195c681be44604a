package llmcorrect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aquilaworks/convocations/internal/rerr"
)

// DefaultEndpoint is the OpenRouter-compatible chat-completions endpoint.
const DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

const systemPrompt = `You are a copy editor for a fantasy roleplay chat transcript.
Preserve every proper noun and fantasy term exactly as given.
Correct spelling and grammar only.
Do not add or remove sentences.
Do not translate.
Reply with only the corrected chunk, nothing else.`

// Client submits chunks to an OpenRouter-compatible chat-completions
// endpoint.
type Client struct {
	Endpoint       string
	APIKey         string
	Model          string
	FreeModelsOnly bool
	HTTPClient     *http.Client
	// ChunkTimeout bounds each individual chunk request (spec.md §4.G).
	ChunkTimeout time.Duration
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c Client) timeout() time.Duration {
	if c.ChunkTimeout > 0 {
		return c.ChunkTimeout
	}
	return 30 * time.Second
}

func (c Client) model() string {
	m := c.Model
	if m == "" {
		m = "openrouter/auto"
	}
	if c.FreeModelsOnly && !strings.HasSuffix(m, ":free") {
		m += ":free"
	}
	return m
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CorrectChunk submits a single chunk and returns the corrected text. The
// returned error, when non-nil, is always an *rerr.Error with KindLLM and a
// populated Phase, classifying the failure per spec.md §7.
func (c Client) CorrectChunk(ctx context.Context, chunk string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.model(),
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: chunk},
		},
	})
	if err != nil {
		return "", rerr.LLM(rerr.LLMPhaseNetwork, "encode request", err)
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", rerr.LLM(rerr.LLMPhaseNetwork, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", rerr.LLM(rerr.LLMPhaseTimeout, "chunk request timed out", err)
		}
		return "", rerr.LLM(rerr.LLMPhaseNetwork, "chunk request failed", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", rerr.LLM(rerr.LLMPhaseAuth, "credential rejected", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return "", rerr.LLM(rerr.LLMPhaseServer, "server error", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", rerr.LLM(rerr.LLMPhaseNetwork, "unexpected response", fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", rerr.LLM(rerr.LLMPhaseNetwork, "decode response", err)
	}
	if parsed.Error != nil {
		return "", rerr.LLM(rerr.LLMPhaseServer, parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", rerr.LLM(rerr.LLMPhaseServer, "empty choices", nil)
	}
	return parsed.Choices[0].Message.Content, nil
}
