package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// suggestionPrompt asks the model for three open-ended questions joined by
// '||' so the frontend can split candidates on a fixed separator.
const suggestionPrompt = "Create a list of three open-ended and engaging questions formatted as a single string. Each question should be separated by '||'. These questions are for an anonymous social messaging platform and should suit a diverse audience. Avoid personal or sensitive topics; focus on universal themes that encourage friendly interaction."

// SuggestionClient calls an OpenAI-compatible chat completion endpoint to
// produce candidate anonymous messages. It keeps no state between calls.
type SuggestionClient struct {
	apiURL  string
	apiKey  string
	model   string
	timeout time.Duration
	http    *http.Client
}

func NewSuggestionClient(apiURL, apiKey, model string, timeout time.Duration) *SuggestionClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SuggestionClient{
		apiURL:  apiURL,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Suggest returns candidate messages as a single '||'-separated string.
// The call is bounded by the configured timeout; a slow generator surfaces as
// ErrGeneratorTimeout instead of hanging the caller.
func (c *SuggestionClient) Suggest(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(chatCompletionRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: suggestionPrompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrGeneratorTimeout
		}
		return "", fmt.Errorf("calling suggestion generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("suggestion generator returned status %d", resp.StatusCode)
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding suggestion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("suggestion generator returned no choices")
	}

	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("suggestion generator returned empty text")
	}
	return text, nil
}
