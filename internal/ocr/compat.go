package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// chatClient speaks the OpenAI-style chat-completions wire format, which
// both the OpenAI and Mistral vision endpoints accept. Fields mirror the
// documented schema; unknown response fields are ignored.
type chatClient struct {
	provider string
	endpoint string
	apiKey   string
	http     *http.Client
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// extract sends one page image plus the prompt and returns the raw model text.
func (c *chatClient) extract(ctx context.Context, image []byte, prompt, model string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", http.DetectContentType(image), base64.StdEncoding.EncodeToString(image))
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		}},
		MaxTokens: 4096,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", c.provider, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", c.provider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", &UpstreamError{Provider: c.provider, Transient: true, Err: ctx.Err()}
		}
		return "", &UpstreamError{Provider: c.provider, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return "", &UpstreamError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Transient:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			Err:        fmt.Errorf("http %d: %v", resp.StatusCode, apiErr),
		}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &UpstreamError{Provider: c.provider, Transient: false, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Choices) == 0 {
		return "", &UpstreamError{Provider: c.provider, Transient: false, Err: errors.New("empty response")}
	}
	return out.Choices[0].Message.Content, nil
}
