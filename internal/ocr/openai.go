package ocr

import (
	"context"
	"net/http"
	"strings"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAI extracts entries via the OpenAI chat-completions vision endpoint.
type OpenAI struct {
	client *chatClient
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{client: &chatClient{
		provider: "openai",
		endpoint: openAIEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
		http:     http.DefaultClient,
	}}
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) Extract(ctx context.Context, image []byte, prompt, model string) ([]SignerEntry, error) {
	if model == "" {
		model = "gpt-4o"
	}
	text, err := p.client.extract(ctx, image, prompt, model)
	if err != nil {
		return nil, err
	}
	return ParseEntries(text)
}

// withEndpoint redirects API calls, for tests.
func (p *OpenAI) withEndpoint(url string) *OpenAI {
	p.client.endpoint = url
	return p
}
