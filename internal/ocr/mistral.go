package ocr

import (
	"context"
	"net/http"
	"strings"
)

const mistralEndpoint = "https://api.mistral.ai/v1/chat/completions"

// Mistral extracts entries via the Mistral vision endpoint, which accepts
// the same chat-completions shape as OpenAI.
type Mistral struct {
	client *chatClient
}

func NewMistral(apiKey string) *Mistral {
	return &Mistral{client: &chatClient{
		provider: "mistral",
		endpoint: mistralEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
		http:     http.DefaultClient,
	}}
}

func (p *Mistral) Name() string { return "mistral" }

func (p *Mistral) Extract(ctx context.Context, image []byte, prompt, model string) ([]SignerEntry, error) {
	if model == "" {
		model = "pixtral-12b-2409"
	}
	text, err := p.client.extract(ctx, image, prompt, model)
	if err != nil {
		return nil, err
	}
	return ParseEntries(text)
}

// withEndpoint redirects API calls, for tests.
func (p *Mistral) withEndpoint(url string) *Mistral {
	p.client.endpoint = url
	return p
}
