package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/googleapi"
)

// Gemini extracts entries through Vertex AI. Unlike the key-based
// providers it authenticates with application-default credentials scoped
// to a project and region.
type Gemini struct {
	client *genai.Client
}

func NewGemini(ctx context.Context, projectID, region string) (*Gemini, error) {
	if region == "" {
		region = "us-central1"
	}
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &Gemini{client: client}, nil
}

func (p *Gemini) Name() string { return "gemini" }

func (p *Gemini) Extract(ctx context.Context, image []byte, prompt, model string) ([]SignerEntry, error) {
	if model == "" {
		model = "gemini-1.5-pro"
	}
	m := p.client.GenerativeModel(model)
	m.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	imagePart := genai.Blob{
		MIMEType: http.DetectContentType(image),
		Data:     image,
	}
	resp, err := m.GenerateContent(ctx, imagePart, genai.Text(prompt))
	if err != nil {
		return nil, classifyGeminiErr(err)
	}
	return ParseEntries(collectText(resp))
}

func (p *Gemini) Close() error { return p.client.Close() }

// collectText concatenates all text parts of the first candidate. The API
// occasionally splits one reply across several parts.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func classifyGeminiErr(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &UpstreamError{
			Provider:   "gemini",
			StatusCode: apiErr.Code,
			Transient:  apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500,
			Err:        err,
		}
	}
	// Transport-level failures without an API status are treated as
	// transient so the coordinator's backoff gets a chance.
	return &UpstreamError{Provider: "gemini", Transient: true, Err: err}
}
