package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SignerEntry is one extracted row from a signature sheet, as written.
// Any of these fields may be empty or garbled; downstream normalization
// decides what is usable.
type SignerEntry struct {
	Name    string
	Address string
	Date    string
	Ward    string
}

// Provider extracts signer entries from a page image. Implementations map
// their native API response into SignerEntry and nothing else; retry and
// backoff policy live in the pipeline coordinator so it is uniform across
// providers.
type Provider interface {
	Name() string
	Extract(ctx context.Context, image []byte, prompt, model string) ([]SignerEntry, error)
}

// DefaultPrompt is the extraction prompt used when the caller supplies none.
const DefaultPrompt = "Using the written text in the image create a list of dictionaries where each dictionary consists of keys 'Name', 'Address', 'Date', and 'Ward'. Fill in the values of each dictionary with the correct entries for each key. Write all the values of the dictionary in full. Only output the list of dictionaries. No other intro text is necessary."

// ErrMalformedExtraction reports that the model replied with something
// other than a list of entries. Recoverable: the page yields zero entries.
var ErrMalformedExtraction = errors.New("ocr: model output is not a list of entries")

// UpstreamError wraps a provider API failure. Transient failures (rate
// limits, 5xx, timeouts) are worth retrying; permanent ones are not.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *UpstreamError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s upstream error (http %d): %v", e.Provider, kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s upstream error: %v", e.Provider, kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Providers lists the accepted provider identifiers.
func Providers() []string { return []string{"openai", "mistral", "gemini"} }

// Credentials carries out-of-band provider credentials supplied by the caller.
type Credentials struct {
	OpenAIKey     string
	MistralKey    string
	GeminiProject string
	GeminiRegion  string
}

// New returns the provider for the given identifier. The Gemini variant
// opens a Vertex AI client and must be closed by the caller if it
// implements io.Closer.
func New(ctx context.Context, provider string, creds Credentials) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "openai":
		if creds.OpenAIKey == "" {
			return nil, fmt.Errorf("openai: api key not configured")
		}
		return NewOpenAI(creds.OpenAIKey), nil
	case "mistral":
		if creds.MistralKey == "" {
			return nil, fmt.Errorf("mistral: api key not configured")
		}
		return NewMistral(creds.MistralKey), nil
	case "gemini":
		if creds.GeminiProject == "" {
			return nil, fmt.Errorf("gemini: project not configured")
		}
		return NewGemini(ctx, creds.GeminiProject, creds.GeminiRegion)
	default:
		return nil, fmt.Errorf("unknown ocr provider %q (expected one of %s)", provider, strings.Join(Providers(), ", "))
	}
}
