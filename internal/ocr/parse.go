package ocr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseEntries turns the model's reply into signer entries. The reply is
// untrusted text: it may be wrapped in code fences, preceded by intro
// prose, or not be a list at all. Missing keys become empty strings,
// unknown keys are dropped, and key matching is case-insensitive. A reply
// with no parseable list yields ErrMalformedExtraction, never a panic.
func ParseEntries(text string) ([]SignerEntry, error) {
	raw := extractJSONArray(text)
	if raw == "" {
		return nil, ErrMalformedExtraction
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		// Retry as a heterogeneous list and keep only the dict elements.
		var loose []any
		if err2 := json.Unmarshal([]byte(raw), &loose); err2 != nil {
			return nil, ErrMalformedExtraction
		}
		for _, el := range loose {
			if m, ok := el.(map[string]any); ok {
				items = append(items, m)
			}
		}
	}

	entries := make([]SignerEntry, 0, len(items))
	for _, m := range items {
		entries = append(entries, SignerEntry{
			Name:    fieldString(m, "name"),
			Address: fieldString(m, "address"),
			Date:    fieldString(m, "date"),
			Ward:    fieldString(m, "ward"),
		})
	}
	return entries, nil
}

// extractJSONArray strips code fences and surrounding prose, returning the
// outermost [...] in the text, or "" if there is none.
func extractJSONArray(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func fieldString(m map[string]any, key string) string {
	for k, v := range m {
		if !strings.EqualFold(strings.TrimSpace(k), key) {
			continue
		}
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t)
		case float64:
			return strings.TrimSuffix(fmt.Sprintf("%v", t), ".0")
		case nil:
			return ""
		default:
			return ""
		}
	}
	return ""
}
