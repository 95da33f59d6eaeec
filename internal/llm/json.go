package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("```(?:json|JSON)?\\s*|\\s*```")

// ExtractJSON strips markdown fencing and returns the outermost {...} span of text.
func ExtractJSON(text string) (string, error) {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return cleaned[start : end+1], nil
}

// DecodeJSON extracts the JSON object from a completion and unmarshals it into v.
func DecodeJSON(text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("llm: decode completion: %w", err)
	}
	return nil
}
