package ai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no JSON value can be recovered from a response.
var ErrNoJSON = errors.New("no JSON found in AI response")

var codeFenceRe = regexp.MustCompile("(?is)```(?:json|javascript)?\\s*(.*?)\\s*```")

var knownPrefixes = []string{"json\n", "javascript\n"}

// ExtractJSON pulls the JSON object or array out of model output. It tries,
// in order: the span from the first opening brace to the last closing one,
// a fenced code block, a leading language tag, and finally the raw text.
// The first candidate that parses wins.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoJSON
	}

	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		first := strings.Index(text, pair[0])
		last := strings.LastIndex(text, pair[1])
		if first != -1 && last > first+1 {
			candidate := text[first : last+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}

	if m := codeFenceRe.FindStringSubmatch(text); m != nil && json.Valid([]byte(m[1])) {
		return m[1], nil
	}

	lower := strings.ToLower(text)
	for _, p := range knownPrefixes {
		if strings.HasPrefix(lower, p) {
			candidate := strings.TrimSpace(text[len(p):])
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}

	if json.Valid([]byte(text)) {
		return text, nil
	}
	return "", ErrNoJSON
}
