package suggest

import (
	"encoding/json"
	"strings"

	"github.com/madalinagriza/flashfinance/internal/core"
)

// placeholders are values models emit when they refuse or hallucinate;
// any of them in either field invalidates the reply.
var placeholders = map[string]bool{
	"":          true,
	"none":      true,
	"null":      true,
	"undefined": true,
	"n/a":       true,
	"todo":      true,
}

type suggestionReply struct {
	SuggestedCategoryID   string `json:"suggestedCategoryId"`
	SuggestedCategoryName string `json:"suggestedCategoryName"`
}

// parseReply extracts the first JSON object from the classifier's free
// text and validates it against the known categories. Untrusted input:
// every violation is a SuggestionError carrying the offending value,
// never a panic and never a best guess.
func parseReply(text string, categories []core.CategoryRef) (core.CategoryRef, error) {
	obj, ok := firstJSONObject(text)
	if !ok {
		return core.CategoryRef{}, &core.SuggestionError{Reason: "no JSON object found in response", Value: text}
	}

	var reply suggestionReply
	if err := json.Unmarshal([]byte(obj), &reply); err != nil {
		return core.CategoryRef{}, &core.SuggestionError{Reason: "malformed JSON object", Value: obj}
	}

	id := reply.SuggestedCategoryID
	name := strings.TrimSpace(reply.SuggestedCategoryName)
	if id == "" {
		return core.CategoryRef{}, &core.SuggestionError{Reason: "missing suggestedCategoryId", Value: obj}
	}
	if name == "" {
		return core.CategoryRef{}, &core.SuggestionError{Reason: "missing suggestedCategoryName", Value: obj}
	}
	if placeholders[strings.ToLower(id)] {
		return core.CategoryRef{}, &core.SuggestionError{Reason: "placeholder suggestedCategoryId", Value: id}
	}
	if placeholders[strings.ToLower(name)] {
		return core.CategoryRef{}, &core.SuggestionError{Reason: "placeholder suggestedCategoryName", Value: name}
	}

	// An id equal to some category name means the model swapped the
	// fields.
	for _, c := range categories {
		if strings.EqualFold(c.Name, id) {
			return core.CategoryRef{}, &core.SuggestionError{Reason: "id and name fields appear swapped", Value: id}
		}
	}

	var chosen *core.CategoryRef
	for i := range categories {
		if string(categories[i].ID) == id {
			chosen = &categories[i]
			break
		}
	}
	if chosen == nil {
		return core.CategoryRef{}, &core.SuggestionError{Reason: "unknown category id", Value: id}
	}
	if !strings.EqualFold(chosen.Name, name) {
		return core.CategoryRef{}, &core.SuggestionError{Reason: "name does not match the category id", Value: name}
	}
	return *chosen, nil
}

// firstJSONObject returns the first balanced {...} span in the text.
// Brace counting ignores braces inside JSON strings.
func firstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
