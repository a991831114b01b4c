package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// itemKeys are the object keys a model tends to use for list payloads.
var itemKeys = []string{"items", "report", "lines", "recommendations", "maddeler"}

// textKeys are the keys holding an item's text when items are objects.
var textKeys = []string{"text", "item", "content", "line", "madde"}

// LooksLikeJSON reports whether a reply is shaped like a JSON array or
// object once code fences are removed.
func LooksLikeJSON(input string) bool {
	s := CleanMarkdown(input)
	return strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{")
}

// RepairJSON fixes common model JSON errors: missing quotes, single quotes,
// trailing commas, unclosed brackets and comments.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair: %w", err)
	}
	return repaired, nil
}

// ParseHJSON reads lenient Hjson and returns standard JSON.
func ParseHJSON(data string) (string, error) {
	var v interface{}
	if err := hjson.Unmarshal([]byte(data), &v); err != nil {
		return "", fmt.Errorf("hjson: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hjson re-encode: %w", err)
	}
	return string(out), nil
}

// ParseItems extracts the text items of a list-shaped JSON reply. It tries
// strict JSON, then repaired JSON, then Hjson. Accepted shapes are an
// array of strings, an array of objects carrying a text field, and an
// object wrapping either under a known key.
func ParseItems(input string) ([]string, error) {
	s := CleanMarkdown(input)

	candidates := []func(string) (string, error){
		func(v string) (string, error) { return v, nil },
		RepairJSON,
		ParseHJSON,
	}
	for _, attempt := range candidates {
		doc, err := attempt(s)
		if err != nil {
			continue
		}
		var v interface{}
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			continue
		}
		if items, ok := collectItems(v); ok {
			return items, nil
		}
	}
	return nil, fmt.Errorf("no list items found in reply")
}

func collectItems(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []interface{}:
		var out []string
		for _, el := range t {
			switch e := el.(type) {
			case string:
				out = append(out, e)
			case map[string]interface{}:
				if s, ok := firstString(e, textKeys); ok {
					out = append(out, s)
				}
			}
		}
		return out, len(out) > 0
	case map[string]interface{}:
		for _, k := range itemKeys {
			if inner, ok := t[k]; ok {
				return collectItems(inner)
			}
		}
	}
	return nil, false
}

func firstString(m map[string]interface{}, keys []string) (string, bool) {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			return s, true
		}
	}
	return "", false
}
