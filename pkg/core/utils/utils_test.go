package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItems(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"string array", `["First. Second. Third.", "Other"]`, []string{"First. Second. Third.", "Other"}},
		{"fenced object", "```json\n{\"items\": [{\"text\": \"x\"}, {\"content\": \"y\"}]}\n```", []string{"x", "y"}},
		{"single quotes and trailing comma", `['one', 'two',]`, []string{"one", "two"}},
		{"unquoted key", `{items: ["a", "b"]}`, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseItems(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseItems(`{"unrelated": 1}`)
	assert.Error(t, err)
}

func TestLooksLikeJSON(t *testing.T) {
	assert.True(t, LooksLikeJSON("  [\"a\"]"))
	assert.True(t, LooksLikeJSON("```json\n{\"items\": []}\n```"))
	assert.False(t, LooksLikeJSON("1) Sales rose."))
}

func TestCleanMarkdown(t *testing.T) {
	assert.Equal(t, "[1]", CleanMarkdown("```json\n[1]\n```"))
	assert.Equal(t, "plain", CleanMarkdown("  plain \n"))
	assert.Equal(t, "line one\nline two", CleanMarkdown("```\nline one\nline two\n```"))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"**Phone X** led sales.", "Phone X led sales."},
		{"Sales rose 12% in *March*.", "Sales rose 12% in March."},
		{"Use `bundles` now.", "Use bundles now."},
		{"See [the dashboard](http://example.com) today.", "See the dashboard today."},
		{"## Summary", "Summary"},
		{"no markup here", "no markup here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlainText(tt.in), tt.in)
	}
}

func TestGrouper(t *testing.T) {
	tr := NewGrouper("tr")
	assert.Equal(t, "10.200.200", tr.Int(10200200))

	en := NewGrouper("en")
	assert.Equal(t, "10,200,200", en.Int(10200200))
	assert.Equal(t, "1,235", en.Round(1234.6))
	assert.Equal(t, "999", en.Int(999))

	assert.Equal(t, "1,000", NewGrouper("not a locale!").Int(1000))
}
