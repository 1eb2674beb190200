package sendnotification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     string
		data     map[string]interface{}
		expected string
	}{
		{
			name:     "all placeholders known",
			tmpl:     "Episode {{episodeNumber}} of {{title}} is out",
			data:     map[string]interface{}{"episodeNumber": float64(4), "title": "Moonlit Ronin"},
			expected: "Episode 4 of Moonlit Ronin is out",
		},
		{
			name:     "unknown placeholder removed",
			tmpl:     "Hi {{name}}, {{title}} updated",
			data:     map[string]interface{}{"title": "Moonlit Ronin"},
			expected: "Hi , Moonlit Ronin updated",
		},
		{
			name:     "whitespace inside braces",
			tmpl:     "{{ title }} ",
			data:     map[string]interface{}{"title": "Ronin"},
			expected: "Ronin",
		},
		{
			name:     "nil value removed and spaces collapsed",
			tmpl:     "A {{missing}} B",
			data:     map[string]interface{}{"missing": nil},
			expected: "A B",
		},
		{
			name:     "fractional numbers keep decimals",
			tmpl:     "{{pct}}%",
			data:     map[string]interface{}{"pct": 62.5},
			expected: "62.5%",
		},
		{
			name:     "booleans",
			tmpl:     "{{flag}}",
			data:     map[string]interface{}{"flag": true},
			expected: "true",
		},
		{
			name:     "newlines preserved",
			tmpl:     "line one\nline {{n}}",
			data:     map[string]interface{}{"n": "two"},
			expected: "line one\nline two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderTemplate(tt.tmpl, tt.data))
		})
	}
}

func TestTemplates_CoverEveryType(t *testing.T) {
	for _, typ := range []string{TypeEpisodeUnlocked, TypeDonationGoalReached, TypeSubscriptionExpiring, TypeCommentReply} {
		tmpl, ok := templates[typ]
		assert.True(t, ok, typ)
		assert.NotEmpty(t, tmpl.Subject, typ)
		assert.NotEmpty(t, tmpl.Body, typ)
	}
}
