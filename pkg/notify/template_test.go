package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notifykit/notifykit/pkg/notify"
)

func TestRenderText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		vars map[string]any
		want string
	}{
		{
			name: "single substitution",
			text: "Hello {{name}}!",
			vars: map[string]any{"name": "Ging"},
			want: "Hello Ging!",
		},
		{
			name: "multiple placeholders",
			text: "{{greeting}}, {{name}}. {{greeting}} again.",
			vars: map[string]any{"greeting": "Hi", "name": "Ada"},
			want: "Hi, Ada. Hi again.",
		},
		{
			name: "missing variable left verbatim",
			text: "Hello {{name}}, you have {{count}} messages",
			vars: map[string]any{"name": "Ada"},
			want: "Hello Ada, you have {{count}} messages",
		},
		{
			name: "nil vars returns text unchanged",
			text: "Hello {{name}}",
			vars: nil,
			want: "Hello {{name}}",
		},
		{
			name: "non-string values formatted",
			text: "Balance: {{amount}}, active: {{active}}",
			vars: map[string]any{"amount": 42, "active": true},
			want: "Balance: 42, active: true",
		},
		{
			name: "substituted value is not re-expanded",
			text: "Hello {{name}}",
			vars: map[string]any{"name": "{{other}}", "other": "leak"},
			want: "Hello {{other}}",
		},
		{
			name: "no placeholders",
			text: "plain text",
			vars: map[string]any{"name": "unused"},
			want: "plain text",
		},
		{
			name: "whitespace inside braces is not a placeholder",
			text: "Hello {{ name }}",
			vars: map[string]any{"name": "Ada"},
			want: "Hello {{ name }}",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, notify.RenderText(tt.text, tt.vars))
		})
	}
}

func TestTemplateRender(t *testing.T) {
	t.Parallel()

	tmpl := notify.Template{
		ID:      "tpl-1",
		Name:    "game_invite",
		Subject: "{{inviter}} invited you",
		Content: "{{inviter}} wants to play {{game}} with you",
	}

	title, message := tmpl.Render(map[string]any{"inviter": "Kira", "game": "chess"})
	assert.Equal(t, "Kira invited you", title)
	assert.Equal(t, "Kira wants to play chess with you", message)

	// Rendering never mutates the template.
	assert.Equal(t, "{{inviter}} invited you", tmpl.Subject)
	assert.Equal(t, "{{inviter}} wants to play {{game}} with you", tmpl.Content)
}
