package notify

import (
	"fmt"
	"regexp"
)

// placeholderRe matches {{name}} placeholders. Whitespace inside the braces is
// not supported; the key space is exactly the declared variable names.
var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// RenderText substitutes every {{name}} occurrence in text with vars[name] in
// a single, non-recursive pass. Placeholders without a matching key are left
// verbatim rather than erroring, so a missing variable is visible in the
// rendered output instead of silently disappearing.
func RenderText(text string, vars map[string]any) string {
	if len(vars) == 0 {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-2]
		v, ok := vars[name]
		if !ok {
			return match
		}
		return fmt.Sprintf("%v", v)
	})
}

// Render derives a notification title and message from the template's subject
// and content. Substitution is read-only; the template is never mutated.
func (t Template) Render(vars map[string]any) (title, message string) {
	return RenderText(t.Subject, vars), RenderText(t.Content, vars)
}
