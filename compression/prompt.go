package compression

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultCompressionPrompt is appended as the last user turn of a
// summarization request.
const DefaultCompressionPrompt = "<system-hint>You have been working on the task described above but have not yet completed it. " +
	"Now write a continuation summary that will allow you to resume work efficiently in a future context window " +
	"where the conversation history will be replaced with this summary. " +
	"Your summary should be structured, concise, and actionable.</system-hint>"

// DefaultSummaryTemplate renders a Summary. Placeholders are {field} names of
// the summary schema.
const DefaultSummaryTemplate = "<system-info>Here is a summary of your previous work\n" +
	"# Task Overview\n{task_overview}\n\n" +
	"# Current State\n{current_state}\n\n" +
	"# Important Discoveries\n{important_discoveries}\n\n" +
	"# Next Steps\n{next_steps}\n\n" +
	"# Context to Preserve\n{context_to_preserve}</system-info>"

// DefaultSystemPrompt is used when neither the config nor the agent supply one
const DefaultSystemPrompt = "You are a helpful assistant that summarizes conversations so that work can resume from the summary alone."

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Placeholders returns the distinct placeholder names of template in order
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Render substitutes {field} placeholders in template with values. Missing
// fields render empty; non-string values use their default format.
func Render(template string, values map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(ph string) string {
		v, ok := values[ph[1:len(ph)-1]]
		if !ok || v == nil {
			return ""
		}
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
		return fmt.Sprint(v)
	})
}
