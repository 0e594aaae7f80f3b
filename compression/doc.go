// Package compression folds older conversation turns into a structured
// summary.
//
// A Compressor moves through three states on each check:
//
//	idle -> eligible -> compressing -> idle
//
// It counts the tokens of the messages not yet marked compressed. When the
// count exceeds the trigger threshold it selects every uncompressed message
// except the last KeepRecent ones, pulling the boundary earlier so that a
// tool_use block and its tool_result are never split. The selected messages
// are summarized by a model with structured output, the result is rendered
// through a template, and only then are the summary stored and the messages
// marked compressed, in one step. A failed or cancelled model call leaves the
// memory untouched.
//
// Usage:
//
//	c, err := compression.New(compression.Config{
//		Enabled:          true,
//		Model:            summarizer,
//		TriggerThreshold: 60000,
//		KeepRecent:       3,
//	})
//	res, err := c.CompressIfNeeded(ctx, mem)
package compression
