// Package continuation detects the truncation sentinel at the end of
// generated text and stitches bounded follow-up completions into one
// document.
//
// The loop is a pure text transform: it knows nothing about chapters or
// whole-document drafting and is reused identically by both.
package continuation

import (
	"context"
	"fmt"
	"regexp"
)

// sentinelPattern matches a trailing continuation marker, tolerating
// 1-4 repeated brackets around the literal word and optional code-fence
// residue after it, case-insensitively.
var sentinelPattern = regexp.MustCompile("(?i)<{1,4}continue>{1,4}(?:\\s*```)?(?:\n```)?\\s*$")

// anySentinel matches a continuation marker anywhere in the text.
var anySentinel = regexp.MustCompile("(?i)<{1,4}continue>{1,4}")

// NextFunc requests one more completion chunk. It receives the entire
// accumulated text with the trailing sentinel already stripped.
type NextFunc func(ctx context.Context, accumulated string) (string, error)

// Result is the outcome of an assembly run.
type Result struct {
	// Text is the assembled document.
	Text string

	// Rounds is the number of continuation calls issued.
	Rounds int

	// Truncated is true when the sentinel is still present after the
	// final round, i.e. maxRounds was exhausted with the text still
	// incomplete.
	Truncated bool
}

// Complete extends initial until the trailing sentinel disappears or
// maxRounds continuation calls have been issued. On a continuation
// failure the text accumulated so far is returned alongside the error.
func Complete(ctx context.Context, initial string, next NextFunc, maxRounds int) (Result, error) {
	text := initial
	rounds := 0

	for rounds < maxRounds && sentinelPattern.MatchString(text) {
		text = sentinelPattern.ReplaceAllString(text, "")

		chunk, err := next(ctx, text)
		if err != nil {
			return Result{Text: text, Rounds: rounds}, fmt.Errorf("continuation round %d: %w", rounds+1, err)
		}
		text += chunk
		rounds++
	}

	return Result{
		Text:      text,
		Rounds:    rounds,
		Truncated: sentinelPattern.MatchString(text),
	}, nil
}

// HasSentinel reports whether text ends with a truncation sentinel.
func HasSentinel(text string) bool {
	return sentinelPattern.MatchString(text)
}

// StripAll removes every sentinel occurrence anywhere in text. Used as
// the final pass over an assembled article.
func StripAll(text string) string {
	return anySentinel.ReplaceAllString(text, "")
}
