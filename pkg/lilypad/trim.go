package lilypad

import (
	"context"
	"strconv"
)

// Trim returns the built-in segment injected for a T<n> symbol.
//
// It keeps only the trailing n characters of a string prompt, so the most
// recent part of an accumulating prompt survives. Characters are counted as
// runes. A missing or non-string prompt, or one already within budget, is
// left as is; every other field is untouched.
//
// Panics if n is not positive.
func Trim(n int) Segment {
	if n <= 0 {
		panic("lilypad: trim budget must be positive")
	}
	return NewSegment("T"+strconv.Itoa(n), func(_ context.Context, c Ctx) (Ctx, error) {
		prompt, ok := c[KeyPrompt].(string)
		if !ok {
			return c, nil
		}
		trimmed, cut := tail(prompt, n)
		if cut == 0 {
			return c, nil
		}
		return c.With(KeyPrompt, trimmed), nil
	}, Writes(KeyPrompt))
}

// tail returns the last n runes of s and how many runes were dropped.
func tail(s string, n int) (string, int) {
	runes := []rune(s)
	if len(runes) <= n {
		return s, 0
	}
	return string(runes[len(runes)-n:]), len(runes) - n
}
