package bricks

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/0xA-10/lilypad/pkg/lilypad"
	lperrors "github.com/0xA-10/lilypad/pkg/lilypad/errors"
)

// ExtractFirstJSON returns the first balanced JSON object or array in text,
// ignoring brackets inside JSON strings. Model replies often wrap JSON in
// prose or code fences.
func ExtractFirstJSON(text string) (string, error) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", &lperrors.JSONParseError{Input: text, Message: "no JSON object or array found"}
	}
	open := text[start]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", &lperrors.JSONParseError{Input: text, Message: fmt.Sprintf("unbalanced %c…%c", open, closing)}
}

// ParseFirstJSON extracts and decodes the first JSON value in text.
func ParseFirstJSON(text string) (any, error) {
	raw, err := ExtractFirstJSON(text)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, &lperrors.JSONParseError{Input: raw, Message: err.Error()}
	}
	return v, nil
}

// ExtractJSON returns a segment that parses the first JSON value in the
// text at from and stores it at to.
func ExtractJSON(name, from, to string) lilypad.Segment {
	return lilypad.NewSegment(name, func(_ context.Context, c lilypad.Ctx) (lilypad.Ctx, error) {
		v, err := ParseFirstJSON(c.String(from))
		if err != nil {
			return nil, err
		}
		return c.With(to, v), nil
	}, lilypad.Reads(from), lilypad.Writes(to))
}

// listMarker matches a leading bullet or numbering such as "-", "*",
// "3." or "2)".
var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|[0-9]+[.)])\s*`)

// SplitLines splits text into trimmed, non-empty lines with list markers
// removed.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Lines returns a segment that splits the text at from into a []string
// stored at to.
func Lines(name, from, to string) lilypad.Segment {
	return lilypad.NewSegment(name, func(_ context.Context, c lilypad.Ctx) (lilypad.Ctx, error) {
		return c.With(to, SplitLines(c.String(from))), nil
	}, lilypad.Reads(from), lilypad.Writes(to))
}

// Dedupe drops case-insensitive duplicates, keeping the first spelling.
func Dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		k := strings.ToLower(it)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}

// DedupeSegment returns a segment that deduplicates the string list at
// from into to. A []any list must hold only strings.
func DedupeSegment(name, from, to string) lilypad.Segment {
	return lilypad.NewSegment(name, func(_ context.Context, c lilypad.Ctx) (lilypad.Ctx, error) {
		items, err := stringList(c[from])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", from, err)
		}
		return c.With(to, Dedupe(items)), nil
	}, lilypad.Reads(from), lilypad.Writes(to))
}

func stringList(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return val, nil
	case []any:
		out := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, &lperrors.ValidationError{Field: fmt.Sprintf("[%d]", i), Message: fmt.Sprintf("expected string, got %T", item)}
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, &lperrors.ValidationError{Message: fmt.Sprintf("expected a string list, got %T", v)}
}
