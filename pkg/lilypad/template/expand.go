package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/0xA-10/lilypad/pkg/lilypad"
)

// placeholder matches ${path} (group 1) or $path (group 2). A path is an
// identifier followed by dotted identifier or index segments.
var placeholder = regexp.MustCompile(
	`\$\{([a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z0-9_]+)*)\}` +
		`|\$([a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z0-9_]+)*)`)

// Expander expands placeholders in prompt templates.
type Expander struct {
	missingAction MissingAction
	braceStyle    bool
	dollarStyle   bool
}

// NewExpander creates an Expander. Defaults: MissingKeep, both styles on.
//
// Example:
//
//	exp := template.NewExpander(
//	    template.WithMissingAction(template.MissingError),
//	    template.WithDollarStyle(false),
//	)
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		missingAction: MissingKeep,
		braceStyle:    true,
		dollarStyle:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand replaces every placeholder in s with the value at its path in
// vars. An error is returned only under MissingError.
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	out := replaceAllSubmatch(s, func(match string, path string, brace bool) string {
		if (brace && !e.braceStyle) || (!brace && !e.dollarStyle) {
			return match
		}
		if v, ok := Lookup(vars, path); ok {
			return Format(v)
		}
		switch e.missingAction {
		case MissingEmpty:
			return ""
		case MissingError:
			missing = append(missing, path)
		}
		return match
	})

	if len(missing) > 0 {
		return out, &UndefinedVariableError{Names: missing}
	}
	return out, nil
}

// MustExpand is Expand that panics on error.
func (e *Expander) MustExpand(s string, vars map[string]any) string {
	result, err := e.Expand(s, vars)
	if err != nil {
		panic(fmt.Sprintf("template: %v", err))
	}
	return result
}

// ExpandMap expands every string value of m, descending into nested maps.
// Non-string values are copied as-is.
func (e *Expander) ExpandMap(m map[string]any, vars map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			s, err := e.Expand(val, vars)
			if err != nil {
				return nil, err
			}
			result[k] = s
		case map[string]any:
			nested, err := e.ExpandMap(val, vars)
			if err != nil {
				return nil, err
			}
			result[k] = nested
		default:
			result[k] = v
		}
	}
	return result, nil
}

// References returns the distinct top-level keys the enabled placeholder
// styles of e refer to, in order of first use.
func (e *Expander) References(s string) []string {
	var keys []string
	seen := make(map[string]bool)
	replaceAllSubmatch(s, func(match, path string, brace bool) string {
		if (brace && !e.braceStyle) || (!brace && !e.dollarStyle) {
			return match
		}
		key, _, _ := strings.Cut(path, ".")
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		return match
	})
	return keys
}

// replaceAllSubmatch calls fn for every placeholder in a single pass.
func replaceAllSubmatch(s string, fn func(match, path string, brace bool) string) string {
	idx := placeholder.FindAllStringSubmatchIndex(s, -1)
	if len(idx) == 0 {
		return s
	}
	var sb strings.Builder
	last := 0
	for _, m := range idx {
		sb.WriteString(s[last:m[0]])
		match := s[m[0]:m[1]]
		if m[2] >= 0 {
			sb.WriteString(fn(match, s[m[2]:m[3]], true))
		} else {
			sb.WriteString(fn(match, s[m[4]:m[5]], false))
		}
		last = m[1]
	}
	sb.WriteString(s[last:])
	return sb.String()
}

// Lookup resolves a dotted path against vars. Segments descend into maps by
// key and into slices by decimal index.
func Lookup(vars map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	cur, ok := vars[parts[0]]
	if !ok {
		return nil, false
	}
	for _, p := range parts[1:] {
		switch node := cur.(type) {
		case map[string]any:
			cur, ok = node[p]
		case lilypad.Ctx:
			cur, ok = node[p]
		case map[string]string:
			cur, ok = node[p]
		case []any:
			cur, ok = index(node, p)
		case []string:
			cur, ok = index(node, p)
		case []lilypad.Message:
			cur, ok = index(node, p)
		case lilypad.Message:
			cur, ok = messageField(node, p)
		case *lilypad.Session:
			cur, ok = sessionField(node, p)
		default:
			return nil, false
		}
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func index[T any](s []T, p string) (any, bool) {
	i, err := strconv.Atoi(p)
	if err != nil || i < 0 || i >= len(s) {
		return nil, false
	}
	return s[i], true
}

func messageField(m lilypad.Message, p string) (any, bool) {
	switch p {
	case "role":
		return m.Role, true
	case "content":
		return m.Content, true
	}
	return nil, false
}

func sessionField(s *lilypad.Session, p string) (any, bool) {
	if s == nil {
		return nil, false
	}
	switch p {
	case "conversation_id":
		return s.ConversationID, true
	case "run_id":
		return s.RunID, true
	case "last_response_id":
		return s.LastResponseID, true
	}
	return nil, false
}

// Format renders a value for insertion into a prompt.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case []lilypad.Message:
		lines := make([]string, len(val))
		for i, m := range val {
			lines[i] = m.Role + ": " + m.Content
		}
		return strings.Join(lines, "\n")
	case []string:
		return strings.Join(val, "\n")
	case map[string]any, lilypad.Ctx, []any, map[string]string:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// UndefinedVariableError is returned under MissingError when one or more
// placeholders have no value.
type UndefinedVariableError struct {
	// Names lists the unresolved paths.
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

var defaultExpander = NewExpander()

// Render expands tmpl against c with the default expander, keeping
// unresolved placeholders.
func Render(tmpl string, c lilypad.Ctx) string {
	result, _ := defaultExpander.Expand(tmpl, c)
	return result
}

// Expand expands s with the default expander, keeping unresolved
// placeholders.
func Expand(s string, vars map[string]any) string {
	result, _ := defaultExpander.Expand(s, vars)
	return result
}
