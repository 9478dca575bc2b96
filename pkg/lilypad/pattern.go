package lilypad

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SymbolKind classifies a rhythm symbol.
type SymbolKind int

const (
	// SymbolStep is a plain step marker (D, B, S, ...). It claims one segment.
	SymbolStep SymbolKind = iota

	// SymbolTrim is T<n>. It injects a built-in Trim(n) and claims no segment.
	SymbolTrim

	// SymbolRoute is M(<model>). It claims one segment and routes it to the model.
	SymbolRoute
)

// String returns the kind name.
func (k SymbolKind) String() string {
	switch k {
	case SymbolStep:
		return "step"
	case SymbolTrim:
		return "trim"
	case SymbolRoute:
		return "route"
	default:
		return "unknown"
	}
}

var (
	trimPattern  = regexp.MustCompile(`^[Tt](\d+)$`)
	routePattern = regexp.MustCompile(`^M\((.*)\)$`)
)

// Symbol is one parsed element of a rhythm pattern.
type Symbol struct {
	// Raw is the symbol text as written; it becomes the alignment label.
	Raw string
	// Kind classifies the symbol.
	Kind SymbolKind
	// Budget is the character budget of a trim symbol.
	Budget int
	// Model is the model identifier of a route symbol.
	Model string
}

// ClaimsSegment reports whether the symbol consumes a user segment.
func (s Symbol) ClaimsSegment() bool {
	return s.Kind != SymbolTrim
}

// ParseSymbol classifies a single symbol.
func ParseSymbol(raw string) (Symbol, error) {
	if m := trimPattern.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return Symbol{}, fmt.Errorf("%w: %q: trim budget must be a positive integer", ErrInvalidSymbol, raw)
		}
		return Symbol{Raw: raw, Kind: SymbolTrim, Budget: n}, nil
	}
	if m := routePattern.FindStringSubmatch(raw); m != nil {
		model := strings.TrimSpace(m[1])
		if model == "" {
			return Symbol{}, fmt.Errorf("%w: %q: route needs a model identifier", ErrInvalidSymbol, raw)
		}
		return Symbol{Raw: raw, Kind: SymbolRoute, Model: model}, nil
	}
	return Symbol{Raw: raw, Kind: SymbolStep}, nil
}

// Pattern is a parsed rhythm pattern.
type Pattern []Symbol

// ParsePattern splits s on whitespace and classifies every symbol.
func ParsePattern(s string) (Pattern, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, ErrEmptyPattern
	}
	p := make(Pattern, 0, len(fields))
	for _, f := range fields {
		sym, err := ParseSymbol(f)
		if err != nil {
			return nil, err
		}
		p = append(p, sym)
	}
	return p, nil
}

// String joins the raw symbols with single spaces.
func (p Pattern) String() string {
	raw := make([]string, len(p))
	for i, s := range p {
		raw[i] = s.Raw
	}
	return strings.Join(raw, " ")
}

// Slots returns the number of symbols that claim a user segment.
func (p Pattern) Slots() int {
	n := 0
	for _, s := range p {
		if s.ClaimsSegment() {
			n++
		}
	}
	return n
}

// Labels returns the raw symbols in order.
func (p Pattern) Labels() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = s.Raw
	}
	return out
}
