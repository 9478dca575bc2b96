package lilypad

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Builder accumulates (symbol, segment) pairs and compiles them exactly as
// the equivalent hand-written pattern would be compiled.
//
// Builder methods return the builder for chaining. Misuse is recorded and
// reported by Build rather than panicking mid-chain.
//
// Example:
//
//	p, err := lilypad.NewBuilder().
//	    Step("D", draft).
//	    Trim(800).
//	    Step("B", brainstorm, brainstorm).
//	    Route("claude-3-7-sonnet-20250219", summarize).
//	    Build()
type Builder struct {
	symbols []string
	segs    []Segment
	errs    []error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Step appends one pair per segment, each labelled symbol. Symbols are not
// deduplicated. Trim symbols are rejected here; use Trim.
func (b *Builder) Step(symbol string, segs ...Segment) *Builder {
	if symbol == "" || strings.ContainsAny(symbol, " \t\n\r") {
		b.errs = append(b.errs, fmt.Errorf("%w: step symbol %q must be a single non-empty token", ErrInvalidSymbol, symbol))
		return b
	}
	sym, err := ParseSymbol(symbol)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if sym.Kind == SymbolTrim {
		b.errs = append(b.errs, fmt.Errorf("%w: %q is a trim symbol and claims no segment; use Trim", ErrInvalidSymbol, symbol))
		return b
	}
	for _, s := range segs {
		b.symbols = append(b.symbols, symbol)
		b.segs = append(b.segs, s)
	}
	return b
}

// Trim appends a T<n> symbol. It consumes no segment.
func (b *Builder) Trim(n int) *Builder {
	if n <= 0 {
		b.errs = append(b.errs, fmt.Errorf("%w: trim budget %d must be positive", ErrInvalidSymbol, n))
		return b
	}
	b.symbols = append(b.symbols, "T"+strconv.Itoa(n))
	return b
}

// Route appends one M(model) pair per segment.
func (b *Builder) Route(model string, segs ...Segment) *Builder {
	return b.Step("M("+model+")", segs...)
}

// Pattern returns the pattern string accumulated so far.
func (b *Builder) Pattern() string {
	return strings.Join(b.symbols, " ")
}

// Build joins the symbols with single spaces and compiles them with the
// collected segments.
func (b *Builder) Build(opts ...Option) (*Pipeline, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return Compile(b.Pattern(), b.segs, opts...)
}
