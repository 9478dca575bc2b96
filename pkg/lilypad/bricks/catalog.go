package bricks

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/0xA-10/lilypad/pkg/lilypad"
	"github.com/0xA-10/lilypad/pkg/lilypad/config"
	lperrors "github.com/0xA-10/lilypad/pkg/lilypad/errors"
	"github.com/0xA-10/lilypad/pkg/lilypad/llm"
)

// ErrUnknownBrick is returned when a step names a brick the catalog lacks.
var ErrUnknownBrick = errors.New("unknown brick")

// Deps are the shared collaborators handed to every factory.
type Deps struct {
	// Client serves the llm brick. Required only if a definition uses it.
	Client llm.Client
	// Logger is passed to bricks that log. Defaults to slog.Default().
	Logger *slog.Logger
	// Retry overrides the llm brick's retry policy.
	Retry *lperrors.RetryConfig
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Factory builds a segment from a step definition.
type Factory func(step config.StepDef, deps Deps) (lilypad.Segment, error)

// Catalog is a thread-safe map of brick names to factories.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Default creates a catalog holding the built-in bricks.
func Default() *Catalog {
	c := NewCatalog()
	c.Register("inject", newInject)
	c.Register("prompt", newPrompt)
	c.Register("llm", newLLM)
	c.Register("extract-json", newExtractJSON)
	c.Register("lines", newLines)
	c.Register("dedupe", newDedupe)
	c.Register("fresh", newFresh)
	return c
}

// Register adds or replaces a factory.
//
// Panics on an empty name or nil factory.
func (c *Catalog) Register(name string, f Factory) {
	if name == "" {
		panic("bricks: brick name cannot be empty")
	}
	if f == nil {
		panic("bricks: factory cannot be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = f
}

// Get returns the factory for name.
func (c *Catalog) Get(name string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factories[name]
	return f, ok
}

// Has reports whether name is registered.
func (c *Catalog) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Names returns the registered brick names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.factories))
	for n := range c.factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Build creates the segment for step.
func (c *Catalog) Build(step config.StepDef, deps Deps) (lilypad.Segment, error) {
	f, ok := c.Get(step.Brick)
	if !ok {
		return lilypad.Segment{}, fmt.Errorf("%w: %q", ErrUnknownBrick, step.Brick)
	}
	seg, err := f(step, deps)
	if err != nil {
		return lilypad.Segment{}, fmt.Errorf("brick %q: %w", step.Brick, err)
	}
	return seg, nil
}

// segmentName is the step's explicit name or fallback.
func segmentName(step config.StepDef, fallback string) string {
	if step.Name != "" {
		return step.Name
	}
	return fallback
}
