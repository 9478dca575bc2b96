/*
Package template renders prompt templates against a lilypad.Ctx.

# Basic Usage

	c := lilypad.Ctx{"topic": "tides", "answer": map[string]any{"title": "Moon pull"}}
	prompt := template.Render("Write about ${topic}. Build on: $answer.title", c)
	// prompt: "Write about tides. Build on: Moon pull"

# Placeholders

  - ${path} - brace style, recommended
  - $path - dollar style; ends at the first character that cannot continue
    the path, so $port never matches inside $portNumber

A path is a Ctx key optionally followed by dotted segments that descend into
nested maps and, with numeric segments, slices: ${items.0.name}.

Expansion is a single pass: text substituted for one placeholder is never
scanned for further placeholders.

# Values

Strings are inserted as-is. A transcript ([]lilypad.Message) renders as one
"role: content" line per turn. Other maps and slices render as compact JSON,
and everything else with %v.

# Missing Values

By default a placeholder with no value is kept verbatim. Use
WithMissingAction(MissingEmpty) to drop it or MissingError to fail with an
*UndefinedVariableError.

Expander is safe for concurrent use after construction.
*/
package template
