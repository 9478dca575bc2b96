/*
Package config loads pipeline definitions and gives bricks typed access to
their options.

# Pipeline Definitions

A definition names a rhythm (an explicit pattern or a preset) and the bricks
that fill its slots, in order:

	name: market-brief
	preset: BRIEF
	initial:
	  topic: rate cuts
	steps:
	  - brick: prompt
	    options: {template: "Draft notes on ${topic}"}
	  - brick: llm
	    options: {model: gpt-4o}
	  ...

Without a pattern or preset the rhythm is spelled by the steps themselves:
each step carries a symbol, and trim steps carry only a budget.

	steps:
	  - {brick: prompt, symbol: D, options: {template: "..."}}
	  - {trim: 800}
	  - {brick: llm, symbol: "M(claude-3-7-sonnet-20250219)"}

Load with FromFile (.yaml, .yml, .json), FromYAML or FromJSON. Unknown keys
are rejected. Validate reports every problem at once.

# Brick Options

Options wraps a step's option map with accessors that fall back to a
default on a missing key or a value of the wrong type:

	opts := config.NewOptions(step.Options)
	model := opts.String("model", "")
	budget := opts.Int("max_tokens", 1024)
	timeout := opts.Duration("timeout", 30*time.Second)

Decode fills a struct from the same map with mapstructure.

Options is safe for concurrent reads.
*/
package config
