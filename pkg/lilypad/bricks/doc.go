// Package bricks provides configurable segment factories and assembles
// pipeline definitions into compiled pipelines.
//
// # Catalog
//
// A Catalog maps brick names to factories. Default returns one holding the
// built-in bricks:
//
//	inject        set a key to a fixed value        key, value
//	prompt        render a template into a key      template, key, missing
//	llm           call the configured LLM client    model, system, max_tokens, temperature,
//	                                                prompt_key, answer_key, max_attempts
//	extract-json  parse the first JSON value        from, to
//	lines         split text into list items        from, to
//	dedupe        drop case-insensitive duplicates  from, to
//	fresh         start a new provider session
//
// Register adds project-specific bricks:
//
//	cat := bricks.Default()
//	cat.Register("score", func(step config.StepDef, deps bricks.Deps) (lilypad.Segment, error) {
//	    threshold := config.NewOptions(step.Options).Float("threshold", 0.65)
//	    return newScoreFilter(step.Name, threshold), nil
//	})
//
// # Assembly
//
//	def, err := config.FromFile("brief.yaml")
//	p, initial, err := bricks.Assemble(def, bricks.Default(), bricks.Deps{Client: client})
//	out, err := p.Run(ctx, initial)
//
// Catalog is safe for concurrent use.
package bricks
