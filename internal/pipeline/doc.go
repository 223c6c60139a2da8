// Package pipeline runs batch cleaning pipelines described in YAML.
//
// A pipeline names an input file, an ordered list of steps and an output
// path:
//
//	input: sales.csv
//	output: cleaned_data.csv
//	steps:
//	  - type: drop_columns
//	    columns: [notes]
//	  - type: missing
//	    strategy: median
//	  - type: dedupe
//	  - type: convert
//	    column: day
//	    to: date
//
// Steps are built from a Registry of factories keyed by step type and are
// executed in order against one dataset. Each step records a StepState; a
// failed step stops the run unless it sets continue_on_error.
package pipeline
