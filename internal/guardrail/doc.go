// Package guardrail models safety checkpoints evaluated at the input,
// generation, and output boundaries of the pipeline. Checkpoints are
// stateless; chains combine multiple checkpoints with most-severe-wins
// semantics, and Policy escalates flags to blocks per stage.
package guardrail
