// Package policy implements admission rules that decide whether a task may
// run autonomously or must wait for a human decision, plus hard constraints
// checked right before execution. Evaluation is pure and deterministic given
// the configuration.
package policy
