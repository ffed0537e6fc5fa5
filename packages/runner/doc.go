// Package runner executes flows: for each step in order it resolves the
// endpoint, interpolates parameters from the variable store, performs the
// HTTP call through an injected transport, and applies the step's
// extraction rules so later steps can reference the captured values.
//
// Execution is strictly sequential. A step never starts before the
// previous step's result has been produced and its extractions applied.
// Every failure mode below RunFlow is a value on the StepResult; nothing
// escapes as a panic.
package runner
