// Package output renders flow results for the terminal. It consumes
// runner.FlowResult and vars snapshots only; the core never depends on a
// particular presentation.
//
// Formats:
//   - Console: colored pass/fail listing with an end-of-run summary
//   - JSON: machine-readable output for scripting and CI
package output
