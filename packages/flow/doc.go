// Package flow defines the user-authored flow model: an ordered list of
// steps, each naming an endpoint plus its parameter bindings, guard
// condition and post-call extraction rules. Flows are loaded from YAML
// files and validated structurally before a run.
package flow
