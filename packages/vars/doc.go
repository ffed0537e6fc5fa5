// Package vars holds the variable store shared across a flow run.
//
// It provides:
//   - Named JSON-value bindings with change notification
//   - Template interpolation of {{name}} tokens (fail-open on misses)
//   - $-rooted path extraction from JSON response bodies
//   - Ordered extraction rules that write captured values back to the store
//
// Values extracted after one step become visible to the interpolation of
// every later step, enabling request chaining.
package vars
