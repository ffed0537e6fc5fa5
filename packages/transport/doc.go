// Package transport performs the actual network calls for the step runner.
// The runner only sees the Transport interface, so tests substitute an
// in-memory implementation and never touch the network.
package transport
