// Package builtin provides the template functions callable from variable
// tokens, e.g. {{uuid()}} or {{randomInt(1, 100)}}. Functions live in a
// Registry so callers can add their own without touching a global.
package builtin
