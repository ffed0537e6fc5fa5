// Package bench runs a flow repeatedly and reports latency percentiles.
//
// Each iteration gets its own variable store cloned from the seed values,
// so extracted variables never leak between iterations. An optional rate
// limit spaces iterations out; concurrency controls how many run at once.
package bench
