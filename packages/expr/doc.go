// Package expr evaluates step guard conditions like
//
//	status == 200
//	role contains "admin"
//	token exists
//
// using a small hand-rolled grammar: one operand, or two operands joined by
// a comparison operator. Operands are literals or variable names resolved
// against the run's variable store. There is deliberately no host-language
// evaluation and no arbitrary expression nesting.
package expr
