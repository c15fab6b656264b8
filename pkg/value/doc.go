// Package value holds the generic nested-value tree that rule files decode into.
//
// A tree is made of *Map (mapping with insertion-ordered keys), []any
// (sequence) and scalars (string, int, int64, float64, bool, nil). Key order
// survives decoding and JSON encoding so a response body template renders in
// the order it was written.
package value
