// Package eval compiles expression trees of tensor operations into flat instruction programs
// and runs them over a value stack.
//
// Every value produced during a run is owned by a Stash and referenced through generation
// checked handles, so values from a previous run can not be read by accident. A static
// MutabilityProof tells specialized instructions when they may overwrite an operand in place.
package eval
