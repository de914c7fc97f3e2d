// Package plan derives execution plans from value types.
//
// Plans are pure functions of operand types and are immutable once built, so they are computed
// once per type pair (see Cache) and reused for every pair of subspaces joined at runtime.
//
// A DenseJoinPlan describes the nested loops walking the dense cells of the output in row-major
// order together with the strides advancing each operand; a stride of 0 means the operand is
// broadcast across that loop. A SparseJoinPlan classifies each mapped output dimension by the
// operand(s) contributing it and records, for dimensions present in both operands, their positions
// within each operand's label tuple so that subspace addresses can be matched without name lookups.
package plan
