// Package optimize rewrites expression trees into specialized kernels.
//
// Each rule inspects one node (and, for fused patterns, a few levels below it) and either
// returns a replacement node or nil to decline. Declining is never an error: the generic
// executors in package ops stay reachable for every shape a rule does not claim.
package optimize
