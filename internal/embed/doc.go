// Package embed holds the primitives shared by the embedding pipeline.
//
// The simulation works on dense row-major matrices from gonum:
//
//   - coordinates: N particles by D output coordinates, kept in [0,1]
//   - affinities: N by N pairwise dissimilarities, read-only after build
//   - weights: N positive values, all ones unless a weight column is given
//
// # Errors
//
// Construction problems are reported with the sentinel errors in this
// package, wrapped with detail. A shape mismatch discovered inside a step
// is a programming bug and panics with a [ContractError].
//
// # Parallelism
//
// [ParallelRows] splits row ranges across workers. Each row is still
// processed by exactly one goroutine in a fixed order, so results do not
// depend on the worker count.
package embed
