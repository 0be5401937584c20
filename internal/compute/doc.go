// Package compute selects where the batch dimension of a forward pass
// is evaluated.
//
// Sequences within a batch are independent, so a backend may fan them
// out across workers; the time dimension inside a sequence is strictly
// ordered and never parallelized. Backends change placement only, never
// numeric results:
//
//	backend, _ := compute.Select("parallel")
//	backend.ForEach(batchSize, func(i int) { ... })
package compute
