// Package train fits the path-integration network to generated
// trajectories.
//
// The objective is the composite loss
//
//	MSE(y, target) + lambda * mean(r^2)
//
// averaged over all batch, time, and unit elements. Gradients are
// computed by reverse-mode backpropagation through the unrolled Euler
// integration; only Win, Wrec, bias and Wout receive gradients, the
// recurrent mask stays fixed. Parameter updates run strictly between
// forward passes, never concurrently with one.
package train
