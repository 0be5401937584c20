// Package ctrnn implements a continuous-time recurrent neural network
// simulated with an explicit Euler discretization.
//
// The network is a leaky integrator over a hidden state x:
//
//	r      = relu(tanh(x))
//	dx/dt  = (-x + (Wrec ⊙ Mask)·r + Win·u + bias) / tau + noise
//	y      = Wout·r
//
// Mask zeroes the diagonal of the recurrent weight matrix, so no unit
// drives itself. The output at step t is read from the rate computed
// before that step's state update; this one-step lag is part of the
// model, not an artifact.
//
// # Thread Safety
//
// A [Network] is NOT safe for concurrent mutation. [Network.Forward]
// may evaluate the independent batch dimension in parallel, but callers
// must serialize forward passes against parameter updates.
package ctrnn
