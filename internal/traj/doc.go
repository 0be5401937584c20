// Package traj generates synthetic head-direction trajectories for
// path-integration training.
//
// A trajectory starts at a uniform random heading and evolves by a
// zero-inflated, momentum-smoothed angular-velocity recurrence:
//
//	av[t]    = raw[t] + momentum*av[t-1]
//	theta[t] = theta[t-1] + av[t]*tau
//
// where raw[t] is exactly zero with probability PZero and otherwise
// N(0, Sigma^2). The network input is (sin θ0, cos θ0, av[t]) per step;
// the target is (sin θ[t], cos θ[t]).
package traj
