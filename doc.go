// Package malib implements the payoff engine behind empirical
// game-theoretic analysis of multi-agent policy populations.
//
// A PayoffManager owns one growable payoff table per agent. As a trainer
// produces new policies, RegisterPolicy returns the matchups that must be
// simulated before the tables are complete, UpdatePayoff ingests simulation
// results, and EquilibriumFor computes (or serves a cached) mixed-strategy
// equilibrium over any selected sub-population. Two interchangeable solvers
// are provided: fictitious play for 2-player games and alpha-rank for the
// general K-player case.
//
// The engine is an in-process library: it does not run simulations, train
// policies, or persist state. Persistence collaborators are provided
// separately (see the rdbstore package and PayoffTable.MarshalTo).
package malib
