package malib

import "github.com/apexrl/malib/tensor"

// AgentID identifies one strategic role in the game under evaluation.
// The set of agents is fixed when a PayoffManager is constructed, and their
// order defines the axis order of every payoff tensor.
type AgentID string

// PolicyID identifies one candidate policy within an agent's population.
type PolicyID string

// PolicyConfig is the opaque configuration blob attached to a policy.
// The engine never inspects it; it is carried through to matchup
// descriptors so that an external simulator can instantiate the policy.
type PolicyConfig map[string]interface{}

// MetricType names one scalar statistic reported by a simulation.
type MetricType string

// MetricReward is the per-agent reward metric written into payoff tables.
const MetricReward MetricType = "reward"

// Statistics holds the scalar metrics realized by one agent in a simulation.
type Statistics map[MetricType]float64

// PolicyEntry pairs a policy id with its configuration.
type PolicyEntry struct {
	ID     PolicyID
	Config PolicyConfig
}

// Matchup is one fully specified policy combination awaiting simulation:
// one policy entry per agent.
type Matchup map[AgentID]PolicyEntry

// PopulationMapping selects a sub-population: an ordered sequence of policy
// ids per agent. It addresses payoff sub-tensors and keys the equilibrium
// cache.
type PopulationMapping map[AgentID][]PolicyID

// Equilibrium is a mixed-strategy profile: for each agent, a probability
// per selected policy. Probabilities are non-negative and sum to 1 per agent.
type Equilibrium map[AgentID]map[PolicyID]float64

// RolloutFeedback reports the outcome of one simulated matchup: the exact
// policy combination that was played and the statistics realized by each
// agent.
type RolloutFeedback struct {
	PolicyCombination map[AgentID]PolicyID
	Statistics        map[AgentID]Statistics
}

// Solver computes a mixed-strategy profile from per-agent payoff tensors.
//
// Payoffs are given in agent order, one tensor per agent, each with one axis
// per agent. The result contains one probability vector per agent, indexed
// the same way as the corresponding tensor axis.
type Solver interface {
	Solve(payoffs []*tensor.Dense) ([][]float64, error)
}

// SolveMethod selects which Solver a PayoffManager uses.
type SolveMethod string

const (
	// FictitiousPlayMethod solves 2-player games by iterated best response.
	FictitiousPlayMethod SolveMethod = "fictitious_play"
	// AlphaRankMethod ranks joint profiles of K-player games by the
	// stationary distribution of a response-graph Markov chain.
	AlphaRankMethod SolveMethod = "alpha_rank"
)
