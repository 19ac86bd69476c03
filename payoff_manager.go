package malib

import (
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/apexrl/malib/tensor"
)

// PayoffManager maintains the empirical payoff tables of a fixed set of
// agents, generates the matchups that still need simulation as new policies
// register, and computes equilibria over selected sub-populations.
//
// A manager is designed for single-writer, request/response use: one
// orchestrator drives register -> simulate -> ingest -> solve sequentially.
// It performs no internal locking; concurrent calls must be serialized by
// the caller. Independent managers do not interact.
type PayoffManager struct {
	agents []AgentID
	solver Solver

	reg    *registry
	tables map[AgentID]*PayoffTable

	// equilibria caches computed equilibria keyed by the canonical hash of
	// their population mapping. Entries are never invalidated.
	equilibria map[string]Equilibrium
}

// NewPayoffManager creates a manager for the given ordered agent set, using
// the named solve method for equilibrium computation.
func NewPayoffManager(agents []AgentID, method SolveMethod) (*PayoffManager, error) {
	solver, err := NewSolver(method)
	if err != nil {
		return nil, err
	}
	return NewPayoffManagerWithSolver(agents, solver)
}

// NewPayoffManagerWithSolver is like NewPayoffManager with an explicit
// Solver implementation.
func NewPayoffManagerWithSolver(agents []AgentID, solver Solver) (*PayoffManager, error) {
	if len(agents) == 0 {
		return nil, errors.New("at least one agent is required")
	}

	seen := make(map[AgentID]struct{}, len(agents))
	for _, agent := range agents {
		if _, dup := seen[agent]; dup {
			return nil, errors.Errorf("duplicate agent name %q", agent)
		}
		seen[agent] = struct{}{}
	}

	ordered := append([]AgentID(nil), agents...)
	reg := newRegistry(ordered)
	tables := make(map[AgentID]*PayoffTable, len(ordered))
	for _, agent := range ordered {
		tables[agent] = newPayoffTable(agent, reg)
	}

	return &PayoffManager{
		agents:     ordered,
		solver:     solver,
		reg:        reg,
		tables:     tables,
		equilibria: make(map[string]Equilibrium),
	}, nil
}

// NewSolver returns the Solver implementation for the given method tag,
// with default parameters.
func NewSolver(method SolveMethod) (Solver, error) {
	switch method {
	case FictitiousPlayMethod:
		return &FictitiousPlay{}, nil
	case AlphaRankMethod:
		return &AlphaRank{}, nil
	default:
		return nil, errors.Errorf("unknown solve method %q", method)
	}
}

// Agents returns the agent set in axis order.
func (m *PayoffManager) Agents() []AgentID {
	return append([]AgentID(nil), m.agents...)
}

// RegisterPolicy adds a new policy to an agent's population and returns the
// matchups that must be simulated before payoff tables are complete for it:
// the cross-product of the new policy against every other agent's full
// population.
//
// Registering an already-known policy id is an idempotent no-op. While some
// agent still has an empty population no matchup can be fully specified and
// an empty list is returned; the registration that fills the last empty
// population returns the full cross-product over all registered policies,
// covering the combinations deferred by earlier registrations.
func (m *PayoffManager) RegisterPolicy(agent AgentID, policyID PolicyID, config PolicyConfig) ([]Matchup, error) {
	if _, err := m.reg.agentAxis(agent); err != nil {
		return nil, err
	}

	if m.reg.has(agent, policyID) {
		glog.V(1).Infof("Policy %q already registered for agent %q", policyID, agent)
		return nil, nil
	}

	wasEmpty := m.reg.count(agent) == 0
	m.reg.add(agent, policyID, config)
	for _, a := range m.agents {
		if err := m.tables[a].Grow(agent); err != nil {
			return nil, err
		}
	}

	for _, a := range m.agents {
		if m.reg.count(a) == 0 {
			glog.V(1).Infof("Agent %q has no policies yet, deferring matchups for %q/%q", a, agent, policyID)
			return nil, nil
		}
	}

	var matchups []Matchup
	if wasEmpty {
		// This registration closed the last empty population: earlier
		// registrations were deferred, so the whole backlog is due.
		matchups = m.crossProduct(func(a AgentID) []PolicyEntry {
			return m.reg.entries(a)
		})
	} else {
		matchups = m.crossProduct(func(a AgentID) []PolicyEntry {
			if a == agent {
				return []PolicyEntry{{ID: policyID, Config: config}}
			}
			return m.reg.entries(a)
		})
	}

	glog.V(2).Infof("Registered %q/%q: %d pending matchups", agent, policyID, len(matchups))
	return matchups, nil
}

// crossProduct enumerates one Matchup per combination of the per-agent entry
// lists, preserving agent order.
func (m *PayoffManager) crossProduct(entriesFor func(AgentID) []PolicyEntry) []Matchup {
	lists := make([][]PolicyEntry, len(m.agents))
	total := 1
	for i, a := range m.agents {
		lists[i] = entriesFor(a)
		total *= len(lists[i])
	}
	if total == 0 {
		return nil
	}

	matchups := make([]Matchup, 0, total)
	idx := make([]int, len(m.agents))
	for n := 0; n < total; n++ {
		matchup := make(Matchup, len(m.agents))
		for i, a := range m.agents {
			matchup[a] = lists[i][idx[i]]
		}
		matchups = append(matchups, matchup)

		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(lists[i]) {
				break
			}
			idx[i] = 0
		}
	}
	return matchups
}

// UpdatePayoff ingests one simulation result: for every agent, the reward
// metric is written into that agent's payoff table and the combination is
// marked simulated. The write is atomic across agents in the sense that a
// single call updates every table; there are no partial multi-agent writes.
func (m *PayoffManager) UpdatePayoff(feedback RolloutFeedback) error {
	// Validate the whole batch before touching any table so that a bad
	// feedback leaves every table unchanged.
	rewards := make([]float64, len(m.agents))
	for i, agent := range m.agents {
		stats, ok := feedback.Statistics[agent]
		if !ok {
			return errors.Errorf("feedback is missing statistics for agent %q", agent)
		}

		reward, ok := stats[MetricReward]
		if !ok {
			return errors.Errorf("feedback for agent %q has no %q metric", agent, MetricReward)
		}

		if _, err := m.tables[agent].resolvePoint(feedback.PolicyCombination); err != nil {
			return errors.Wrapf(err, "updating payoff for agent %q", agent)
		}

		rewards[i] = reward
	}

	for i, agent := range m.agents {
		if err := m.tables[agent].Set(feedback.PolicyCombination, rewards[i]); err != nil {
			return errors.Wrapf(err, "updating payoff for agent %q", agent)
		}
	}

	glog.V(1).Infof("Updated payoff for %v", feedback.PolicyCombination)
	return nil
}

// CheckDone reports whether every agent's table has a simulated value for
// every combination in the given selection.
func (m *PayoffManager) CheckDone(selection PopulationMapping) (bool, error) {
	for agent := range selection {
		table, ok := m.tables[agent]
		if !ok {
			return false, errors.Errorf("unregistered agent name %q", agent)
		}

		done, err := table.IsDone(selection)
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
	}
	return true, nil
}

// ComputeEquilibrium solves for a mixed-strategy equilibrium over the given
// selection. The result is not cached; use UpdateEquilibrium to store it.
//
// If every agent's selection contains exactly one policy the outcome is fully
// determined and the trivial equilibrium is returned without invoking the
// solver.
func (m *PayoffManager) ComputeEquilibrium(selection PopulationMapping) (Equilibrium, error) {
	payoffs := make([]*tensor.Dense, len(m.agents))
	for i, agent := range m.agents {
		sub, err := m.tables[agent].Get(selection)
		if err != nil {
			return nil, err
		}
		payoffs[i] = sub
	}

	if allSingleton(m.agents, selection) {
		eqbm := make(Equilibrium, len(m.agents))
		for _, agent := range m.agents {
			eqbm[agent] = map[PolicyID]float64{selection[agent][0]: 1.0}
		}
		return eqbm, nil
	}

	dist, err := m.solver.Solve(payoffs)
	if err != nil {
		return nil, err
	}

	eqbm := make(Equilibrium, len(m.agents))
	for i, agent := range m.agents {
		pids := selection[agent]
		if len(dist[i]) != len(pids) {
			return nil, errors.Errorf("solver returned %d probabilities for agent %q with %d policies",
				len(dist[i]), agent, len(pids))
		}

		probs := make(map[PolicyID]float64, len(pids))
		for j, pid := range pids {
			probs[pid] = dist[i][j]
		}
		eqbm[agent] = probs
	}
	return eqbm, nil
}

// UpdateEquilibrium stores an equilibrium for the given selection, silently
// overwriting any previous entry under the same canonical key.
func (m *PayoffManager) UpdateEquilibrium(selection PopulationMapping, eqbm Equilibrium) error {
	key, err := m.hashPopulationMapping(selection)
	if err != nil {
		return err
	}

	m.equilibria[key] = copyEquilibrium(eqbm)
	glog.V(1).Infof("Stored equilibrium for %q", key)
	return nil
}

// GetEquilibrium retrieves a previously stored equilibrium for the given
// selection. Single-agent selections are served directly as the uniform
// distribution over the selected policies, without a cache lookup. For all
// other selections the equilibrium must have been stored beforehand.
func (m *PayoffManager) GetEquilibrium(selection PopulationMapping) (Equilibrium, error) {
	if len(selection) == 1 {
		eqbm := make(Equilibrium, 1)
		for agent, pids := range selection {
			if _, err := m.reg.resolve(agent, pids); err != nil {
				return nil, err
			}

			probs := make(map[PolicyID]float64, len(pids))
			for _, pid := range pids {
				probs[pid] = 1.0 / float64(len(pids))
			}
			eqbm[agent] = probs
		}
		return eqbm, nil
	}

	key, err := m.hashPopulationMapping(selection)
	if err != nil {
		return nil, err
	}

	eqbm, ok := m.equilibria[key]
	if !ok {
		return nil, errors.Errorf("no equilibrium stored for selection %q", key)
	}
	return copyEquilibrium(eqbm), nil
}

// EquilibriumFor returns the equilibrium for the given selection, serving
// the cached value when present and computing then caching it otherwise.
func (m *PayoffManager) EquilibriumFor(selection PopulationMapping) (Equilibrium, error) {
	if len(selection) == 1 {
		return m.GetEquilibrium(selection)
	}

	key, err := m.hashPopulationMapping(selection)
	if err != nil {
		return nil, err
	}

	if eqbm, ok := m.equilibria[key]; ok {
		return copyEquilibrium(eqbm), nil
	}

	eqbm, err := m.ComputeEquilibrium(selection)
	if err != nil {
		return nil, err
	}

	m.equilibria[key] = copyEquilibrium(eqbm)
	return eqbm, nil
}

// Aggregate computes the expected payoff per agent under the given
// equilibrium, which must cover every agent.
//
// With brs nil, each agent's payoff sub-tensor over the equilibrium's
// population is weighted by the outer product of all agents' probability
// vectors. With brs, each named agent is pinned to the single given policy:
// its axis has length one and is not weighted, so the result is the expected
// payoff of the fixed policy against the equilibrium mixtures of everyone
// else. Agents not named in brs keep a zero entry in the result.
func (m *PayoffManager) Aggregate(eqbm Equilibrium, brs map[AgentID]PolicyID) (map[AgentID]float64, error) {
	population := make(PopulationMapping, len(m.agents))
	weights := make(map[AgentID][]float64, len(m.agents))
	for _, agent := range m.agents {
		dist, ok := eqbm[agent]
		if !ok {
			return nil, errors.Errorf("equilibrium is missing agent %q", agent)
		}

		pids := make([]PolicyID, 0, len(dist))
		for pid := range dist {
			pids = append(pids, pid)
		}
		sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })

		ws := make([]float64, len(pids))
		for i, pid := range pids {
			ws[i] = dist[pid]
		}
		population[agent] = pids
		weights[agent] = ws
	}

	result := make(map[AgentID]float64, len(m.agents))
	for _, agent := range m.agents {
		result[agent] = 0.0
	}

	if brs == nil {
		vectors := make([][]float64, len(m.agents))
		for i, agent := range m.agents {
			vectors[i] = weights[agent]
		}
		joint := tensor.Outer(vectors)

		for _, agent := range m.agents {
			sub, err := m.tables[agent].Get(population)
			if err != nil {
				return nil, err
			}
			result[agent] = sub.MulSum(joint)
		}
		return result, nil
	}

	for agent, brPolicy := range brs {
		if _, err := m.reg.agentAxis(agent); err != nil {
			return nil, err
		}

		pinned := make(PopulationMapping, len(m.agents))
		for a, pids := range population {
			pinned[a] = pids
		}
		pinned[agent] = []PolicyID{brPolicy}

		vectors := make([][]float64, len(m.agents))
		for i, a := range m.agents {
			if a == agent {
				vectors[i] = []float64{1.0}
			} else {
				vectors[i] = weights[a]
			}
		}

		sub, err := m.tables[agent].Get(pinned)
		if err != nil {
			return nil, err
		}
		result[agent] = sub.MulSum(tensor.Outer(vectors))
	}
	return result, nil
}

// Payoffs returns the per-agent payoff tables for read-only inspection.
func (m *PayoffManager) Payoffs() map[AgentID]*PayoffTable {
	tables := make(map[AgentID]*PayoffTable, len(m.tables))
	for agent, table := range m.tables {
		tables[agent] = table
	}
	return tables
}

// PayoffMatrix returns a copy of the given agent's full payoff array.
func (m *PayoffManager) PayoffMatrix(agent AgentID) (*tensor.Dense, error) {
	table, ok := m.tables[agent]
	if !ok {
		return nil, errors.Errorf("unregistered agent name %q", agent)
	}
	return table.Matrix(), nil
}

// hashPopulationMapping builds the canonical cache key for a selection: for
// each agent in axis order, the sorted policy ids concatenated. The key is
// independent of the order ids were given in but sensitive to membership.
func (m *PayoffManager) hashPopulationMapping(selection PopulationMapping) (string, error) {
	var sb strings.Builder
	for _, agent := range m.agents {
		pids, ok := selection[agent]
		if !ok {
			return "", errors.Errorf("selection is missing agent %q", agent)
		}

		sorted := append([]PolicyID(nil), pids...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		sb.WriteString(string(agent))
		sb.WriteByte(':')
		for _, pid := range sorted {
			sb.WriteString(string(pid))
			sb.WriteByte(',')
		}
		sb.WriteByte(';')
	}
	return sb.String(), nil
}

func allSingleton(agents []AgentID, selection PopulationMapping) bool {
	for _, agent := range agents {
		if len(selection[agent]) != 1 {
			return false
		}
	}
	return true
}

func copyEquilibrium(eqbm Equilibrium) Equilibrium {
	out := make(Equilibrium, len(eqbm))
	for agent, dist := range eqbm {
		probs := make(map[PolicyID]float64, len(dist))
		for pid, p := range dist {
			probs[pid] = p
		}
		out[agent] = probs
	}
	return out
}
