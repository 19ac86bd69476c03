package malib

import (
	"github.com/pkg/errors"
)

// registry tracks the policy population of every agent: ordered policy ids,
// their dense axis positions, and their configuration blobs. Positions are
// assigned in registration order and never change, so they index payoff
// tensor axes directly.
type registry struct {
	agents    []AgentID
	agentIdx  map[AgentID]int
	policies  map[AgentID][]PolicyID
	configs   map[AgentID][]PolicyConfig
	positions map[AgentID]map[PolicyID]int
}

func newRegistry(agents []AgentID) *registry {
	r := &registry{
		agents:    agents,
		agentIdx:  make(map[AgentID]int, len(agents)),
		policies:  make(map[AgentID][]PolicyID, len(agents)),
		configs:   make(map[AgentID][]PolicyConfig, len(agents)),
		positions: make(map[AgentID]map[PolicyID]int, len(agents)),
	}

	for i, agent := range agents {
		r.agentIdx[agent] = i
		r.policies[agent] = nil
		r.configs[agent] = nil
		r.positions[agent] = make(map[PolicyID]int)
	}
	return r
}

// agentAxis resolves an agent to its tensor axis.
func (r *registry) agentAxis(agent AgentID) (int, error) {
	i, ok := r.agentIdx[agent]
	if !ok {
		return 0, errors.Errorf("unregistered agent name %q", agent)
	}
	return i, nil
}

func (r *registry) has(agent AgentID, policyID PolicyID) bool {
	_, ok := r.positions[agent][policyID]
	return ok
}

func (r *registry) count(agent AgentID) int {
	return len(r.policies[agent])
}

// add appends a policy to the agent's population at the next position.
// The caller must have checked that the agent exists and the id is new.
func (r *registry) add(agent AgentID, policyID PolicyID, config PolicyConfig) {
	r.positions[agent][policyID] = len(r.policies[agent])
	r.policies[agent] = append(r.policies[agent], policyID)
	r.configs[agent] = append(r.configs[agent], config)
}

// resolve maps a sequence of policy ids to axis indices for one agent.
// Unknown ids and repeats are precondition violations.
func (r *registry) resolve(agent AgentID, policyIDs []PolicyID) ([]int, error) {
	if _, err := r.agentAxis(agent); err != nil {
		return nil, err
	}

	indices := make([]int, len(policyIDs))
	seen := make(map[PolicyID]struct{}, len(policyIDs))
	for i, pid := range policyIDs {
		pos, ok := r.positions[agent][pid]
		if !ok {
			return nil, errors.Errorf("unregistered policy %q for agent %q", pid, agent)
		}
		if _, dup := seen[pid]; dup {
			return nil, errors.Errorf("repeated policy %q in selection for agent %q", pid, agent)
		}
		seen[pid] = struct{}{}
		indices[i] = pos
	}
	return indices, nil
}

// entries returns the agent's full population in registration order.
func (r *registry) entries(agent AgentID) []PolicyEntry {
	pids := r.policies[agent]
	entries := make([]PolicyEntry, len(pids))
	for i, pid := range pids {
		entries[i] = PolicyEntry{ID: pid, Config: r.configs[agent][i]}
	}
	return entries
}
