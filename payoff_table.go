package malib

import (
	"github.com/pkg/errors"

	"github.com/apexrl/malib/tensor"
)

// PayoffTable holds the empirical payoffs realized by one agent across all
// policy combinations, together with a parallel boolean array marking which
// combinations have been simulated.
//
// The table has one axis per agent (in agent order); the length of axis i is
// the number of policies registered for agent i. All agents' tables grow in
// lockstep, so every table always has the same shape.
type PayoffTable struct {
	owner AgentID
	reg   *registry

	table     *tensor.Dense
	simulated *tensor.Bits
}

func newPayoffTable(owner AgentID, reg *registry) *PayoffTable {
	shape := make([]int, len(reg.agents))
	return &PayoffTable{
		owner:     owner,
		reg:       reg,
		table:     tensor.NewDense(shape),
		simulated: tensor.NewBits(shape),
	}
}

// Agent returns the agent whose payoffs this table holds.
func (pt *PayoffTable) Agent() AgentID {
	return pt.owner
}

// Shape returns the current per-axis lengths.
func (pt *PayoffTable) Shape() []int {
	return pt.table.Shape()
}

// Grow appends one zero/not-done slice along the given agent's axis.
func (pt *PayoffTable) Grow(agent AgentID) error {
	axis, err := pt.reg.agentAxis(agent)
	if err != nil {
		return err
	}

	pt.table.Grow(axis)
	pt.simulated.Grow(axis)
	return nil
}

// Get returns the payoff sub-tensor addressed by the given selection. The
// selection must name every agent; each axis of the result follows the order
// of that agent's policy id sequence.
func (pt *PayoffTable) Get(selection PopulationMapping) (*tensor.Dense, error) {
	sel, err := pt.resolveSelection(selection)
	if err != nil {
		return nil, err
	}
	return pt.table.Gather(sel), nil
}

// Set writes the payoff realized by the owning agent for a single policy
// combination and marks that cell simulated.
func (pt *PayoffTable) Set(point map[AgentID]PolicyID, value float64) error {
	idx, err := pt.resolvePoint(point)
	if err != nil {
		return err
	}

	pt.table.SetAt(idx, value)
	pt.simulated.SetAt(idx, true)
	return nil
}

// IsDone reports whether every cell addressed by the selection has been
// populated by a completed simulation.
func (pt *PayoffTable) IsDone(selection PopulationMapping) (bool, error) {
	sel, err := pt.resolveSelection(selection)
	if err != nil {
		return false, err
	}
	return pt.simulated.AllSet(sel), nil
}

// Matrix returns a copy of the full payoff array, for diagnostics and
// checkpointing by external collaborators.
func (pt *PayoffTable) Matrix() *tensor.Dense {
	return pt.table.Clone()
}

func (pt *PayoffTable) resolveSelection(selection PopulationMapping) ([][]int, error) {
	sel := make([][]int, len(pt.reg.agents))
	for axis, agent := range pt.reg.agents {
		pids, ok := selection[agent]
		if !ok {
			return nil, errors.Errorf("selection is missing agent %q", agent)
		}

		indices, err := pt.reg.resolve(agent, pids)
		if err != nil {
			return nil, err
		}
		sel[axis] = indices
	}
	return sel, nil
}

func (pt *PayoffTable) resolvePoint(point map[AgentID]PolicyID) ([]int, error) {
	idx := make([]int, len(pt.reg.agents))
	for axis, agent := range pt.reg.agents {
		pid, ok := point[agent]
		if !ok {
			return nil, errors.Errorf("policy combination is missing agent %q", agent)
		}

		indices, err := pt.reg.resolve(agent, []PolicyID{pid})
		if err != nil {
			return nil, err
		}
		idx[axis] = indices[0]
	}
	return idx, nil
}
