package malib

import (
	"encoding/gob"
	"io"

	"github.com/apexrl/malib/tensor"
)

// TableSnapshot is the persistence image of one agent's payoff table: the
// dense payoff values, the parallel simulated flags, and the shape both are
// laid out in (row-major). It is what external persistence collaborators
// checkpoint; the engine itself never reads snapshots back into a live
// manager.
type TableSnapshot struct {
	Agent     AgentID
	Shape     []int
	Payoffs   []float64
	Simulated []bool
}

// Snapshot captures the table's current contents.
func (pt *PayoffTable) Snapshot() TableSnapshot {
	return TableSnapshot{
		Agent:     pt.owner,
		Shape:     pt.table.Shape(),
		Payoffs:   pt.table.Values(),
		Simulated: pt.simulated.Values(),
	}
}

// MarshalTo writes a snapshot of the table to w.
func (pt *PayoffTable) MarshalTo(w io.Writer) error {
	snapshot := pt.Snapshot()
	enc := gob.NewEncoder(w)

	if err := enc.Encode(snapshot.Agent); err != nil {
		return err
	}

	if err := enc.Encode(snapshot.Shape); err != nil {
		return err
	}

	if err := enc.Encode(snapshot.Payoffs); err != nil {
		return err
	}

	return enc.Encode(snapshot.Simulated)
}

// LoadTableSnapshot reads a snapshot written by MarshalTo.
func LoadTableSnapshot(r io.Reader) (*TableSnapshot, error) {
	dec := gob.NewDecoder(r)
	snapshot := &TableSnapshot{}

	if err := dec.Decode(&snapshot.Agent); err != nil {
		return nil, err
	}

	if err := dec.Decode(&snapshot.Shape); err != nil {
		return nil, err
	}

	if err := dec.Decode(&snapshot.Payoffs); err != nil {
		return nil, err
	}

	if err := dec.Decode(&snapshot.Simulated); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// Dense returns the snapshot's payoff values as a tensor.
func (s *TableSnapshot) Dense() *tensor.Dense {
	return tensor.NewDenseFromValues(s.Shape, s.Payoffs)
}

// Done returns the snapshot's simulated flags as a tensor.
func (s *TableSnapshot) Done() *tensor.Bits {
	return tensor.NewBitsFromValues(s.Shape, s.Simulated)
}
