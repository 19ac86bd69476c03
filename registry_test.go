package malib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryResolve(t *testing.T) {
	reg := newRegistry([]AgentID{"a", "b"})
	reg.add("a", "p0", nil)
	reg.add("a", "p1", nil)
	reg.add("b", "q0", nil)

	indices, err := reg.resolve("a", []PolicyID{"p1", "p0"})
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, indices)

	indices, err = reg.resolve("b", []PolicyID{"q0"})
	require.NoError(t, err)
	require.Equal(t, []int{0}, indices)
}

func TestRegistryResolveUnknownAgent(t *testing.T) {
	reg := newRegistry([]AgentID{"a"})
	_, err := reg.resolve("nope", []PolicyID{"p0"})
	require.Error(t, err)
}

func TestRegistryResolveUnknownPolicy(t *testing.T) {
	reg := newRegistry([]AgentID{"a"})
	reg.add("a", "p0", nil)

	_, err := reg.resolve("a", []PolicyID{"p1"})
	require.Error(t, err)
}

func TestRegistryResolveRejectsRepeats(t *testing.T) {
	reg := newRegistry([]AgentID{"a"})
	reg.add("a", "p0", nil)
	reg.add("a", "p1", nil)

	_, err := reg.resolve("a", []PolicyID{"p0", "p0"})
	require.Error(t, err)
}

func TestRegistryPositionsAreDense(t *testing.T) {
	reg := newRegistry([]AgentID{"a"})
	reg.add("a", "p2", PolicyConfig{"lr": 0.1})
	reg.add("a", "p0", nil)
	reg.add("a", "p7", nil)

	// Positions follow registration order, not id order.
	indices, err := reg.resolve("a", []PolicyID{"p2", "p0", "p7"})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, indices)

	entries := reg.entries("a")
	require.Len(t, entries, 3)
	require.Equal(t, PolicyID("p2"), entries[0].ID)
	require.Equal(t, PolicyConfig{"lr": 0.1}, entries[0].Config)
}
