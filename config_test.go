package malib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
experiment_id: psro-atari-01
agents: [agent0, agent1]
solve_method: alpha_rank
alpha_rank_population: 100
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "psro-atari-01", cfg.ExperimentID)
	require.Equal(t, []AgentID{"agent0", "agent1"}, cfg.Agents)
	require.Equal(t, AlphaRankMethod, cfg.SolveMethod)
	require.Equal(t, 100, cfg.AlphaRankPopulation)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `agents: [a, b]`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.ExperimentID)
	require.Equal(t, FictitiousPlayMethod, cfg.SolveMethod)
}

func TestLoadConfigRejectsBadMethod(t *testing.T) {
	path := writeConfig(t, `
agents: [a, b]
solve_method: simplex
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	require.Error(t, (&Config{SolveMethod: FictitiousPlayMethod}).Validate())
	require.Error(t, (&Config{Agents: []AgentID{"a", "a"}, SolveMethod: FictitiousPlayMethod}).Validate())
	require.Error(t, (&Config{Agents: []AgentID{"a", ""}, SolveMethod: FictitiousPlayMethod}).Validate())
	require.NoError(t, DefaultConfig("a", "b").Validate())
}

func TestNewPayoffManagerFromConfig(t *testing.T) {
	cfg := DefaultConfig("a", "b")
	cfg.FictitiousPlayIterations = 100

	m, err := NewPayoffManagerFromConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, []AgentID{"a", "b"}, m.Agents())

	fp, ok := m.solver.(*FictitiousPlay)
	require.True(t, ok)
	require.Equal(t, 100, fp.Iterations)
}
