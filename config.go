package malib

import (
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes one experiment's payoff engine setup. It is typically
// loaded from a YAML file checked in alongside the experiment definition.
type Config struct {
	// ExperimentID labels the experiment. Generated if left blank.
	ExperimentID string `yaml:"experiment_id"`
	// Agents is the ordered agent set.
	Agents []AgentID `yaml:"agents"`
	// SolveMethod selects the equilibrium solver.
	// Defaults to fictitious play.
	SolveMethod SolveMethod `yaml:"solve_method"`

	// FictitiousPlayIterations overrides the best-response round count.
	FictitiousPlayIterations int `yaml:"fictitious_play_iterations"`
	// AlphaRankPopulation overrides the moran-model population size.
	AlphaRankPopulation int `yaml:"alpha_rank_population"`
	// AlphaRankMaxIntensity overrides the ranking-intensity sweep cap.
	AlphaRankMaxIntensity float64 `yaml:"alpha_rank_max_intensity"`
}

// DefaultConfig returns a fictitious-play config for the given agents with
// a generated experiment id.
func DefaultConfig(agents ...AgentID) *Config {
	return &Config{
		ExperimentID: uuid.NewString(),
		Agents:       agents,
		SolveMethod:  FictitiousPlayMethod,
	}
}

// LoadConfig reads a Config from a YAML file, fills defaults, and
// validates it.
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}

	if cfg.ExperimentID == "" {
		cfg.ExperimentID = uuid.NewString()
	}
	if cfg.SolveMethod == "" {
		cfg.SolveMethod = FictitiousPlayMethod
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the config can construct a manager.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return errors.New("config has no agents")
	}

	seen := make(map[AgentID]struct{}, len(c.Agents))
	for _, agent := range c.Agents {
		if agent == "" {
			return errors.New("config has an empty agent name")
		}
		if _, dup := seen[agent]; dup {
			return errors.Errorf("duplicate agent name %q", agent)
		}
		seen[agent] = struct{}{}
	}

	switch c.SolveMethod {
	case FictitiousPlayMethod, AlphaRankMethod:
	default:
		return errors.Errorf("unknown solve method %q", c.SolveMethod)
	}
	return nil
}

// NewPayoffManagerFromConfig builds a manager from a validated Config,
// applying any solver overrides it carries.
func NewPayoffManagerFromConfig(cfg *Config) (*PayoffManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var solver Solver
	switch cfg.SolveMethod {
	case FictitiousPlayMethod:
		solver = &FictitiousPlay{Iterations: cfg.FictitiousPlayIterations}
	case AlphaRankMethod:
		solver = &AlphaRank{
			PopulationSize: cfg.AlphaRankPopulation,
			MaxIntensity:   cfg.AlphaRankMaxIntensity,
		}
	}

	return NewPayoffManagerWithSolver(cfg.Agents, solver)
}
