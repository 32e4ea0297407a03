// Package config loads and validates session configuration for the round
// engine from YAML.
//
// Several experiment knobs may be configured either as a single value
// applying to every round or as a per-round list; MultiValue models that
// as an explicit tagged variant resolved by round index, instead of
// runtime type inspection.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrRoundOutOfRange is returned when a per-round list has no entry for
// the requested round.
var ErrRoundOutOfRange = errors.New("config: round index outside configured range")

// MultiValue is either a single scalar applying to all rounds or a
// per-round list resolved by 1-based round index.
type MultiValue[T any] struct {
	scalar   T
	perRound []T
	isList   bool
}

// Scalar builds a MultiValue holding one value for all rounds.
func Scalar[T any](v T) MultiValue[T] {
	return MultiValue[T]{scalar: v}
}

// PerRound builds a MultiValue holding one value per round.
func PerRound[T any](vs []T) MultiValue[T] {
	return MultiValue[T]{perRound: vs, isList: true}
}

// UnmarshalYAML decodes either form: a list becomes per-round values, any
// other node a scalar. Element types that are themselves sequences (e.g.
// button value sets) are handled by attempting the list form first.
func (m *MultiValue[T]) UnmarshalYAML(node *yaml.Node) error {
	var list []T
	if err := node.Decode(&list); err == nil && node.Kind == yaml.SequenceNode {
		m.perRound = list
		m.isList = true
		return nil
	}
	var scalar T
	if err := node.Decode(&scalar); err != nil {
		return fmt.Errorf("config: value is neither scalar nor per-round list: %w", err)
	}
	m.scalar = scalar
	m.isList = false
	return nil
}

// ForRound resolves the value for a 1-based round index.
func (m MultiValue[T]) ForRound(round int) (T, error) {
	if !m.isList {
		return m.scalar, nil
	}
	if round < 1 || round > len(m.perRound) {
		var zero T
		return zero, fmt.Errorf("%w: round %d of %d", ErrRoundOutOfRange, round, len(m.perRound))
	}
	return m.perRound[round-1], nil
}

// validate checks that a per-round list covers every configured round.
func (m MultiValue[T]) validate(name string, numRounds int) error {
	if m.isList && len(m.perRound) < numRounds {
		return fmt.Errorf("config: %s has %d entries for %d rounds", name, len(m.perRound), numRounds)
	}
	return nil
}

// Session holds the experiment configuration. The effective number of
// rounds is the length of the timeseries filename list.
type Session struct {
	Name                string              `yaml:"name"`
	TimeseriesFilepath  string              `yaml:"timeseries_filepath"`
	TimeseriesFilenames []string            `yaml:"timeseries_filenames"`
	RefreshRateMS       MultiValue[int]     `yaml:"refresh_rate_ms"`
	InitialCash         MultiValue[float64] `yaml:"initial_cash"`
	InitialShares       MultiValue[float64] `yaml:"initial_shares"`
	TradingButtonValues MultiValue[[]int]   `yaml:"trading_button_values"`
	RandomRoundPayoff   bool                `yaml:"random_round_payoff"`
	TrainingRound       bool                `yaml:"training_round"`
	GraphBuffer         float64             `yaml:"graph_buffer"`
	RiskFreeAnnual      float64             `yaml:"risk_free_annual"`
	PeriodsPerYear      float64             `yaml:"periods_per_year"`
}

// NumRounds returns the effective number of rounds.
func (s *Session) NumRounds() int {
	return len(s.TimeseriesFilenames)
}

// Validate checks internal consistency: at least one round and per-round
// lists long enough to cover every round.
func (s *Session) Validate() error {
	n := s.NumRounds()
	if n == 0 {
		return errors.New("config: timeseries_filenames must name at least one round")
	}
	checks := []error{
		s.RefreshRateMS.validate("refresh_rate_ms", n),
		s.InitialCash.validate("initial_cash", n),
		s.InitialShares.validate("initial_shares", n),
		s.TradingButtonValues.validate("trading_button_values", n),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// Load reads and validates a session configuration from a YAML file.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
