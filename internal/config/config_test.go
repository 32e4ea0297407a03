package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestMultiValue_ScalarAppliesToAllRounds(t *testing.T) {
	var m MultiValue[float64]
	if err := yaml.Unmarshal([]byte(`5000`), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for round := 1; round <= 10; round++ {
		v, err := m.ForRound(round)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if v != 5000 {
			t.Errorf("round %d: expected 5000, got %f", round, v)
		}
	}
}

func TestMultiValue_PerRoundList(t *testing.T) {
	var m MultiValue[float64]
	if err := yaml.Unmarshal([]byte(`[1000, 2000, 3000]`), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := m.ForRound(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2000 {
		t.Errorf("expected 2000 for round 2, got %f", v)
	}
}

func TestMultiValue_RoundOutOfRange(t *testing.T) {
	m := PerRound([]int{500, 500})
	if _, err := m.ForRound(3); !errors.Is(err, ErrRoundOutOfRange) {
		t.Errorf("expected ErrRoundOutOfRange, got %v", err)
	}
	if _, err := m.ForRound(0); !errors.Is(err, ErrRoundOutOfRange) {
		t.Errorf("expected ErrRoundOutOfRange for round 0, got %v", err)
	}
}

func TestMultiValue_NestedListPerRound(t *testing.T) {
	var m MultiValue[[]int]
	if err := yaml.Unmarshal([]byte(`[[1, 10, 20], [2, 20, 40]]`), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := m.ForRound(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v) != 3 || v[0] != 2 || v[2] != 40 {
		t.Errorf("expected [2 20 40] for round 2, got %v", v)
	}
}

func TestMultiValue_NestedListScalar(t *testing.T) {
	var m MultiValue[[]int]
	if err := yaml.Unmarshal([]byte(`[1, 10, 20]`), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A flat list of scalars is one button set for all rounds.
	v, err := m.ForRound(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v) != 3 || v[1] != 10 {
		t.Errorf("expected [1 10 20] for every round, got %v", v)
	}
}

const sampleSession = `
name: zts_pilot
timeseries_filepath: testdata/timeseries/
timeseries_filenames: [study_1.csv, study_2.csv, study_3.csv]
refresh_rate_ms: [1000, 1000, 1000]
initial_cash: 10000
initial_shares: 0
trading_button_values: [[1, 10, 20], [1, 10, 20], [1, 10, 20]]
random_round_payoff: true
training_round: true
graph_buffer: 0.05
risk_free_annual: 0.02
periods_per_year: 252
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	s, err := Load(writeConfig(t, sampleSession))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.NumRounds() != 3 {
		t.Errorf("expected 3 rounds, got %d", s.NumRounds())
	}
	if !s.RandomRoundPayoff || !s.TrainingRound {
		t.Error("expected payoff flags to be set")
	}
	cash, err := s.InitialCash.ForRound(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cash != 10000 {
		t.Errorf("expected initial cash 10000, got %f", cash)
	}
}

func TestLoad_ListShorterThanRounds(t *testing.T) {
	short := `
timeseries_filenames: [a.csv, b.csv, c.csv]
refresh_rate_ms: [1000, 1000]
`
	if _, err := Load(writeConfig(t, short)); err == nil {
		t.Error("expected validation error for short per-round list")
	}
}

func TestLoad_NoRounds(t *testing.T) {
	if _, err := Load(writeConfig(t, `name: empty`)); err == nil {
		t.Error("expected error for config without rounds")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
