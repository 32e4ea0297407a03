// Package payoff implements end-of-experiment payoff selection: one round
// per player is drawn at experiment start, and only that round's payoff
// survives in the participant's running total.
package payoff

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/zts/round-engine/internal/model"
)

// ErrInvalidRoundRange is returned when the payoff-eligible round range is
// empty (first eligible round beyond the last round). Fatal at session
// setup.
var ErrInvalidRoundRange = errors.New("payoff: first eligible round exceeds number of rounds")

// Resolver draws and remembers one payoff round per player and settles
// each round's payoff against the participant's running total.
type Resolver struct {
	numRounds     int
	firstRound    int
	randomPayoff  bool
	trainingRound bool

	mu    sync.Mutex
	rng   *rand.Rand
	drawn map[string]int
}

// NewResolver creates a resolver for an experiment with numRounds rounds.
// When trainingRound is set, round 1 is never payoff-eligible and the
// draw range starts at round 2. Pass a seeded rng for deterministic
// draws in tests; nil uses a time-seeded source.
func NewResolver(numRounds int, randomPayoff, trainingRound bool, rng *rand.Rand) (*Resolver, error) {
	firstRound := 1
	if trainingRound {
		firstRound = 2
	}
	if firstRound > numRounds {
		return nil, ErrInvalidRoundRange
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Resolver{
		numRounds:     numRounds,
		firstRound:    firstRound,
		randomPayoff:  randomPayoff,
		trainingRound: trainingRound,
		rng:           rng,
		drawn:         make(map[string]int),
	}, nil
}

// DrawRound returns the player's payoff round, drawing it uniformly from
// [firstRound, numRounds] on first call and memoizing it afterwards.
func (r *Resolver) DrawRound(playerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if round, ok := r.drawn[playerID]; ok {
		return round
	}
	round := r.firstRound + r.rng.Intn(r.numRounds-r.firstRound+1)
	r.drawn[playerID] = round
	return round
}

// Settle records the round's payoff (the final portfolio value) on the
// account and adds it to the running total. If random-round payoff is
// enabled and this is not the player's drawn round, the payoff is
// subtracted back out; otherwise, if a training round is configured and
// this is round 1, it is subtracted back out. The branch precedence
// matters: the training-round exclusion only fires when the random-payoff
// subtraction did not.
func (r *Resolver) Settle(acct *model.AccountState, round int) {
	acct.Payoff = acct.PortfolioValue
	acct.PayoffTotal = acct.PayoffTotal.Add(acct.Payoff)

	if r.randomPayoff && round != r.DrawRound(acct.PlayerID) {
		acct.PayoffTotal = acct.PayoffTotal.Sub(acct.Payoff)
	} else if r.trainingRound && round == 1 {
		acct.PayoffTotal = acct.PayoffTotal.Sub(acct.Payoff)
	}
}
