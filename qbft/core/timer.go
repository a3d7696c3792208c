package core

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/opalchain/qbft/common/logging"
	"github.com/opalchain/qbft/qbft/types"
)

// TimerConfig controls the exponential round timeout schedule.
type TimerConfig struct {
	// BaseTimeout is the round-zero timeout; round r waits BaseTimeout*2^r.
	BaseTimeout time.Duration
	// AdditionalTimeout is a flat extension applied to every round.
	AdditionalTimeout time.Duration
}

func DefaultTimerConfig() TimerConfig {
	return TimerConfig{BaseTimeout: 10 * time.Second}
}

// RoundTimer arms the per-round expiry that drives round changes. Expiry is
// delivered on Chan; the round-change manager owns the reaction. Starting is
// a separate step from constructing the Round so construction stays free of
// side effects.
type RoundTimer struct {
	clock  clockwork.Clock
	config TimerConfig
	logger zerolog.Logger
	expiry chan types.RoundIdentifier

	mu      sync.Mutex
	pending clockwork.Timer
}

func NewRoundTimer(clock clockwork.Clock, config TimerConfig, logger zerolog.Logger) *RoundTimer {
	return &RoundTimer{
		clock:  clock,
		config: config,
		logger: logger,
		// Buffered so an expiry is never lost when the consumer is between
		// receives; at most one round is armed at a time.
		expiry: make(chan types.RoundIdentifier, 1),
	}
}

// Chan delivers the identifier of each expired round.
func (t *RoundTimer) Chan() <-chan types.RoundIdentifier {
	return t.expiry
}

// Start arms the timer for the given round, replacing any previously armed
// round.
func (t *RoundTimer) Start(roundID types.RoundIdentifier) {
	timeout := t.timeoutForRound(roundID.Round)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending != nil {
		t.pending.Stop()
	}
	// An unconsumed expiry from an earlier round would occupy the buffered
	// slot and shadow this round's expiry.
	select {
	case <-t.expiry:
	default:
	}
	t.logger.Debug().
		Uint64(logging.FieldHeight, roundID.Height).
		Uint64(logging.FieldRound, roundID.Round).
		Dur("timeout", timeout).
		Msg("Round timer started")

	t.pending = t.clock.AfterFunc(timeout, func() {
		select {
		case t.expiry <- roundID:
		default:
		}
	})
}

// Stop cancels the armed round, if any. Idempotent.
func (t *RoundTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *RoundTimer) timeoutForRound(round uint64) time.Duration {
	factor := math.Pow(2, float64(round))
	return time.Duration(float64(t.config.BaseTimeout)*factor) + t.config.AdditionalTimeout
}
