package scaffold

import (
	"fmt"

	"ai-tutoring-be/pkg/store"
)

// Scaffold levels. A thread opens at LevelOpening; every inadequate
// attempt escalates one level. LevelDirectAnswer is terminal: reaching it
// delivers the answer and resolves the thread.
const (
	LevelOpening        = 0
	LevelHint           = 1
	LevelAnalogy        = 2
	LevelMultipleChoice = 3
	LevelDirectAnswer   = 4
)

// Strategy names the kind of support the tutor gives at a level.
type Strategy string

const (
	StrategyProbe          Strategy = "probe"
	StrategyHint           Strategy = "hint"
	StrategyAnalogy        Strategy = "analogy"
	StrategyMultipleChoice Strategy = "multiple_choice"
	StrategyDirectAnswer   Strategy = "direct_answer"
)

// StrategyForLevel maps a scaffold level to its support strategy.
func StrategyForLevel(level int) Strategy {
	switch level {
	case LevelHint:
		return StrategyHint
	case LevelAnalogy:
		return StrategyAnalogy
	case LevelMultipleChoice:
		return StrategyMultipleChoice
	case LevelDirectAnswer:
		return StrategyDirectAnswer
	default:
		return StrategyProbe
	}
}

// Outcome is the result of advancing the machine on one evaluated attempt.
type Outcome struct {
	Next     store.ScaffoldState
	Strategy Strategy
}

// Advance applies one evaluated attempt to the scaffold state.
//
// Adequate and strong attempts resolve the thread at the current level.
// Failed and partial attempts escalate one level; escalation into
// LevelDirectAnswer both delivers the answer and resolves the thread, so
// an open thread only ever sits at levels 0 through 3. The level never
// decreases within a thread.
func Advance(state store.ScaffoldState, tier string) (Outcome, error) {
	if state.Resolved {
		return Outcome{}, fmt.Errorf("scaffold already resolved at level %d", state.Level)
	}

	next := state
	next.Attempts++

	switch tier {
	case store.TierAdequate, store.TierStrong:
		next.Resolved = true
		return Outcome{Next: next, Strategy: StrategyForLevel(next.Level)}, nil

	case store.TierFail, store.TierPartial:
		if next.Level < LevelDirectAnswer {
			next.Level++
		}
		if next.Level == LevelDirectAnswer {
			next.Resolved = true
		}
		return Outcome{Next: next, Strategy: StrategyForLevel(next.Level)}, nil

	default:
		return Outcome{}, fmt.Errorf("unknown performance tier %q", tier)
	}
}
