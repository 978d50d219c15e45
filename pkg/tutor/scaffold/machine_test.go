package scaffold

import (
	"testing"

	"ai-tutoring-be/pkg/store"
)

func TestFailedAttemptEscalatesOneLevel(t *testing.T) {
	out, err := Advance(store.ScaffoldState{Level: LevelOpening}, store.TierFail)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Next.Level != LevelHint {
		t.Errorf("expected level %d, got %d", LevelHint, out.Next.Level)
	}
	if out.Strategy != StrategyHint {
		t.Errorf("expected hint strategy, got %q", out.Strategy)
	}
	if out.Next.Resolved {
		t.Error("level 1 must not resolve the thread")
	}
	if out.Next.Attempts != 1 {
		t.Errorf("expected attempt recorded, got %d", out.Next.Attempts)
	}
}

func TestEscalationLadderEndsInDirectAnswer(t *testing.T) {
	state := store.ScaffoldState{Level: LevelOpening}

	wantLevels := []int{LevelHint, LevelAnalogy, LevelMultipleChoice, LevelDirectAnswer}
	wantStrategies := []Strategy{StrategyHint, StrategyAnalogy, StrategyMultipleChoice, StrategyDirectAnswer}

	for i := range wantLevels {
		out, err := Advance(state, store.TierFail)
		if err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i+1, err)
		}
		if out.Next.Level != wantLevels[i] {
			t.Fatalf("attempt %d: expected level %d, got %d", i+1, wantLevels[i], out.Next.Level)
		}
		if out.Strategy != wantStrategies[i] {
			t.Fatalf("attempt %d: expected strategy %q, got %q", i+1, wantStrategies[i], out.Strategy)
		}
		wantResolved := wantLevels[i] == LevelDirectAnswer
		if out.Next.Resolved != wantResolved {
			t.Fatalf("attempt %d: resolved=%v, expected %v", i+1, out.Next.Resolved, wantResolved)
		}
		state = out.Next
	}

	if state.Attempts != 4 {
		t.Errorf("expected 4 recorded attempts, got %d", state.Attempts)
	}
}

func TestPartialEscalatesLikeFail(t *testing.T) {
	out, err := Advance(store.ScaffoldState{Level: LevelAnalogy, Attempts: 2}, store.TierPartial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Next.Level != LevelMultipleChoice {
		t.Errorf("expected escalation to level %d, got %d", LevelMultipleChoice, out.Next.Level)
	}
	if out.Strategy != StrategyMultipleChoice {
		t.Errorf("expected multiple-choice strategy, got %q", out.Strategy)
	}
}

func TestAdequateResolvesAtCurrentLevel(t *testing.T) {
	for _, tier := range []string{store.TierAdequate, store.TierStrong} {
		out, err := Advance(store.ScaffoldState{Level: LevelAnalogy, Attempts: 2}, tier)
		if err != nil {
			t.Fatalf("tier %s: unexpected error: %v", tier, err)
		}
		if !out.Next.Resolved {
			t.Errorf("tier %s: expected resolution", tier)
		}
		if out.Next.Level != LevelAnalogy {
			t.Errorf("tier %s: success must not change the level, got %d", tier, out.Next.Level)
		}
	}
}

func TestLevelNeverDecreases(t *testing.T) {
	tiers := []string{store.TierFail, store.TierPartial, store.TierFail, store.TierPartial}

	state := store.ScaffoldState{}
	prev := state.Level
	for _, tier := range tiers {
		out, err := Advance(state, tier)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Next.Level < prev {
			t.Fatalf("level decreased from %d to %d", prev, out.Next.Level)
		}
		prev = out.Next.Level
		state = out.Next
		if state.Resolved {
			break
		}
	}
}

func TestAdvanceRejectsResolvedState(t *testing.T) {
	if _, err := Advance(store.ScaffoldState{Level: LevelHint, Resolved: true}, store.TierFail); err == nil {
		t.Fatal("expected error advancing a resolved thread")
	}
}

func TestAdvanceRejectsUnknownTier(t *testing.T) {
	if _, err := Advance(store.ScaffoldState{}, "brilliant"); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

func TestStrategyForLevel(t *testing.T) {
	cases := map[int]Strategy{
		LevelOpening:        StrategyProbe,
		LevelHint:           StrategyHint,
		LevelAnalogy:        StrategyAnalogy,
		LevelMultipleChoice: StrategyMultipleChoice,
		LevelDirectAnswer:   StrategyDirectAnswer,
		7:                   StrategyProbe,
	}
	for level, want := range cases {
		if got := StrategyForLevel(level); got != want {
			t.Errorf("level %d: expected %q, got %q", level, want, got)
		}
	}
}
