package profile

import (
	"testing"

	"ai-tutoring-be/pkg/store"
)

func TestNewStartsMidRange(t *testing.T) {
	p := New()
	if p.Level != StartLevel {
		t.Fatalf("expected start level %d, got %d", StartLevel, p.Level)
	}
	if p.Evaluated != 0 {
		t.Fatalf("fresh profile must have no evaluated attempts")
	}
}

func TestTwoStrongAnswersRaiseLevel(t *testing.T) {
	p := New()

	p = Update(p, store.TierStrong)
	if p.Level != StartLevel {
		t.Fatalf("one strong answer must not raise the level yet")
	}
	p = Update(p, store.TierStrong)
	if p.Level != StartLevel+1 {
		t.Fatalf("expected level %d after strong streak, got %d", StartLevel+1, p.Level)
	}
	if p.ConsecutiveStrong != 0 {
		t.Errorf("streak must reset after a level change")
	}
}

func TestTwoWeakAnswersLowerLevel(t *testing.T) {
	p := New()

	p = Update(p, store.TierFail)
	p = Update(p, store.TierPartial)
	if p.Level != StartLevel-1 {
		t.Fatalf("expected level %d after weak streak, got %d", StartLevel-1, p.Level)
	}
}

func TestAdequateSettlesBothStreaks(t *testing.T) {
	p := New()

	p = Update(p, store.TierStrong)
	p = Update(p, store.TierAdequate)
	p = Update(p, store.TierStrong)

	if p.Level != StartLevel {
		t.Fatalf("interrupted streak must not raise the level, got %d", p.Level)
	}
	if p.ConsecutiveStrong != 1 {
		t.Errorf("expected fresh strong streak of 1, got %d", p.ConsecutiveStrong)
	}
}

func TestLevelClampsAtBounds(t *testing.T) {
	p := store.LearnerProfile{Level: MaxLevel}
	for i := 0; i < 6; i++ {
		p = Update(p, store.TierStrong)
	}
	if p.Level != MaxLevel {
		t.Fatalf("level exceeded max: %d", p.Level)
	}

	p = store.LearnerProfile{Level: MinLevel}
	for i := 0; i < 6; i++ {
		p = Update(p, store.TierFail)
	}
	if p.Level != MinLevel {
		t.Fatalf("level fell below min: %d", p.Level)
	}
}

func TestEvaluatedCountsEveryAttempt(t *testing.T) {
	p := New()
	for _, tier := range []string{store.TierFail, store.TierPartial, store.TierAdequate, store.TierStrong} {
		p = Update(p, tier)
	}
	if p.Evaluated != 4 {
		t.Fatalf("expected 4 evaluated attempts, got %d", p.Evaluated)
	}
}
