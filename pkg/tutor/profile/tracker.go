package profile

import (
	"ai-tutoring-be/pkg/store"
)

// Level bounds for the learner profile.
const (
	MinLevel = 0
	MaxLevel = 4

	// StartLevel is where a fresh session begins: the middle register,
	// so the first questions are neither hand-holding nor brusque.
	StartLevel = 2
)

// streakLength is how many consecutive strong (or weak) evaluations move
// the profile one level.
const streakLength = 2

// New returns the profile for a fresh session.
func New() store.LearnerProfile {
	return store.LearnerProfile{Level: StartLevel}
}

// Update folds one evaluated attempt into the profile. Two strong answers
// in a row raise the level, two weak ones lower it, and an adequate
// answer settles both streaks. The profile only shapes the tone of
// opening questions; it never feeds the evaluator.
func Update(p store.LearnerProfile, tier string) store.LearnerProfile {
	p.Evaluated++

	switch tier {
	case store.TierStrong:
		p.ConsecutiveStrong++
		p.ConsecutiveWeak = 0
		if p.ConsecutiveStrong >= streakLength {
			p.ConsecutiveStrong = 0
			if p.Level < MaxLevel {
				p.Level++
			}
		}

	case store.TierAdequate:
		p.ConsecutiveStrong = 0
		p.ConsecutiveWeak = 0

	case store.TierPartial, store.TierFail:
		p.ConsecutiveWeak++
		p.ConsecutiveStrong = 0
		if p.ConsecutiveWeak >= streakLength {
			p.ConsecutiveWeak = 0
			if p.Level > MinLevel {
				p.Level--
			}
		}
	}

	return p
}
