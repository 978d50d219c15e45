package intent

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"ai-tutoring-be/pkg/llm"
	"ai-tutoring-be/pkg/store"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func sessionWithThread() *store.Session {
	return &store.Session{
		ID: "s1",
		Thread: &store.ActiveThread{
			Question: "Why do plant cells swell in distilled water?",
		},
	}
}

func TestClassifyWithoutThreadSkipsModel(t *testing.T) {
	provider := llm.NewMockProvider()
	c := NewClassifier(provider, quietLogger())

	got := c.Classify(context.Background(), "I think it's osmosis", &store.Session{ID: "s1"})

	if got.TurnType != store.TurnNewQuestion {
		t.Fatalf("expected new_question without open thread, got %s", got.TurnType)
	}
	if len(provider.Calls) != 0 {
		t.Fatalf("classification without thread must not call the model")
	}
}

func TestClassifyParsesModelLabel(t *testing.T) {
	cases := []struct {
		response string
		want     string
	}{
		{`{"turn_type": "answer_attempt", "confidence": 0.9, "reasoning": "x"}`, store.TurnAnswerAttempt},
		{`{"turn_type": "NEW_QUESTION", "confidence": 0.8, "reasoning": "x"}`, store.TurnNewQuestion},
		{`noise before {"turn_type": "meta_question", "confidence": 0.7, "reasoning": "x"} noise after`, store.TurnMetaQuestion},
	}

	for _, tc := range cases {
		c := NewClassifier(llm.NewMockProvider(tc.response), quietLogger())
		got := c.Classify(context.Background(), "some message here", sessionWithThread())
		if got.TurnType != tc.want {
			t.Errorf("response %q: expected %s, got %s", tc.response, tc.want, got.TurnType)
		}
	}
}

func TestClassifyLowConfidenceSoftensToMeta(t *testing.T) {
	c := NewClassifier(llm.NewMockProvider(
		`{"turn_type": "answer_attempt", "confidence": 0.3, "reasoning": "guessing"}`,
	), quietLogger())

	got := c.Classify(context.Background(), "hmm the thing with the water", sessionWithThread())
	if got.TurnType != store.TurnMetaQuestion {
		t.Fatalf("expected low-confidence result softened to meta_question, got %s", got.TurnType)
	}
}

func TestClassifyFallsBackOnProviderError(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.QueueError(errors.New("model offline"))
	c := NewClassifier(provider, quietLogger())

	got := c.Classify(context.Background(), "water moves into the cell by osmosis", sessionWithThread())
	if got.TurnType != store.TurnAnswerAttempt {
		t.Fatalf("expected declarative fallback answer_attempt, got %s", got.TurnType)
	}
}

func TestClassifyFallsBackOnGarbageResponse(t *testing.T) {
	c := NewClassifier(llm.NewMockProvider("certainly! the student is answering"), quietLogger())

	got := c.Classify(context.Background(), "the water moves in because of solutes", sessionWithThread())
	if got.TurnType != store.TurnAnswerAttempt {
		t.Fatalf("expected fallback answer_attempt, got %s", got.TurnType)
	}
}

func TestClassifyRejectsUnknownLabelViaFallback(t *testing.T) {
	c := NewClassifier(llm.NewMockProvider(
		`{"turn_type": "chitchat", "confidence": 0.9, "reasoning": "x"}`,
	), quietLogger())

	got := c.Classify(context.Background(), "can I get a hint please", sessionWithThread())
	if got.TurnType != store.TurnMetaQuestion {
		t.Fatalf("expected stuck marker fallback to meta_question, got %s", got.TurnType)
	}
}

func TestFallbackHeuristics(t *testing.T) {
	c := NewClassifier(llm.NewMockProvider(), quietLogger())

	cases := []struct {
		message string
		want    string
	}{
		{"I don't know", store.TurnMetaQuestion},
		{"this is confusing, what do you mean", store.TurnMetaQuestion},
		{"ok", store.TurnMetaQuestion},
		{"what about photosynthesis in algae?", store.TurnNewQuestion},
		{"the cell absorbs water through its membrane", store.TurnAnswerAttempt},
	}

	for _, tc := range cases {
		if got := c.fallback(tc.message); got.TurnType != tc.want {
			t.Errorf("fallback(%q): expected %s, got %s", tc.message, tc.want, got.TurnType)
		}
	}
}
