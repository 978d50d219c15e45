package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-tutoring-be/pkg/llm"
	"ai-tutoring-be/pkg/store"
	"ai-tutoring-be/pkg/tutor/dialogue"
	"ai-tutoring-be/pkg/tutor/intent"
	"ai-tutoring-be/pkg/tutor/memory"
	"ai-tutoring-be/pkg/tutor/retrieval"
	"ai-tutoring-be/pkg/tutor/scaffold"

	"github.com/google/uuid"
)

const referenceAnswer = "Water enters the cell by osmosis because the cytoplasm holds more solutes than distilled water."

// ---- stage fakes ----

type fakeClassifier struct {
	labels []string
}

func (f *fakeClassifier) Classify(ctx context.Context, message string, session *store.Session) *intent.Classification {
	if len(f.labels) == 0 {
		return &intent.Classification{TurnType: store.TurnNewQuestion, Confidence: 1.0}
	}
	label := f.labels[0]
	f.labels = f.labels[1:]
	return &intent.Classification{TurnType: label, Confidence: 1.0}
}

type fakeRetriever struct {
	chunks []store.ContextChunk
	err    error
	calls  int
}

func (f *fakeRetriever) Execute(ctx context.Context, index retrieval.Index, userID uuid.UUID, query string, config retrieval.Config) ([]store.ContextChunk, error) {
	f.calls++
	return f.chunks, f.err
}

type fakeReasoner struct {
	artifact *store.ReasoningArtifact
	err      error
	calls    int
}

func (f *fakeReasoner) Build(ctx context.Context, question string, chunks []store.ContextChunk) (*store.ReasoningArtifact, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	artifact := *f.artifact
	artifact.Question = question
	return &artifact, nil
}

type judgeStep struct {
	eval *store.EvaluationResult
	err  error
}

type fakeJudge struct {
	steps []judgeStep
	calls int
}

func (f *fakeJudge) Evaluate(ctx context.Context, answer string, artifact store.ReasoningArtifact, chunks []store.ContextChunk) (*store.EvaluationResult, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.steps) == 0 {
		return nil, errors.New("fake judge: script exhausted")
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	return step.eval, step.err
}

type memStore struct {
	mu       sync.Mutex
	sessions map[string]*store.Session
	saves    int
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*store.Session)}
}

func (m *memStore) Get(id string) (*store.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *memStore) Save(session *store.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.sessions[session.ID] = session
}

func (m *memStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

type recordingSink struct {
	mu    sync.Mutex
	turns []store.Turn
	err   error
}

func (r *recordingSink) AppendTurns(ctx context.Context, userID, sessionID uuid.UUID, turns []store.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.turns = append(r.turns, turns...)
	return nil
}

// ---- fixture ----

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func corpusChunks() []store.ContextChunk {
	return []store.ContextChunk{
		{ID: uuid.New(), Source: "cells.pdf", Page: 3, Content: "Osmosis is the net movement of water.", Score: 0.03},
		{ID: uuid.New(), Source: "cells.pdf", Page: 4, Content: "Distilled water contains no solutes.", Score: 0.02},
	}
}

func referenceArtifact() *store.ReasoningArtifact {
	return &store.ReasoningArtifact{
		Steps: []store.ReasoningStep{
			{Text: "Compare solute concentration inside and outside the cell."},
			{Text: "Water moves toward the higher solute concentration."},
		},
		FinalAnswer: referenceAnswer,
	}
}

func makeEval(tier string, weighted float64) *store.EvaluationResult {
	return &store.EvaluationResult{Tier: tier, Weighted: weighted, Feedback: "Judge feedback."}
}

type fixture struct {
	engine     *Engine
	classifier *fakeClassifier
	retriever  *fakeRetriever
	reasoner   *fakeReasoner
	judge      *fakeJudge
	provider   *llm.MockProvider
	sessions   *memStore
	sink       *recordingSink

	userID    uuid.UUID
	sessionID uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		classifier: &fakeClassifier{},
		retriever:  &fakeRetriever{chunks: corpusChunks()},
		reasoner:   &fakeReasoner{artifact: referenceArtifact()},
		judge:      &fakeJudge{},
		provider:   llm.NewMockProvider(),
		sessions:   newMemStore(),
		sink:       &recordingSink{},
		userID:     uuid.New(),
		sessionID:  uuid.New(),
	}

	config := DefaultConfig()
	config.UpstreamTimeout = 0
	config.RetryBackoff = time.Millisecond

	f.engine = &Engine{
		classifier: f.classifier,
		retriever:  f.retriever,
		reasoner:   f.reasoner,
		judge:      f.judge,
		composer:   dialogue.NewComposer(dialogue.NewTemplateRenderer(), f.provider, config.Dialogue, quietLogger()),
		buffer:     memory.NewBuffer(config.MaxTurns),
		sessions:   f.sessions,
		transcript: f.sink,
		config:     config,
		logger:     quietLogger(),
		locks:      make(map[string]*sync.Mutex),
	}
	return f
}

func (f *fixture) handle(t *testing.T, text string) *Result {
	t.Helper()
	res, err := f.engine.HandleMessage(context.Background(), f.userID, f.sessionID, text)
	if err != nil {
		t.Fatalf("HandleMessage(%q): unexpected error: %v", text, err)
	}
	return res
}

func (f *fixture) openThread(t *testing.T) *Result {
	t.Helper()
	f.classifier.labels = append(f.classifier.labels, store.TurnNewQuestion)
	return f.handle(t, "Why do plant cells swell in distilled water?")
}

// ---- scenarios ----

func TestEmptyCorpusOpensNoThread(t *testing.T) {
	f := newFixture()
	f.retriever.chunks = nil

	res := f.handle(t, "What is a Krebs cycle?")

	if res.ThreadOpen {
		t.Error("empty retrieval must not open a thread")
	}
	if !strings.Contains(res.Reply, "couldn't find anything") {
		t.Errorf("expected honest empty-corpus reply, got %q", res.Reply)
	}
	if f.reasoner.calls != 0 {
		t.Error("reasoner must not run on an empty retrieval")
	}

	state := f.engine.State(f.sessionID)
	if state.ActiveThreadPresent {
		t.Error("state reports a thread that should not exist")
	}
	if state.TurnCount != 2 {
		t.Errorf("expected student+tutor turns logged, got %d", state.TurnCount)
	}
}

func TestWeakAnswerGetsHintWithoutLeak(t *testing.T) {
	f := newFixture()
	f.openThread(t)

	f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
	f.judge.steps = append(f.judge.steps, judgeStep{eval: makeEval(store.TierFail, 0.6)})

	res := f.handle(t, "Because the cell wall pushes water inside the cell.")

	if res.ScaffoldLevel != scaffold.LevelHint {
		t.Errorf("expected scaffold level %d, got %d", scaffold.LevelHint, res.ScaffoldLevel)
	}
	if !res.ThreadOpen || res.ThreadResolved {
		t.Error("a first failure must keep the thread open")
	}
	if strings.Contains(res.Reply, referenceAnswer) {
		t.Error("hint reply leaks the final answer")
	}
	if !strings.Contains(res.Reply, "hint") {
		t.Errorf("expected a hint reply, got %q", res.Reply)
	}
}

func TestEscalationLadderResolvesWithDirectAnswer(t *testing.T) {
	f := newFixture()
	f.openThread(t)

	// Level 2 needs an analogy, level 3 multiple-choice options.
	f.provider.Queue(`{"analogy": "Like a dry sponge dropped into a bucket."}`)
	f.provider.Queue(`{"correct": "Water moves in toward the solutes.", "distractors": ["The cell pumps water with ATP.", "The wall attracts water.", "Solutes push water out."]}`)

	attempts := []string{
		"Because the wall pushes the water inside the cell.",
		"Maybe the cell is just absorbing it like a vacuum does.",
		"I think the water wants to dilute the outside instead.",
		"Still feels like the cell is pulling water with its wall.",
	}
	wantLevels := []int{1, 2, 3, 4}

	var last *Result
	for i, attempt := range attempts {
		f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
		f.judge.steps = append(f.judge.steps, judgeStep{eval: makeEval(store.TierFail, 0.4)})
		last = f.handle(t, attempt)

		if i < 3 {
			if last.ScaffoldLevel != wantLevels[i] {
				t.Fatalf("attempt %d: expected level %d, got %d", i+1, wantLevels[i], last.ScaffoldLevel)
			}
			if last.ThreadResolved {
				t.Fatalf("attempt %d: thread resolved too early", i+1)
			}
			if strings.Contains(last.Reply, referenceAnswer) {
				t.Fatalf("attempt %d: reply leaks the final answer", i+1)
			}
		}
	}

	if !last.ThreadResolved {
		t.Fatal("fourth failure must resolve the thread")
	}
	if last.ThreadOpen {
		t.Error("resolved thread must be closed")
	}
	if !strings.Contains(last.Reply, referenceAnswer) {
		t.Error("direct answer reply must contain the final answer")
	}

	state := f.engine.State(f.sessionID)
	if state.ActiveThreadPresent {
		t.Error("state must report no thread after resolution")
	}
}

func TestStrongAnswerResolvesMidLadder(t *testing.T) {
	f := newFixture()
	f.openThread(t)

	f.provider.Queue(`{"analogy": "Like a dry sponge dropped into a bucket."}`)

	for _, tier := range []string{store.TierFail, store.TierPartial} {
		f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
		f.judge.steps = append(f.judge.steps, judgeStep{eval: makeEval(tier, 1.0)})
		f.handle(t, "An attempt that does not get there yet at all.")
	}

	f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
	f.judge.steps = append(f.judge.steps, judgeStep{eval: makeEval(store.TierStrong, 3.8)})
	res := f.handle(t, "Water moves in by osmosis because solutes are concentrated inside the cell.")

	if !res.ThreadResolved {
		t.Fatal("strong answer must resolve the thread")
	}
	if res.ThreadOpen {
		t.Error("resolved thread must be closed")
	}
	if !strings.Contains(res.Reply, "Excellent") {
		t.Errorf("expected celebration for a strong answer, got %q", res.Reply)
	}
	if res.Evaluation == nil || res.Evaluation.Tier != store.TierStrong {
		t.Error("result must carry the evaluation")
	}
}

func TestMetaQuestionChangesNothing(t *testing.T) {
	f := newFixture()
	f.openThread(t)
	before := f.engine.State(f.sessionID)

	f.classifier.labels = append(f.classifier.labels, store.TurnMetaQuestion)
	res := f.handle(t, "What do you mean by solute exactly?")

	if res.ScaffoldLevel != before.ScaffoldLevel {
		t.Errorf("meta question moved the scaffold from %d to %d", before.ScaffoldLevel, res.ScaffoldLevel)
	}
	if !res.ThreadOpen {
		t.Error("meta question must keep the thread open")
	}
	if f.judge.calls != 0 {
		t.Error("meta question must never be judged")
	}
	if strings.Contains(res.Reply, referenceAnswer) {
		t.Error("meta reply leaks the final answer")
	}

	after := f.engine.State(f.sessionID)
	if after.ScaffoldLevel != before.ScaffoldLevel {
		t.Error("scaffold level changed across a meta question")
	}
	if after.TurnCount != before.TurnCount+2 {
		t.Errorf("expected turn count %d, got %d", before.TurnCount+2, after.TurnCount)
	}
}

// ---- orchestration properties ----

func TestAnswerAttemptWithoutThreadFallsBack(t *testing.T) {
	f := newFixture()

	f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
	res := f.handle(t, "Water moves into the cell because of the solutes inside.")

	if res.TurnType != store.TurnNewQuestion {
		t.Errorf("expected fallback to new_question, got %s", res.TurnType)
	}
	if !res.ThreadOpen {
		t.Error("fallback must open a thread like any new question")
	}
	if f.judge.calls != 0 {
		t.Error("nothing must be judged on the fallback path")
	}
}

func TestFollowUpsNeverReRetrieve(t *testing.T) {
	f := newFixture()
	f.openThread(t)

	if f.retriever.calls != 1 {
		t.Fatalf("expected exactly one retrieval on open, got %d", f.retriever.calls)
	}

	f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
	f.judge.steps = append(f.judge.steps, judgeStep{eval: makeEval(store.TierFail, 0.5)})
	f.handle(t, "An attempt that needs another look at things.")

	f.classifier.labels = append(f.classifier.labels, store.TurnMetaQuestion)
	f.handle(t, "Can you say that differently?")

	if f.retriever.calls != 1 {
		t.Errorf("follow-ups re-retrieved: %d retrievals", f.retriever.calls)
	}
}

func TestUpstreamFailureRetriesOnce(t *testing.T) {
	f := newFixture()
	f.openThread(t)

	f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
	f.judge.steps = append(f.judge.steps,
		judgeStep{err: errors.New("transient judge outage")},
		judgeStep{eval: makeEval(store.TierAdequate, 2.9)},
	)

	res := f.handle(t, "Water moves in because the solutes inside attract it osmotically.")

	if f.judge.calls != 2 {
		t.Fatalf("expected one retry (2 calls), got %d", f.judge.calls)
	}
	if res.Degraded {
		t.Error("successful retry must not degrade the reply")
	}
	if !res.ThreadResolved {
		t.Error("adequate answer after retry must resolve")
	}
}

func TestUpstreamOutageApologizesAndPreservesState(t *testing.T) {
	f := newFixture()
	f.openThread(t)
	before := f.engine.State(f.sessionID)
	savesBefore := f.sessions.saves

	f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
	f.judge.steps = append(f.judge.steps,
		judgeStep{err: errors.New("judge outage")},
		judgeStep{err: errors.New("judge outage")},
	)

	res := f.handle(t, "An attempt the judge will never see scored.")

	if !res.Degraded {
		t.Fatal("expected degraded apology result")
	}
	if res.Reply != apologyReply {
		t.Errorf("expected canned apology, got %q", res.Reply)
	}
	if f.sessions.saves != savesBefore {
		t.Error("failed message must not save the session")
	}
	if after := f.engine.State(f.sessionID); after != before {
		t.Errorf("session state changed across a failed message: %+v -> %+v", before, after)
	}
}

func TestTranscriptFailureRollsBackMemory(t *testing.T) {
	f := newFixture()
	f.openThread(t)
	before := f.engine.State(f.sessionID)

	f.sink.err = errors.New("database unavailable")
	f.classifier.labels = append(f.classifier.labels, store.TurnMetaQuestion)

	res := f.handle(t, "Could you rephrase the question for me?")

	if !res.Degraded {
		t.Fatal("persist failure must degrade to the apology")
	}
	if after := f.engine.State(f.sessionID); after.TurnCount != before.TurnCount {
		t.Errorf("turn count advanced despite persist failure: %d -> %d", before.TurnCount, after.TurnCount)
	}
}

func TestCancellationReturnsErrorAndChangesNothing(t *testing.T) {
	f := newFixture()
	f.openThread(t)
	before := f.engine.State(f.sessionID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
	f.judge.steps = append(f.judge.steps, judgeStep{eval: makeEval(store.TierStrong, 3.8)})

	res, err := f.engine.HandleMessage(ctx, f.userID, f.sessionID, "An attempt that gets canceled midway through.")
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if res != nil {
		t.Error("canceled message must not produce a result")
	}
	if after := f.engine.State(f.sessionID); after != before {
		t.Error("canceled message changed session state")
	}
}

func TestUnknownTurnTypeIsInvariantViolation(t *testing.T) {
	f := newFixture()
	f.classifier.labels = append(f.classifier.labels, "smalltalk")

	_, err := f.engine.HandleMessage(context.Background(), f.userID, f.sessionID, "hello there")
	var invariant *InvariantError
	if !errors.As(err, &invariant) {
		t.Fatalf("expected InvariantError, got %v", err)
	}
	if state := f.engine.State(f.sessionID); state.TurnCount != 0 {
		t.Error("aborted message must not log turns")
	}
}

func TestTranscriptReceivesBothTurns(t *testing.T) {
	f := newFixture()
	f.openThread(t)

	if len(f.sink.turns) != 2 {
		t.Fatalf("expected 2 durable turns, got %d", len(f.sink.turns))
	}
	if f.sink.turns[0].Role != store.RoleStudent || f.sink.turns[0].Type != store.TurnNewQuestion {
		t.Errorf("unexpected first durable turn: %+v", f.sink.turns[0])
	}
	if f.sink.turns[1].Role != store.RoleTutor || f.sink.turns[1].Type != store.TurnTutorReply {
		t.Errorf("unexpected second durable turn: %+v", f.sink.turns[1])
	}
}

func TestStateIsIdempotent(t *testing.T) {
	f := newFixture()
	f.openThread(t)

	first := f.engine.State(f.sessionID)
	second := f.engine.State(f.sessionID)
	if first != second {
		t.Errorf("State mutated something: %+v vs %+v", first, second)
	}
}

func TestResetClearsThreadAndTranscript(t *testing.T) {
	f := newFixture()
	f.openThread(t)

	f.engine.Reset(f.sessionID)

	state := f.engine.State(f.sessionID)
	if state.ActiveThreadPresent || state.ScaffoldLevel != 0 || state.TurnCount != 0 {
		t.Errorf("reset left state behind: %+v", state)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newFixture()
	f.openThread(t)

	f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
	f.judge.steps = append(f.judge.steps, judgeStep{eval: makeEval(store.TierFail, 0.5)})
	f.handle(t, "A wrong attempt that escalates this session only.")

	otherSession := uuid.New()
	f.classifier.labels = append(f.classifier.labels, store.TurnNewQuestion)
	res, err := f.engine.HandleMessage(context.Background(), f.userID, otherSession, "Why is the sky blue?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ScaffoldLevel != 0 {
		t.Errorf("new session inherited scaffold level %d", res.ScaffoldLevel)
	}

	if state := f.engine.State(f.sessionID); state.ScaffoldLevel != 1 {
		t.Errorf("original session lost its scaffold level: %+v", state)
	}
}

func TestNewQuestionReplacesOpenThread(t *testing.T) {
	f := newFixture()
	f.openThread(t)

	f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
	f.judge.steps = append(f.judge.steps, judgeStep{eval: makeEval(store.TierFail, 0.5)})
	f.handle(t, "A wrong attempt that raises the scaffold level.")

	f.classifier.labels = append(f.classifier.labels, store.TurnNewQuestion)
	res := f.handle(t, "Forget that, why are leaves green?")

	if !res.ThreadOpen {
		t.Fatal("new question must open a fresh thread")
	}
	if res.ScaffoldLevel != 0 {
		t.Errorf("fresh thread must start at level 0, got %d", res.ScaffoldLevel)
	}
	if f.retriever.calls != 2 {
		t.Errorf("replacing the thread requires a fresh retrieval, got %d calls", f.retriever.calls)
	}
}

func TestStateReportsAttemptsAndResolution(t *testing.T) {
	f := newFixture()
	f.openThread(t)

	state := f.engine.State(f.sessionID)
	if state.Attempts != 0 {
		t.Errorf("fresh thread should report zero attempts, got %d", state.Attempts)
	}
	if state.Resolved {
		t.Error("fresh thread must not report resolution")
	}

	f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
	f.judge.steps = append(f.judge.steps, judgeStep{eval: makeEval(store.TierFail, 0.6)})
	f.handle(t, "Because the cell wall pushes water inside the cell.")

	state = f.engine.State(f.sessionID)
	if state.Attempts != 1 {
		t.Errorf("expected one evaluated attempt, got %d", state.Attempts)
	}
	if state.Resolved {
		t.Error("an open thread must not report resolution")
	}

	f.classifier.labels = append(f.classifier.labels, store.TurnAnswerAttempt)
	f.judge.steps = append(f.judge.steps, judgeStep{eval: makeEval(store.TierStrong, 3.8)})
	f.handle(t, referenceAnswer)

	state = f.engine.State(f.sessionID)
	if state.ActiveThreadPresent {
		t.Error("resolved thread should be closed")
	}
	if !state.Resolved {
		t.Error("state must report that the last thread resolved")
	}
	if state.Attempts != 0 {
		t.Errorf("closed thread should report zero attempts, got %d", state.Attempts)
	}

	// A fresh question reopens the workbench and clears the flag.
	f.openThread(t)
	if state := f.engine.State(f.sessionID); state.Resolved {
		t.Error("opening a new thread must clear the resolution flag")
	}
}
