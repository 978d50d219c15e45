package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"ai-tutoring-be/pkg/embedding"
	"ai-tutoring-be/pkg/llm"
	"ai-tutoring-be/pkg/store"
	"ai-tutoring-be/pkg/tutor/dialogue"
	"ai-tutoring-be/pkg/tutor/evaluate"
	"ai-tutoring-be/pkg/tutor/intent"
	"ai-tutoring-be/pkg/tutor/memory"
	"ai-tutoring-be/pkg/tutor/profile"
	"ai-tutoring-be/pkg/tutor/reason"
	"ai-tutoring-be/pkg/tutor/retrieval"
	"ai-tutoring-be/pkg/tutor/scaffold"

	"github.com/google/uuid"
)

// apologyReply is the user-safe message for an upstream outage that
// survived the retry. Deliberately a constant: the apology path must not
// depend on any upstream service.
const apologyReply = "Sorry, something went wrong on my side while preparing your reply. Nothing in your session was lost. Please send that again."

// Engine orchestrates the tutoring pipeline per session:
// classify -> (retrieve -> reason | judge -> scaffold) -> compose -> commit.
//
// Sessions are isolated: each is processed strictly sequentially under its
// own lock, and a message commits all of its effects or none of them.
type Engine struct {
	classifier turnClassifier
	retriever  contextRetriever
	reasoner   artifactBuilder
	judge      answerJudge
	composer   replyComposer
	buffer     *memory.Buffer

	index      retrieval.Index
	sessions   SessionStore
	transcript TranscriptSink

	config Config
	logger *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires the concrete pipeline stages around one LLM provider, one
// embedding provider, and one corpus index.
func New(
	llmProvider llm.LLMProvider,
	embeddingProvider embedding.EmbeddingProvider,
	index retrieval.Index,
	sessions SessionStore,
	transcript TranscriptSink,
	renderer dialogue.Renderer,
	config Config,
	logger *log.Logger,
) *Engine {
	return &Engine{
		classifier: intent.NewClassifier(llmProvider, logger),
		retriever:  retrieval.NewRetriever(embeddingProvider, logger),
		reasoner:   reason.NewBuilder(llmProvider, logger),
		judge:      evaluate.NewJudge(llmProvider, config.Rubric, logger),
		composer:   dialogue.NewComposer(renderer, llmProvider, config.Dialogue, logger),
		buffer:     memory.NewBuffer(config.MaxTurns),
		index:      index,
		sessions:   sessions,
		transcript: transcript,
		config:     config,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

// pending is a fully computed message outcome awaiting commit. Nothing in
// the session is touched until every upstream call has succeeded.
type pending struct {
	turnType   string
	reply      string
	thread     *store.ActiveThread
	evaluation *store.EvaluationResult
	resolved   bool
	profile    store.LearnerProfile
	context    []store.ContextChunk
	level      int // scaffold level the reply was delivered at
}

// HandleMessage runs one student message through the pipeline and commits
// the outcome.
//
// Error behavior: an upstream outage that survives the retry yields a
// degraded Result with an apology and a nil error, leaving the session
// untouched. Cancellation and invariant violations return an error, also
// leaving the session untouched.
func (e *Engine) HandleMessage(ctx context.Context, userID, sessionID uuid.UUID, text string) (*Result, error) {
	lock := e.sessionLock(sessionID.String())
	lock.Lock()
	defer lock.Unlock()

	session := e.loadSession(userID, sessionID)

	e.logger.Printf("[ENGINE] Session %s: %s", sessionID, truncate(text, 50))

	classification := e.classifier.Classify(ctx, text, session)

	p, err := e.dispatch(ctx, session, classification.TurnType, text)
	if errors.Is(err, ErrNoActiveThread) {
		e.logger.Printf("[FALLBACK] %s arrived without an open thread, reprocessing as new question", classification.TurnType)
		p, err = e.handleNewQuestion(ctx, session, text)
	}
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			e.logger.Printf("[ERROR] %v; apologizing, session unchanged", err)
			return &Result{
				Reply:         apologyReply,
				TurnType:      classification.TurnType,
				ScaffoldLevel: session.ScaffoldLevel(),
				ThreadOpen:    session.ThreadOpen(),
				Degraded:      true,
			}, nil
		}
		return nil, err
	}

	return e.commit(ctx, session, userID, sessionID, text, p)
}

// Reset discards the session's turn log, active thread, and profile.
func (e *Engine) Reset(sessionID uuid.UUID) {
	lock := e.sessionLock(sessionID.String())
	lock.Lock()
	defer lock.Unlock()

	e.sessions.Delete(sessionID.String())
	e.logger.Printf("[ENGINE] Session %s reset", sessionID)
}

// State reports the session summary without mutating anything. A session
// that was never seen reports zeros.
func (e *Engine) State(sessionID uuid.UUID) SessionState {
	lock := e.sessionLock(sessionID.String())
	lock.Lock()
	defer lock.Unlock()

	session, found := e.sessions.Get(sessionID.String())
	if !found {
		return SessionState{}
	}
	state := SessionState{
		ActiveThreadPresent: session.ThreadOpen(),
		ScaffoldLevel:       session.ScaffoldLevel(),
		Resolved:            session.LastThreadResolved,
		TurnCount:           session.TurnCount(),
		LearnerLevel:        session.Profile.Level,
	}
	if session.Thread != nil {
		state.Attempts = session.Thread.Scaffold.Attempts
	}
	return state
}

func (e *Engine) dispatch(ctx context.Context, session *store.Session, turnType, text string) (*pending, error) {
	switch turnType {
	case store.TurnNewQuestion:
		return e.handleNewQuestion(ctx, session, text)
	case store.TurnAnswerAttempt:
		return e.handleAnswerAttempt(ctx, session, text)
	case store.TurnMetaQuestion:
		return e.handleMetaQuestion(ctx, session)
	default:
		return nil, &InvariantError{Reason: fmt.Sprintf("unknown turn type %q", turnType)}
	}
}

// handleNewQuestion opens a thread: retrieve, reason, compose the opening
// probe. An empty retrieval is answered honestly and opens no thread; it
// also clears any thread the student just abandoned.
func (e *Engine) handleNewQuestion(ctx context.Context, session *store.Session, text string) (*pending, error) {
	userID, err := uuid.Parse(session.UserID)
	if err != nil {
		return nil, &InvariantError{Reason: "session user id is not a uuid"}
	}

	var chunks []store.ContextChunk
	err = e.callUpstream(ctx, "retrieve", func(callCtx context.Context) error {
		var innerErr error
		chunks, innerErr = e.retriever.Execute(callCtx, e.index, userID, text, e.config.Retrieval)
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		e.logger.Printf("[ENGINE] Empty retrieval, no thread opened")
		var reply string
		err = e.callUpstream(ctx, "render", func(callCtx context.Context) error {
			var innerErr error
			reply, innerErr = e.composer.ComposeEmptyCorpus(callCtx, text)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		return &pending{
			turnType: store.TurnNewQuestion,
			reply:    reply,
			thread:   nil,
			profile:  session.Profile,
		}, nil
	}

	var artifact *store.ReasoningArtifact
	err = e.callUpstream(ctx, "reason", func(callCtx context.Context) error {
		var innerErr error
		artifact, innerErr = e.reasoner.Build(callCtx, text, chunks)
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	thread := &store.ActiveThread{
		Question: text,
		Artifact: *artifact,
		Context:  chunks,
		OpenedAt: time.Now(),
	}

	var reply string
	err = e.callUpstream(ctx, "render", func(callCtx context.Context) error {
		var innerErr error
		reply, innerErr = e.composer.ComposeOpening(callCtx, thread, session.Profile)
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	return &pending{
		turnType: store.TurnNewQuestion,
		reply:    reply,
		thread:   thread,
		profile:  session.Profile,
		context:  chunks,
	}, nil
}

// handleAnswerAttempt judges the attempt against the cached artifact and
// advances the scaffold. Retrieval never runs here; the thread owns its
// context for its whole lifetime.
func (e *Engine) handleAnswerAttempt(ctx context.Context, session *store.Session, text string) (*pending, error) {
	if session.Thread == nil {
		return nil, ErrNoActiveThread
	}
	thread := session.Thread

	var eval *store.EvaluationResult
	err := e.callUpstream(ctx, "judge", func(callCtx context.Context) error {
		var innerErr error
		eval, innerErr = e.judge.Evaluate(callCtx, text, thread.Artifact, thread.Context)
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	outcome, err := scaffold.Advance(thread.Scaffold, eval.Tier)
	if err != nil {
		return nil, &InvariantError{Reason: err.Error()}
	}

	var reply string
	err = e.callUpstream(ctx, "render", func(callCtx context.Context) error {
		var innerErr error
		reply, innerErr = e.composer.ComposeAttemptReply(callCtx, thread, eval, outcome)
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	next := *thread
	next.Scaffold = outcome.Next

	p := &pending{
		turnType:   store.TurnAnswerAttempt,
		reply:      reply,
		thread:     &next,
		evaluation: eval,
		profile:    profile.Update(session.Profile, eval.Tier),
		context:    thread.Context,
		level:      outcome.Next.Level,
	}
	if outcome.Next.Resolved {
		p.thread = nil
		p.resolved = true
	}
	return p, nil
}

// handleMetaQuestion answers a process question. The scaffold, profile,
// and thread are exactly as before; only the transcript grows.
func (e *Engine) handleMetaQuestion(ctx context.Context, session *store.Session) (*pending, error) {
	if session.Thread == nil {
		return nil, ErrNoActiveThread
	}

	var reply string
	err := e.callUpstream(ctx, "render", func(callCtx context.Context) error {
		var innerErr error
		reply, innerErr = e.composer.ComposeMetaSupport(callCtx, session.Thread)
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	return &pending{
		turnType: store.TurnMetaQuestion,
		reply:    reply,
		thread:   session.Thread,
		profile:  session.Profile,
		context:  session.Thread.Context,
		level:    session.Thread.Scaffold.Level,
	}, nil
}

// commit makes the message durable and then updates live state. The
// transcript write happens first: if it fails, the in-memory session is
// untouched and the caller falls into the apology path.
func (e *Engine) commit(ctx context.Context, session *store.Session, userID, sessionID uuid.UUID, text string, p *pending) (*Result, error) {
	now := time.Now()
	studentTurn := store.Turn{
		Role:       store.RoleStudent,
		Type:       p.turnType,
		Text:       text,
		CreatedAt:  now,
		Evaluation: p.evaluation,
	}
	tutorTurn := store.Turn{
		Role:          store.RoleTutor,
		Type:          store.TurnTutorReply,
		Text:          p.reply,
		CreatedAt:     now,
		ScaffoldLevel: p.level,
	}
	for _, chunk := range p.context {
		tutorTurn.CitedChunkIDs = append(tutorTurn.CitedChunkIDs, chunk.ID)
	}

	err := e.callUpstream(ctx, "persist", func(callCtx context.Context) error {
		return e.transcript.AppendTurns(callCtx, userID, sessionID, []store.Turn{studentTurn, tutorTurn})
	})
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			e.logger.Printf("[ERROR] %v; apologizing, session unchanged", err)
			return &Result{
				Reply:         apologyReply,
				TurnType:      p.turnType,
				ScaffoldLevel: session.ScaffoldLevel(),
				ThreadOpen:    session.ThreadOpen(),
				Degraded:      true,
			}, nil
		}
		return nil, err
	}

	session.Turns = e.buffer.Append(e.buffer.Append(session.Turns, studentTurn), tutorTurn)
	session.Thread = p.thread
	switch {
	case p.resolved:
		session.LastThreadResolved = true
	case p.thread != nil:
		session.LastThreadResolved = false
	}
	session.Profile = p.profile
	session.LastActiveAt = now
	e.sessions.Save(session)

	return &Result{
		Reply:          p.reply,
		TurnType:       p.turnType,
		Evaluation:     p.evaluation,
		ScaffoldLevel:  session.ScaffoldLevel(),
		ThreadOpen:     session.ThreadOpen(),
		ThreadResolved: p.resolved,
		Context:        p.context,
	}, nil
}

// callUpstream runs one upstream call with the per-call deadline, retrying
// exactly once after a short backoff. Parent cancellation is never
// retried and never converted to an UpstreamError.
func (e *Engine) callUpstream(ctx context.Context, stage string, fn func(context.Context) error) error {
	attempt := func() error {
		callCtx := ctx
		if e.config.UpstreamTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, e.config.UpstreamTimeout)
			defer cancel()
		}
		return fn(callCtx)
	}

	err := attempt()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	e.logger.Printf("[RETRY] %s failed, retrying once: %v", stage, err)
	select {
	case <-time.After(e.config.RetryBackoff):
	case <-ctx.Done():
		return ctx.Err()
	}

	err = attempt()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &UpstreamError{
		Stage:   stage,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}

// loadSession returns a private copy of the session, creating a fresh one
// on first contact. The copy keeps store contents out of reach of the
// in-flight message until commit.
func (e *Engine) loadSession(userID, sessionID uuid.UUID) *store.Session {
	if session, found := e.sessions.Get(sessionID.String()); found {
		return cloneSession(session)
	}
	return &store.Session{
		ID:        sessionID.String(),
		UserID:    userID.String(),
		Profile:   profile.New(),
		CreatedAt: time.Now(),
	}
}

func (e *Engine) sessionLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[id] = lock
	}
	return lock
}

// cloneSession copies the mutable parts of a session. Evaluation results
// and reasoning steps are immutable once written, so their pointers are
// shared.
func cloneSession(s *store.Session) *store.Session {
	clone := *s

	clone.Turns = make([]store.Turn, len(s.Turns))
	copy(clone.Turns, s.Turns)

	if s.Thread != nil {
		thread := *s.Thread
		thread.Context = make([]store.ContextChunk, len(s.Thread.Context))
		copy(thread.Context, s.Thread.Context)
		thread.Artifact.Steps = make([]store.ReasoningStep, len(s.Thread.Artifact.Steps))
		copy(thread.Artifact.Steps, s.Thread.Artifact.Steps)
		clone.Thread = &thread
	}

	return &clone
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}
