package engine

import (
	"context"
	"time"

	"ai-tutoring-be/pkg/store"
	"ai-tutoring-be/pkg/tutor/dialogue"
	"ai-tutoring-be/pkg/tutor/evaluate"
	"ai-tutoring-be/pkg/tutor/intent"
	"ai-tutoring-be/pkg/tutor/retrieval"
	"ai-tutoring-be/pkg/tutor/scaffold"

	"github.com/google/uuid"
)

// SessionStore holds live session state. The engine treats it as the
// single source of truth for a session; every mutation goes through Save
// under the session lock.
type SessionStore interface {
	Get(id string) (*store.Session, bool)
	Save(session *store.Session)
	Delete(id string)
}

// TranscriptSink durably records committed turns. It is called before the
// in-memory commit; when it fails the whole message is rolled back.
type TranscriptSink interface {
	AppendTurns(ctx context.Context, userID, sessionID uuid.UUID, turns []store.Turn) error
}

// NopTranscript discards turns. Used where no durable transcript is
// configured, e.g. in the API smoke script.
type NopTranscript struct{}

func (NopTranscript) AppendTurns(ctx context.Context, userID, sessionID uuid.UUID, turns []store.Turn) error {
	return nil
}

// Stage seams, satisfied by the concrete pipeline packages. Narrow on
// purpose so tests can swap a single stage.
type turnClassifier interface {
	Classify(ctx context.Context, message string, session *store.Session) *intent.Classification
}

type contextRetriever interface {
	Execute(ctx context.Context, index retrieval.Index, userID uuid.UUID, query string, config retrieval.Config) ([]store.ContextChunk, error)
}

type artifactBuilder interface {
	Build(ctx context.Context, question string, chunks []store.ContextChunk) (*store.ReasoningArtifact, error)
}

type answerJudge interface {
	Evaluate(ctx context.Context, answer string, artifact store.ReasoningArtifact, chunks []store.ContextChunk) (*store.EvaluationResult, error)
}

type replyComposer interface {
	ComposeOpening(ctx context.Context, thread *store.ActiveThread, profile store.LearnerProfile) (string, error)
	ComposeEmptyCorpus(ctx context.Context, question string) (string, error)
	ComposeAttemptReply(ctx context.Context, thread *store.ActiveThread, eval *store.EvaluationResult, outcome scaffold.Outcome) (string, error)
	ComposeMetaSupport(ctx context.Context, thread *store.ActiveThread) (string, error)
}

// Config encapsulates engine parameters.
type Config struct {
	Retrieval retrieval.Config
	Rubric    evaluate.Rubric
	Dialogue  dialogue.Config

	// MaxTurns bounds the in-session transcript window.
	MaxTurns int

	// UpstreamTimeout caps each model or search call. Zero disables the
	// per-call deadline.
	UpstreamTimeout time.Duration

	// RetryBackoff is the pause before the single retry of a failed
	// upstream call.
	RetryBackoff time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Retrieval:       retrieval.DefaultConfig(),
		Rubric:          evaluate.DefaultRubric(),
		Dialogue:        dialogue.DefaultConfig(),
		MaxTurns:        12,
		UpstreamTimeout: 45 * time.Second,
		RetryBackoff:    250 * time.Millisecond,
	}
}

// Result is the outcome of one handled message.
type Result struct {
	Reply    string
	TurnType string

	// Evaluation is set when the message was judged as an answer attempt.
	Evaluation *store.EvaluationResult

	ScaffoldLevel  int
	ThreadOpen     bool
	ThreadResolved bool // this message closed the thread

	// Context is the retrieved material behind the reply, for citations.
	Context []store.ContextChunk

	// Degraded marks the apology path: upstream stayed down after the
	// retry and the session was left untouched.
	Degraded bool
}

// SessionState is the read-only session summary.
type SessionState struct {
	ActiveThreadPresent bool `json:"active_thread_present"`
	ScaffoldLevel       int  `json:"scaffold_level"`
	Attempts            int  `json:"attempts"`

	// Resolved reports that the most recent thread closed by resolution
	// rather than being abandoned or still open.
	Resolved bool `json:"resolved"`

	TurnCount    int `json:"turn_count"`
	LearnerLevel int `json:"learner_level"`
}
