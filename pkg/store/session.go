package store

import (
	"time"

	"github.com/google/uuid"
)

// Turn roles.
const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
)

// Turn type labels. The set is closed: the engine dispatches with an
// exhaustive switch and treats anything else as an invariant violation.
const (
	TurnNewQuestion   = "new_question"
	TurnAnswerAttempt = "answer_attempt"
	TurnMetaQuestion  = "meta_question"
	TurnTutorReply    = "tutor_reply"
)

// Performance tiers derived from the weighted evaluation score.
const (
	TierFail     = "fail"
	TierPartial  = "partial"
	TierAdequate = "adequate"
	TierStrong   = "strong"
)

// ContextChunk is one retrieved piece of source material.
type ContextChunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Source     string    `json:"source"` // original file name, e.g. "photosynthesis.pdf"
	Page       int       `json:"page"`
	Content    string    `json:"content"`
	Score      float64   `json:"score"` // fused relevance, descending within a result set
}

// ReasoningStep is a single inference step citing the chunks that support it.
type ReasoningStep struct {
	Text     string      `json:"text"`
	ChunkIDs []uuid.UUID `json:"chunk_ids"`
}

// ReasoningArtifact is the internal question/reasoning/answer triple built
// when a question is opened. It is never shown to the student verbatim; the
// dialogue composer decides which parts surface at which scaffold level.
type ReasoningArtifact struct {
	Question    string          `json:"question"`
	Steps       []ReasoningStep `json:"steps"`
	FinalAnswer string          `json:"final_answer"`
}

// DimensionScores holds the four independent sub-scores, each on the 0-4
// ordinal scale.
type DimensionScores struct {
	Accuracy    int `json:"accuracy"`    // conceptual accuracy
	Coherence   int `json:"coherence"`   // reasoning coherence
	Evidence    int `json:"evidence"`    // evidence utilization
	Integration int `json:"integration"` // conceptual integration
}

// EvaluationResult is the outcome of judging one answer attempt.
type EvaluationResult struct {
	Scores      DimensionScores `json:"scores"`
	Weighted    float64         `json:"weighted"` // weighted mean on the 0-4 scale
	Tier        string          `json:"tier"`
	Feedback    string          `json:"feedback"`
	Suggestions []string        `json:"suggestions"`
}

// ScaffoldState tracks the support level for the open question. Level 0
// means the question was just opened with no struggle yet; levels 1-4
// escalate support up to a direct answer.
type ScaffoldState struct {
	Level    int  `json:"level"`
	Attempts int  `json:"attempts"` // evaluated attempts so far on this thread
	Resolved bool `json:"resolved"`
}

// Turn is one utterance in the dialogue. Immutable once appended.
type Turn struct {
	Role       string            `json:"role"`
	Type       string            `json:"type"`
	Text       string            `json:"text"`
	CreatedAt  time.Time         `json:"created_at"`
	Evaluation *EvaluationResult `json:"evaluation,omitempty"`

	// CitedChunkIDs lists the chunks behind a tutor reply so the durable
	// transcript can record citations. Empty on student turns.
	CitedChunkIDs []uuid.UUID `json:"cited_chunk_ids,omitempty"`

	// ScaffoldLevel is the level the reply was delivered at, for the
	// durable transcript.
	ScaffoldLevel int `json:"scaffold_level,omitempty"`
}

// ActiveThread is the question currently open for follow-up.
//
// The reasoning artifact and retrieved context are cached here for the
// thread's whole lifetime so follow-ups never re-retrieve. At most one
// thread exists per session; a new top-level question replaces it.
type ActiveThread struct {
	Question string            `json:"question"`
	Artifact ReasoningArtifact `json:"artifact"`
	Context  []ContextChunk    `json:"context"`
	Scaffold ScaffoldState     `json:"scaffold"`
	OpenedAt time.Time         `json:"opened_at"`
}

// LearnerProfile is the session-scoped difficulty calibration. Streaks of
// strong answers raise the level, streaks of failures lower it. It shapes
// the register of opening questions only and is never visible to the
// evaluator.
type LearnerProfile struct {
	Level             int `json:"level"` // 0 (guided) .. 4 (advanced)
	ConsecutiveStrong int `json:"consecutive_strong"`
	ConsecutiveWeak   int `json:"consecutive_weak"`
	Evaluated         int `json:"evaluated"` // total evaluated attempts
}

// Session is the live tutoring session state held by the session store.
// All mutation happens under the engine's per-session lock.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// THE TRANSCRIPT WINDOW (bounded turn log, oldest evicted first)
	Turns []Turn `json:"turns"`

	// THE WORKBENCH (the open question and its cached artifacts)
	Thread *ActiveThread `json:"thread"`

	// LastThreadResolved reports how the most recent thread closed: true
	// when it resolved, false while a thread is open or after one was
	// abandoned for a new question.
	LastThreadResolved bool `json:"last_thread_resolved"`

	Profile LearnerProfile `json:"profile"`

	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// ScaffoldLevel returns the current scaffold level, 0 when no thread is open.
func (s *Session) ScaffoldLevel() int {
	if s.Thread == nil {
		return 0
	}
	return s.Thread.Scaffold.Level
}

// ThreadOpen reports whether a question is currently open.
func (s *Session) ThreadOpen() bool {
	return s.Thread != nil
}

// TurnCount returns the number of turns still held in the bounded log.
func (s *Session) TurnCount() int {
	return len(s.Turns)
}
