package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-tutoring-be/pkg/llm"
	"ai-tutoring-be/pkg/store"
	"ai-tutoring-be/pkg/tutor/memory"
)

// Classification is a resolved student turn type.
type Classification struct {
	TurnType   string  `json:"turn_type"`  // new_question | answer_attempt | meta_question
	Confidence float32 `json:"confidence"` // 0.0-1.0
	Reasoning  string  `json:"reasoning"`
}

// minConfidence is the floor below which a model classification is
// treated as ambiguous and softened to meta_question.
const minConfidence = 0.5

// Phrases that mark a stuck or process-level message. Used by the
// heuristic fallback when the model is unavailable.
var metaMarkers = []string{
	"don't know",
	"dont know",
	"not sure",
	"confused",
	"what do you mean",
	"help",
	"hint",
	"stuck",
	"give up",
	"too hard",
}

// Classifier resolves each student message into one of the three turn
// types. It never hard-fails: when the model call or parsing breaks it
// falls back to keyword heuristics, because a wrong-but-reasonable
// classification beats an aborted message.
type Classifier struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewClassifier(llmProvider llm.LLMProvider, logger *log.Logger) *Classifier {
	return &Classifier{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Classify resolves the turn type of a student message.
//
// Without an open thread the only admissible type is new_question, so no
// model call is made. With an open thread the model decides, with
// ambiguity and low confidence both resolving to meta_question.
func (c *Classifier) Classify(ctx context.Context, message string, session *store.Session) *Classification {
	if !session.ThreadOpen() {
		return &Classification{
			TurnType:   store.TurnNewQuestion,
			Confidence: 1.0,
			Reasoning:  "No open question; every message starts a new one",
		}
	}

	prompt := c.buildPrompt(message, session)

	response, err := c.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		c.logger.Printf("[WARN] Turn classification failed, using heuristics: %v", err)
		return c.fallback(message)
	}

	classification, err := parseClassification(response)
	if err != nil {
		c.logger.Printf("[WARN] Turn classification unparseable, using heuristics: %v", err)
		return c.fallback(message)
	}

	if classification.Confidence < minConfidence {
		c.logger.Printf("[INTENT] Low confidence %.2f, softening %s to meta_question",
			classification.Confidence, classification.TurnType)
		classification.TurnType = store.TurnMetaQuestion
	}

	c.logger.Printf("[INTENT] Resolved: %s (Confidence: %.2f)", classification.TurnType, classification.Confidence)
	return classification
}

func (c *Classifier) buildPrompt(message string, session *store.Session) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a turn classifier for a tutoring dialogue. Your ONLY job is to label the student's message.\n")
	prompt.WriteString("You do NOT answer, tutor, or evaluate. You only classify.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<dialogue_state>\n")
	prompt.WriteString(fmt.Sprintf("OPEN_QUESTION: \"%s\"\n", session.Thread.Question))
	if window := memory.PromptWindow(session.Turns, 6, 200); window != "" {
		prompt.WriteString("RECENT_TURNS:\n")
		prompt.WriteString(window)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</dialogue_state>\n\n")

	prompt.WriteString("<student_message>\n")
	prompt.WriteString(message)
	prompt.WriteString("\n</student_message>\n\n")

	prompt.WriteString("<turn_definitions>\n")
	prompt.WriteString("Choose ONE label:\n\n")
	prompt.WriteString("answer_attempt: The student is trying to answer the OPEN_QUESTION\n")
	prompt.WriteString("  - Even a wrong, hedged, or partial answer counts as an attempt\n")
	prompt.WriteString("  - Example: 'maybe because the water moves in?'\n\n")
	prompt.WriteString("new_question: The student abandons the open question and asks about a DIFFERENT topic\n")
	prompt.WriteString("  - Only when the subject clearly changes\n")
	prompt.WriteString("  - Example: 'actually, can we talk about mitosis instead?'\n\n")
	prompt.WriteString("meta_question: The student asks about the process, expresses confusion, or requests help\n")
	prompt.WriteString("  - Example: 'what do you mean by gradient?', 'can I get a hint?', 'I'm lost'\n\n")
	prompt.WriteString("Rule: If the message is ambiguous between labels, choose meta_question.\n")
	prompt.WriteString("</turn_definitions>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"turn_type\": \"new_question|answer_attempt|meta_question\",\n")
	prompt.WriteString("  \"confidence\": 0.95,\n")
	prompt.WriteString("  \"reasoning\": \"Brief explanation\"\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func parseClassification(response string) (*Classification, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var classification Classification
	if err := json.Unmarshal([]byte(jsonContent), &classification); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	classification.TurnType = strings.ToLower(strings.TrimSpace(classification.TurnType))
	switch classification.TurnType {
	case store.TurnNewQuestion, store.TurnAnswerAttempt, store.TurnMetaQuestion:
	default:
		return nil, fmt.Errorf("unknown turn type %q", classification.TurnType)
	}

	return &classification, nil
}

// fallback classifies without the model. Stuck markers and very short
// replies read as meta; a trailing question mark reads as a new question;
// everything else is treated as an answer attempt.
func (c *Classifier) fallback(message string) *Classification {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)

	for _, marker := range metaMarkers {
		if strings.Contains(lower, marker) {
			return &Classification{
				TurnType:   store.TurnMetaQuestion,
				Confidence: 0.5,
				Reasoning:  "Fallback: stuck marker in message",
			}
		}
	}

	if len(strings.Fields(trimmed)) < 3 {
		return &Classification{
			TurnType:   store.TurnMetaQuestion,
			Confidence: 0.5,
			Reasoning:  "Fallback: too short to be an attempt",
		}
	}

	if strings.HasSuffix(trimmed, "?") {
		return &Classification{
			TurnType:   store.TurnNewQuestion,
			Confidence: 0.5,
			Reasoning:  "Fallback: interrogative form",
		}
	}

	return &Classification{
		TurnType:   store.TurnAnswerAttempt,
		Confidence: 0.5,
		Reasoning:  "Fallback: declarative reply to an open question",
	}
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
