package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-tutoring-be/pkg/llm"
	"ai-tutoring-be/pkg/store"
)

// MinAnswerRunes is the substance floor: anything shorter is scored as
// insufficient without a model call.
const MinAnswerRunes = 20

// maxMarkerRunes bounds the hedge-phrase check: a long answer containing
// "not sure" is still a real attempt and goes to the model.
const maxMarkerRunes = 40

// Phrases that signal the student is not actually attempting an answer.
var insufficiencyMarkers = []string{
	"i don't know",
	"i dont know",
	"no idea",
	"not sure",
	"i give up",
	"you tell me",
}

// Judge scores an answer attempt against the cached reasoning artifact and
// source chunks. It deliberately knows nothing about the scaffold level:
// the same answer must earn the same scores no matter how much help the
// student has already received.
type Judge struct {
	llmProvider llm.LLMProvider
	rubric      Rubric
	logger      *log.Logger
}

func NewJudge(llmProvider llm.LLMProvider, rubric Rubric, logger *log.Logger) *Judge {
	return &Judge{
		llmProvider: llmProvider,
		rubric:      rubric,
		logger:      logger,
	}
}

// judgeVerdict is the model's raw output before clamping and aggregation.
type judgeVerdict struct {
	Accuracy    int      `json:"accuracy"`
	Coherence   int      `json:"coherence"`
	Evidence    int      `json:"evidence"`
	Integration int      `json:"integration"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// Evaluate produces the four sub-scores, the weighted score, and the tier
// for one answer attempt. Model outage or an unparseable verdict is
// returned as an error; fabricating scores would corrupt the scaffolding
// decisions downstream.
func (j *Judge) Evaluate(
	ctx context.Context,
	answer string,
	artifact store.ReasoningArtifact,
	chunks []store.ContextChunk,
) (*store.EvaluationResult, error) {

	if insufficient(answer) {
		j.logger.Printf("[JUDGE] Insufficient attempt, skipping model call")
		return j.insufficientResult(), nil
	}

	prompt := j.buildPrompt(answer, artifact, chunks)

	response, err := j.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		return nil, fmt.Errorf("judge call failed: %w", err)
	}

	verdict, err := parseVerdict(response)
	if err != nil {
		return nil, fmt.Errorf("judge verdict unparseable: %w", err)
	}

	scores := store.DimensionScores{
		Accuracy:    ClampScore(verdict.Accuracy),
		Coherence:   ClampScore(verdict.Coherence),
		Evidence:    ClampScore(verdict.Evidence),
		Integration: ClampScore(verdict.Integration),
	}
	weighted, tier := j.rubric.Aggregate(scores)

	j.logger.Printf("[JUDGE] Scores: acc=%d coh=%d evi=%d int=%d weighted=%.2f tier=%s",
		scores.Accuracy, scores.Coherence, scores.Evidence, scores.Integration, weighted, tier)

	return &store.EvaluationResult{
		Scores:      scores,
		Weighted:    weighted,
		Tier:        tier,
		Feedback:    strings.TrimSpace(verdict.Feedback),
		Suggestions: verdict.Suggestions,
	}, nil
}

func (j *Judge) insufficientResult() *store.EvaluationResult {
	scores := store.DimensionScores{}
	weighted, tier := j.rubric.Aggregate(scores)
	return &store.EvaluationResult{
		Scores:   scores,
		Weighted: weighted,
		Tier:     tier,
		Feedback: "The answer does not engage with the question yet.",
	}
}

func (j *Judge) buildPrompt(answer string, artifact store.ReasoningArtifact, chunks []store.ContextChunk) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a strict grader. Score the student answer against the reference reasoning and source material.\n")
	prompt.WriteString("You do NOT tutor, hint, or reveal the reference answer. You only score.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<question>\n")
	prompt.WriteString(artifact.Question)
	prompt.WriteString("\n</question>\n\n")

	prompt.WriteString("<reference_reasoning>\n")
	for i, step := range artifact.Steps {
		prompt.WriteString(fmt.Sprintf("%d. %s\n", i+1, step.Text))
	}
	prompt.WriteString("REFERENCE_ANSWER: ")
	prompt.WriteString(artifact.FinalAnswer)
	prompt.WriteString("\n</reference_reasoning>\n\n")

	prompt.WriteString("<source_material>\n")
	for i, c := range chunks {
		prompt.WriteString(fmt.Sprintf("[%d] (%s, page %d) %s\n", i+1, c.Source, c.Page, snippet(c.Content, 500)))
	}
	prompt.WriteString("</source_material>\n\n")

	prompt.WriteString("<student_answer>\n")
	prompt.WriteString(answer)
	prompt.WriteString("\n</student_answer>\n\n")

	prompt.WriteString("<scoring_rubric>\n")
	prompt.WriteString("Score each dimension independently on a 0-4 scale (0=absent, 1=poor, 2=developing, 3=good, 4=excellent):\n\n")
	prompt.WriteString("accuracy: Are the stated facts and concepts correct?\n")
	prompt.WriteString("coherence: Does the reasoning follow logically step to step?\n")
	prompt.WriteString("evidence: Does the answer use specifics consistent with the source material?\n")
	prompt.WriteString("integration: Does the answer connect concepts rather than listing them?\n\n")
	prompt.WriteString("Dimensions are independent: a fluent answer with wrong facts scores high coherence and low accuracy.\n")
	prompt.WriteString("</scoring_rubric>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"accuracy\": 0,\n")
	prompt.WriteString("  \"coherence\": 0,\n")
	prompt.WriteString("  \"evidence\": 0,\n")
	prompt.WriteString("  \"integration\": 0,\n")
	prompt.WriteString("  \"feedback\": \"One or two sentences on what the answer does well and where it falls short. Never state the reference answer.\",\n")
	prompt.WriteString("  \"suggestions\": [\"short pointer\", \"short pointer\"]\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func parseVerdict(response string) (*judgeVerdict, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(jsonContent), &verdict); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	return &verdict, nil
}

func insufficient(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	runes := len([]rune(trimmed))
	if runes < MinAnswerRunes {
		return true
	}
	if runes > maxMarkerRunes {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range insufficiencyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func snippet(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
