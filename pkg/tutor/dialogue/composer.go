package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"ai-tutoring-be/pkg/llm"
	"ai-tutoring-be/pkg/store"
	"ai-tutoring-be/pkg/tutor/scaffold"
)

// DefaultOptionCount is the number of options in a multiple-choice prompt.
const DefaultOptionCount = 4

// Config encapsulates composer parameters.
type Config struct {
	OptionCount int
}

func DefaultConfig() Config {
	return Config{OptionCount: DefaultOptionCount}
}

// Composer assembles every student-facing tutor reply.
//
// The final answer is withheld structurally: it is only ever placed into
// renderer inputs by composeDirectAnswer, so no hint, analogy, or
// feedback path can leak it even if a template goes wrong.
type Composer struct {
	renderer    Renderer
	llmProvider llm.LLMProvider
	config      Config
	logger      *log.Logger
}

func NewComposer(renderer Renderer, llmProvider llm.LLMProvider, config Config, logger *log.Logger) *Composer {
	if config.OptionCount < 2 {
		config.OptionCount = DefaultOptionCount
	}
	return &Composer{
		renderer:    renderer,
		llmProvider: llmProvider,
		config:      config,
		logger:      logger,
	}
}

// ComposeOpening renders the probe that opens a new thread. The register
// follows the learner profile: struggling students get a gentler opening,
// advanced students a brisker one.
func (c *Composer) ComposeOpening(ctx context.Context, thread *store.ActiveThread, profile store.LearnerProfile) (string, error) {
	return c.renderer.Render(ctx, TemplateOpening, map[string]string{
		"question": thread.Question,
		"register": register(profile),
		"sources":  citationLine(thread.Context),
	})
}

// ComposeEmptyCorpus renders the reply for a question the corpus cannot
// support. No thread exists in this path.
func (c *Composer) ComposeEmptyCorpus(ctx context.Context, question string) (string, error) {
	return c.renderer.Render(ctx, TemplateEmptyCorpus, map[string]string{
		"question": question,
	})
}

// ComposeAttemptReply renders the reply to an evaluated answer attempt,
// dispatching on the scaffold outcome.
func (c *Composer) ComposeAttemptReply(
	ctx context.Context,
	thread *store.ActiveThread,
	eval *store.EvaluationResult,
	outcome scaffold.Outcome,
) (string, error) {

	switch eval.Tier {
	case store.TierAdequate, store.TierStrong:
		return c.composeSuccess(ctx, thread, eval)
	case store.TierFail, store.TierPartial:
	default:
		return "", fmt.Errorf("unknown performance tier %q", eval.Tier)
	}

	switch outcome.Strategy {
	case scaffold.StrategyHint:
		return c.composeHint(ctx, thread, eval, outcome.Next.Level)
	case scaffold.StrategyAnalogy:
		return c.composeAnalogy(ctx, thread)
	case scaffold.StrategyMultipleChoice:
		return c.composeMultipleChoice(ctx, thread)
	case scaffold.StrategyDirectAnswer:
		return c.composeDirectAnswer(ctx, thread)
	default:
		return "", fmt.Errorf("no reply strategy for %q", outcome.Strategy)
	}
}

// ComposeMetaSupport renders the reply to a process question or a stuck
// signal. It restates the open question and never advances the scaffold;
// the clarification speaks in the register of whatever support is already
// on the table at the thread's current level.
func (c *Composer) ComposeMetaSupport(ctx context.Context, thread *store.ActiveThread) (string, error) {
	return c.renderer.Render(ctx, TemplateMetaSupport, map[string]string{
		"question": thread.Question,
		"feedback": metaSupportLine(thread.Scaffold.Level),
	})
}

// metaSupportLine frames the clarification around the current level's
// strategy. At level 0 only the opening probe exists, so the line is a
// plain reassurance; once a hint, analogy, or option set has been given,
// the clarification points the student back at it.
func metaSupportLine(level int) string {
	switch scaffold.StrategyForLevel(level) {
	case scaffold.StrategyHint:
		return "Look back at the hint I gave you; it points at the exact piece you need."
	case scaffold.StrategyAnalogy:
		return "Lean on the analogy we just walked through, and try mapping it back onto the question."
	case scaffold.StrategyMultipleChoice:
		return "Use the options above to narrow it down; thinking about why the wrong ones fail counts too."
	case scaffold.StrategyDirectAnswer:
		return "We just walked through the full answer together; try putting it in your own words."
	default:
		return "There's no penalty for thinking out loud here."
	}
}

func (c *Composer) composeSuccess(ctx context.Context, thread *store.ActiveThread, eval *store.EvaluationResult) (string, error) {
	return c.renderer.Render(ctx, TemplateSuccess, map[string]string{
		"tier":     eval.Tier,
		"feedback": eval.Feedback,
		"sources":  citationLine(thread.Context),
	})
}

func (c *Composer) composeHint(ctx context.Context, thread *store.ActiveThread, eval *store.EvaluationResult, level int) (string, error) {
	return c.renderer.Render(ctx, TemplateHint, map[string]string{
		"question": thread.Question,
		"feedback": eval.Feedback,
		"hint":     hintFromArtifact(thread.Artifact, level),
	})
}

func (c *Composer) composeAnalogy(ctx context.Context, thread *store.ActiveThread) (string, error) {
	analogy, err := c.buildAnalogy(ctx, thread.Artifact)
	if err != nil {
		return "", err
	}
	return c.renderer.Render(ctx, TemplateAnalogy, map[string]string{
		"question": thread.Question,
		"analogy":  analogy,
	})
}

func (c *Composer) composeMultipleChoice(ctx context.Context, thread *store.ActiveThread) (string, error) {
	options, err := c.buildChoices(ctx, thread.Artifact)
	if err != nil {
		return "", err
	}
	return c.renderer.Render(ctx, TemplateMultipleChoice, map[string]string{
		"question": thread.Question,
		"options":  options,
	})
}

// composeDirectAnswer is the single place the final answer enters renderer
// inputs.
func (c *Composer) composeDirectAnswer(ctx context.Context, thread *store.ActiveThread) (string, error) {
	var steps strings.Builder
	for i, step := range thread.Artifact.Steps {
		steps.WriteString(fmt.Sprintf("%d. %s\n", i+1, step.Text))
	}

	return c.renderer.Render(ctx, TemplateDirectAnswer, map[string]string{
		"question": thread.Question,
		"answer":   thread.Artifact.FinalAnswer,
		"steps":    steps.String(),
		"sources":  citationLine(thread.Context),
	})
}

// buildAnalogy asks the model for one analogy that illuminates the
// reasoning without stating the conclusion.
func (c *Composer) buildAnalogy(ctx context.Context, artifact store.ReasoningArtifact) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("<system>\n")
	prompt.WriteString("You craft teaching analogies. The student must NOT be told the answer.\n")
	prompt.WriteString("</system>\n\n")
	prompt.WriteString("<question>\n")
	prompt.WriteString(artifact.Question)
	prompt.WriteString("\n</question>\n\n")
	prompt.WriteString("<private_reasoning>\n")
	for _, step := range artifact.Steps {
		prompt.WriteString("- ")
		prompt.WriteString(step.Text)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</private_reasoning>\n\n")
	prompt.WriteString("<instructions>\n")
	prompt.WriteString("Produce ONE everyday analogy (two or three sentences) that mirrors the mechanism in the reasoning.\n")
	prompt.WriteString("Never mention the conclusion or technical terms from the question; the analogy should make the student derive them.\n")
	prompt.WriteString("</instructions>\n\n")
	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON: {\"analogy\": \"...\"}\n")
	prompt.WriteString("</output_format>")

	response, err := c.llmProvider.Generate(ctx, prompt.String(), llm.WithTemperature(0.7))
	if err != nil {
		return "", fmt.Errorf("analogy call failed: %w", err)
	}

	var parsed struct {
		Analogy string `json:"analogy"`
	}
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return "", fmt.Errorf("no JSON found in analogy response")
	}
	if err := json.Unmarshal([]byte(jsonContent), &parsed); err != nil {
		return "", fmt.Errorf("analogy unmarshal failed: %w", err)
	}
	if strings.TrimSpace(parsed.Analogy) == "" {
		return "", fmt.Errorf("empty analogy")
	}
	return strings.TrimSpace(parsed.Analogy), nil
}

// buildChoices asks the model for distractors, mixes in the correct
// option, and formats a lettered list. Option order is alphabetical so
// the correct letter varies by content, not by position.
func (c *Composer) buildChoices(ctx context.Context, artifact store.ReasoningArtifact) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("<system>\n")
	prompt.WriteString("You write multiple-choice options for a tutoring system.\n")
	prompt.WriteString("</system>\n\n")
	prompt.WriteString("<question>\n")
	prompt.WriteString(artifact.Question)
	prompt.WriteString("\n</question>\n\n")
	prompt.WriteString("<correct_answer>\n")
	prompt.WriteString(artifact.FinalAnswer)
	prompt.WriteString("\n</correct_answer>\n\n")
	prompt.WriteString("<instructions>\n")
	prompt.WriteString(fmt.Sprintf("Produce a one-sentence restatement of the correct answer and %d plausible but wrong options.\n", c.config.OptionCount-1))
	prompt.WriteString("Wrong options must reflect common misconceptions, be the same length and tone as the correct one, and be clearly wrong to an expert.\n")
	prompt.WriteString("</instructions>\n\n")
	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON: {\"correct\": \"...\", \"distractors\": [\"...\", \"...\"]}\n")
	prompt.WriteString("</output_format>")

	response, err := c.llmProvider.Generate(ctx, prompt.String(), llm.WithTemperature(0.7))
	if err != nil {
		return "", fmt.Errorf("choices call failed: %w", err)
	}

	var parsed struct {
		Correct     string   `json:"correct"`
		Distractors []string `json:"distractors"`
	}
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return "", fmt.Errorf("no JSON found in choices response")
	}
	if err := json.Unmarshal([]byte(jsonContent), &parsed); err != nil {
		return "", fmt.Errorf("choices unmarshal failed: %w", err)
	}

	options := dedupeOptions(parsed.Correct, parsed.Distractors)
	if len(options) < 2 {
		return "", fmt.Errorf("too few usable options: %d", len(options))
	}
	if len(options) > c.config.OptionCount {
		options = options[:c.config.OptionCount]
	}
	sort.Strings(options)

	var b strings.Builder
	for i, opt := range options {
		b.WriteString(fmt.Sprintf("%c) %s\n", 'A'+i, opt))
	}
	return b.String(), nil
}

func dedupeOptions(correct string, distractors []string) []string {
	correct = strings.TrimSpace(correct)
	if correct == "" {
		return nil
	}

	options := []string{correct}
	seen := map[string]bool{strings.ToLower(correct): true}
	for _, d := range distractors {
		d = strings.TrimSpace(d)
		if d == "" || seen[strings.ToLower(d)] {
			continue
		}
		seen[strings.ToLower(d)] = true
		options = append(options, d)
	}
	return options
}

// hintFromArtifact discloses reasoning progressively: the hint for level n
// paraphrases step n of the private reasoning, never the final answer.
func hintFromArtifact(artifact store.ReasoningArtifact, level int) string {
	if len(artifact.Steps) == 0 {
		return "Focus on the key concept the question is really asking about."
	}
	idx := level - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(artifact.Steps) {
		idx = len(artifact.Steps) - 1
	}
	return artifact.Steps[idx].Text
}

// citationLine formats the sources behind a thread as "page N of file",
// deduplicated, capped at three entries.
func citationLine(chunks []store.ContextChunk) string {
	var parts []string
	seen := make(map[string]bool)
	for _, c := range chunks {
		key := fmt.Sprintf("%s#%d", c.Source, c.Page)
		if c.Source == "" || seen[key] {
			continue
		}
		seen[key] = true
		parts = append(parts, fmt.Sprintf("page %d of %s", c.Page, c.Source))
		if len(parts) == 3 {
			break
		}
	}
	return strings.Join(parts, ", ")
}

func register(profile store.LearnerProfile) string {
	switch {
	case profile.Level >= 3:
		return "advanced"
	case profile.Level <= 1:
		return "guided"
	default:
		return "standard"
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
