package dialogue

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-tutoring-be/pkg/llm"
)

// Template ids the composer renders with.
const (
	TemplateOpening        = "opening_question"
	TemplateEmptyCorpus    = "empty_corpus"
	TemplateSuccess        = "success"
	TemplateHint           = "hint"
	TemplateAnalogy        = "analogy"
	TemplateMultipleChoice = "multiple_choice"
	TemplateDirectAnswer   = "direct_answer"
	TemplateMetaSupport    = "meta_support"
)

// Renderer turns a template id plus inputs into student-facing text.
type Renderer interface {
	Render(ctx context.Context, templateID string, inputs map[string]string) (string, error)
}

// TemplateRenderer produces deterministic replies. Every input it needs
// arrives via the inputs map; missing optional inputs degrade to shorter
// text instead of failing.
type TemplateRenderer struct{}

func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{}
}

func (r *TemplateRenderer) Render(ctx context.Context, templateID string, inputs map[string]string) (string, error) {
	switch templateID {
	case TemplateOpening:
		return r.renderOpening(inputs), nil
	case TemplateEmptyCorpus:
		return r.renderEmptyCorpus(inputs), nil
	case TemplateSuccess:
		return r.renderSuccess(inputs), nil
	case TemplateHint:
		return r.renderHint(inputs), nil
	case TemplateAnalogy:
		return r.renderAnalogy(inputs), nil
	case TemplateMultipleChoice:
		return r.renderMultipleChoice(inputs), nil
	case TemplateDirectAnswer:
		return r.renderDirectAnswer(inputs), nil
	case TemplateMetaSupport:
		return r.renderMetaSupport(inputs), nil
	default:
		return "", fmt.Errorf("unknown template id %q", templateID)
	}
}

func (r *TemplateRenderer) renderOpening(inputs map[string]string) string {
	var b strings.Builder

	switch inputs["register"] {
	case "advanced":
		b.WriteString("Here's one worth thinking through.\n\n")
	case "guided":
		b.WriteString("Good question. Let's take it step by step, no rush.\n\n")
	default:
		b.WriteString("Let's work through this together.\n\n")
	}

	b.WriteString(inputs["question"])
	b.WriteString("\n\nWhat's your thinking? Give it your best attempt and we'll build from there.")

	if sources := inputs["sources"]; sources != "" {
		b.WriteString("\n\nWe'll be drawing on ")
		b.WriteString(sources)
		b.WriteString(".")
	}
	return b.String()
}

func (r *TemplateRenderer) renderEmptyCorpus(inputs map[string]string) string {
	var b strings.Builder
	b.WriteString("I couldn't find anything in your study material about that")
	if topic := inputs["question"]; topic != "" {
		b.WriteString(fmt.Sprintf(" (\"%s\")", topic))
	}
	b.WriteString(". Try uploading material that covers the topic, or ask about something in the documents you already have.")
	return b.String()
}

func (r *TemplateRenderer) renderSuccess(inputs map[string]string) string {
	var b strings.Builder

	if inputs["tier"] == "strong" {
		b.WriteString("Excellent. That's exactly it.")
	} else {
		b.WriteString("Good, you've got the core of it.")
	}

	if feedback := inputs["feedback"]; feedback != "" {
		b.WriteString("\n\n")
		b.WriteString(feedback)
	}
	if sources := inputs["sources"]; sources != "" {
		b.WriteString("\n\nSources: ")
		b.WriteString(sources)
	}
	b.WriteString("\n\nReady for another question whenever you are.")
	return b.String()
}

func (r *TemplateRenderer) renderHint(inputs map[string]string) string {
	var b strings.Builder
	b.WriteString("Not quite yet, but you're engaging with it.")
	if feedback := inputs["feedback"]; feedback != "" {
		b.WriteString(" ")
		b.WriteString(feedback)
	}
	b.WriteString("\n\nHere's a hint: ")
	b.WriteString(inputs["hint"])
	b.WriteString("\n\nWith that in mind, try the question again.")
	return b.String()
}

func (r *TemplateRenderer) renderAnalogy(inputs map[string]string) string {
	var b strings.Builder
	b.WriteString("Still not there, so let's come at it from a different angle.\n\nThink of it like this: ")
	b.WriteString(inputs["analogy"])
	b.WriteString("\n\nHow does that map onto the original question? Try once more.")
	return b.String()
}

func (r *TemplateRenderer) renderMultipleChoice(inputs map[string]string) string {
	var b strings.Builder
	b.WriteString("Let's narrow it down. One of these is right:\n\n")
	b.WriteString(inputs["options"])
	b.WriteString("\nWhich one, and why?")
	return b.String()
}

func (r *TemplateRenderer) renderDirectAnswer(inputs map[string]string) string {
	var b strings.Builder
	b.WriteString("You've worked hard on this one, so let me lay it out.\n\n")
	b.WriteString(inputs["answer"])

	if steps := inputs["steps"]; steps != "" {
		b.WriteString("\n\nThe reasoning:\n")
		b.WriteString(steps)
	}
	if sources := inputs["sources"]; sources != "" {
		b.WriteString("\nSources: ")
		b.WriteString(sources)
	}
	b.WriteString("\n\nWorth revisiting this topic later. Ask me a new question when you're ready.")
	return b.String()
}

func (r *TemplateRenderer) renderMetaSupport(inputs map[string]string) string {
	var b strings.Builder
	b.WriteString("That's a fair thing to ask.")
	if feedback := inputs["feedback"]; feedback != "" {
		b.WriteString(" ")
		b.WriteString(feedback)
	}
	b.WriteString("\n\nThe question on the table is still: ")
	b.WriteString(inputs["question"])
	b.WriteString("\n\nTake your time. An honest guess is a fine place to start.")
	return b.String()
}

// PolishingRenderer wraps a base renderer and asks the model to smooth the
// wording without changing content. On any model trouble it returns the
// base text unchanged; polish is never worth an outage.
type PolishingRenderer struct {
	base        Renderer
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewPolishingRenderer(base Renderer, llmProvider llm.LLMProvider, logger *log.Logger) *PolishingRenderer {
	return &PolishingRenderer{
		base:        base,
		llmProvider: llmProvider,
		logger:      logger,
	}
}

func (r *PolishingRenderer) Render(ctx context.Context, templateID string, inputs map[string]string) (string, error) {
	text, err := r.base.Render(ctx, templateID, inputs)
	if err != nil {
		return "", err
	}

	var prompt strings.Builder
	prompt.WriteString("<system>\n")
	prompt.WriteString("Rewrite the tutor message below in a natural, warm voice.\n")
	prompt.WriteString("Keep EVERY fact, hint, option, and question exactly as given. Add nothing, remove nothing, solve nothing.\n")
	prompt.WriteString("</system>\n\n<message>\n")
	prompt.WriteString(text)
	prompt.WriteString("\n</message>\n\nRewritten message:")

	polished, err := r.llmProvider.Generate(ctx, prompt.String(), llm.WithTemperature(0.4))
	if err != nil || strings.TrimSpace(polished) == "" {
		r.logger.Printf("[WARN] Render polish failed, keeping template text: %v", err)
		return text, nil
	}
	return strings.TrimSpace(polished), nil
}
