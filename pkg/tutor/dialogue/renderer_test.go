package dialogue

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"ai-tutoring-be/pkg/llm"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestTemplateRendererKnownTemplates(t *testing.T) {
	r := NewTemplateRenderer()
	ctx := context.Background()

	cases := []struct {
		id     string
		inputs map[string]string
		want   string
	}{
		{TemplateOpening, map[string]string{"question": "Why is the sky blue?"}, "Why is the sky blue?"},
		{TemplateEmptyCorpus, map[string]string{"question": "quantum chromodynamics"}, "couldn't find anything"},
		{TemplateSuccess, map[string]string{"tier": "strong", "feedback": "Complete answer."}, "Excellent"},
		{TemplateHint, map[string]string{"hint": "Think about scattering."}, "Think about scattering."},
		{TemplateAnalogy, map[string]string{"analogy": "Like sieving sand."}, "Like sieving sand."},
		{TemplateMultipleChoice, map[string]string{"options": "A) one\nB) two\n"}, "Which one, and why?"},
		{TemplateDirectAnswer, map[string]string{"answer": "Rayleigh scattering."}, "Rayleigh scattering."},
		{TemplateMetaSupport, map[string]string{"question": "Why is the sky blue?"}, "still"},
	}

	for _, tc := range cases {
		got, err := r.Render(ctx, tc.id, tc.inputs)
		if err != nil {
			t.Errorf("template %s: unexpected error: %v", tc.id, err)
			continue
		}
		if !strings.Contains(got, tc.want) {
			t.Errorf("template %s: expected output containing %q, got %q", tc.id, tc.want, got)
		}
	}
}

func TestTemplateRendererUnknownTemplate(t *testing.T) {
	r := NewTemplateRenderer()
	if _, err := r.Render(context.Background(), "greeting_card", nil); err == nil {
		t.Fatal("expected error for unknown template id")
	}
}

func TestOpeningRegisterChangesTone(t *testing.T) {
	r := NewTemplateRenderer()
	ctx := context.Background()

	guided, _ := r.Render(ctx, TemplateOpening, map[string]string{"question": "q", "register": "guided"})
	advanced, _ := r.Render(ctx, TemplateOpening, map[string]string{"question": "q", "register": "advanced"})

	if guided == advanced {
		t.Fatal("register must change the opening wording")
	}
	if !strings.Contains(guided, "no rush") {
		t.Errorf("guided register missing gentle tone: %q", guided)
	}
}

func TestPolishingRendererRewrites(t *testing.T) {
	provider := llm.NewMockProvider("A smoother version of the message.")
	r := NewPolishingRenderer(NewTemplateRenderer(), provider, quietLogger())

	got, err := r.Render(context.Background(), TemplateHint, map[string]string{"hint": "Scattering depends on wavelength."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "A smoother version of the message." {
		t.Errorf("expected polished text, got %q", got)
	}
	if len(provider.Calls) != 1 || !strings.Contains(provider.Calls[0], "Scattering depends on wavelength.") {
		t.Errorf("polish prompt must embed the template text")
	}
}

func TestPolishingRendererFallsBackOnError(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.QueueError(errors.New("model offline"))
	r := NewPolishingRenderer(NewTemplateRenderer(), provider, quietLogger())

	got, err := r.Render(context.Background(), TemplateHint, map[string]string{"hint": "Scattering depends on wavelength."})
	if err != nil {
		t.Fatalf("polish failure must not fail the render: %v", err)
	}
	if !strings.Contains(got, "Scattering depends on wavelength.") {
		t.Errorf("expected template text fallback, got %q", got)
	}
}

func TestPolishingRendererPropagatesTemplateError(t *testing.T) {
	r := NewPolishingRenderer(NewTemplateRenderer(), llm.NewMockProvider(), quietLogger())
	if _, err := r.Render(context.Background(), "bogus", nil); err == nil {
		t.Fatal("expected unknown template error to propagate")
	}
}
