package reason

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-tutoring-be/pkg/llm"
	"ai-tutoring-be/pkg/store"
)

// Builder produces the private reference artifact for a freshly opened
// question: stepwise reasoning over the retrieved chunks plus the final
// answer. The artifact stays server-side; nothing here is student-facing.
type Builder struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewBuilder(llmProvider llm.LLMProvider, logger *log.Logger) *Builder {
	return &Builder{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// rawArtifact is the model's output shape. Steps cite chunks by 1-based
// index into the prompt's source list; indices are resolved to chunk ids
// after parsing.
type rawArtifact struct {
	Steps []struct {
		Text      string `json:"text"`
		ChunkRefs []int  `json:"chunk_refs"`
	} `json:"steps"`
	FinalAnswer string `json:"final_answer"`
}

// Build derives the reasoning artifact for a question from its retrieved
// context. A model outage or an unusable artifact is an error; the thread
// cannot open without one.
func (b *Builder) Build(ctx context.Context, question string, chunks []store.ContextChunk) (*store.ReasoningArtifact, error) {
	prompt := b.buildPrompt(question, chunks)

	response, err := b.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		return nil, fmt.Errorf("reasoning call failed: %w", err)
	}

	raw, err := parseArtifact(response)
	if err != nil {
		return nil, fmt.Errorf("reasoning artifact unparseable: %w", err)
	}

	artifact := &store.ReasoningArtifact{
		Question:    question,
		FinalAnswer: strings.TrimSpace(raw.FinalAnswer),
	}
	for _, step := range raw.Steps {
		text := strings.TrimSpace(step.Text)
		if text == "" {
			continue
		}
		s := store.ReasoningStep{Text: text}
		for _, ref := range step.ChunkRefs {
			if ref >= 1 && ref <= len(chunks) {
				s.ChunkIDs = append(s.ChunkIDs, chunks[ref-1].ID)
			}
		}
		artifact.Steps = append(artifact.Steps, s)
	}

	if len(artifact.Steps) == 0 || artifact.FinalAnswer == "" {
		return nil, fmt.Errorf("reasoning artifact incomplete: %d steps, answer %d chars",
			len(artifact.Steps), len(artifact.FinalAnswer))
	}

	b.logger.Printf("[REASON] Artifact built: %d steps", len(artifact.Steps))
	return artifact, nil
}

func (b *Builder) buildPrompt(question string, chunks []store.ContextChunk) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a domain expert preparing PRIVATE reference reasoning for a tutor.\n")
	prompt.WriteString("The student never sees this. Be precise and complete; do not simplify for teaching.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<source_material>\n")
	for i, c := range chunks {
		prompt.WriteString(fmt.Sprintf("[%d] (%s, page %d) %s\n", i+1, c.Source, c.Page, c.Content))
	}
	prompt.WriteString("</source_material>\n\n")

	prompt.WriteString("<question>\n")
	prompt.WriteString(question)
	prompt.WriteString("\n</question>\n\n")

	prompt.WriteString("<instructions>\n")
	prompt.WriteString("Derive the answer step by step, grounding every step in the source material.\n")
	prompt.WriteString("Each step cites the source numbers it relies on via chunk_refs.\n")
	prompt.WriteString("final_answer is the complete, correct answer in two to four sentences.\n")
	prompt.WriteString("</instructions>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"steps\": [\n")
	prompt.WriteString("    {\"text\": \"first inference\", \"chunk_refs\": [1]},\n")
	prompt.WriteString("    {\"text\": \"second inference\", \"chunk_refs\": [1, 2]}\n")
	prompt.WriteString("  ],\n")
	prompt.WriteString("  \"final_answer\": \"the complete answer\"\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func parseArtifact(response string) (*rawArtifact, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var raw rawArtifact
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	return &raw, nil
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
