package ai

import "strings"

const notProvided = "not provided"

func evaluatorSystemPrompt() string {
	return "You are an expert prompt engineer who reviews AI prompts for quality. " +
		"Always return valid JSON matching the requested schema and nothing else."
}

func taggerSystemPrompt() string {
	return "You are a librarian who classifies AI prompts with short, reusable tags. " +
		"Always return valid JSON matching the requested schema and nothing else."
}

func orPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return notProvided
	}
	return value
}

func buildEvaluationPrompt(input EvaluationInput) string {
	builder := strings.Builder{}
	builder.WriteString("Evaluate the following AI prompt.\n\n")
	builder.WriteString("## Title\n")
	builder.WriteString(orPlaceholder(input.Title))
	builder.WriteString("\n\n## Description\n")
	builder.WriteString(orPlaceholder(input.Description))
	builder.WriteString("\n\n## Prompt Content\n")
	builder.WriteString(input.Content)
	builder.WriteString("\n\n## Scoring Rubric\n")
	builder.WriteString("Score each dimension with an integer from 1 to 10.\n")
	builder.WriteString("- clarity: how unambiguous the instructions are and how easily the intent is understood.\n")
	builder.WriteString("- structure: logical organisation, formatting, and use of sections, examples, or constraints.\n")
	builder.WriteString("- usefulness: how likely the prompt is to produce valuable output for a real task.\n")
	builder.WriteString("- overall: holistic quality weighing the three dimensions above.\n")
	builder.WriteString("\n## Also Provide\n")
	builder.WriteString("- suggestedTags: up to 10 short lowercase tags describing the prompt.\n")
	builder.WriteString("- category: one of creative, technical, business, educational, other.\n")
	builder.WriteString("- complexity: one of beginner, intermediate, advanced.\n")
	builder.WriteString("- estimatedTokens: an estimate of the prompt's length in tokens.\n")
	builder.WriteString("\n## Response Format\n")
	builder.WriteString(`Return JSON exactly in this shape:
{
  "clarity": 1-10,
  "structure": 1-10,
  "usefulness": 1-10,
  "overall": 1-10,
  "reasoning": {
    "clarity": "string",
    "structure": "string",
    "usefulness": "string",
    "overall": "string"
  },
  "suggestedTags": ["string"],
  "category": "creative|technical|business|educational|other",
  "complexity": "beginner|intermediate|advanced",
  "estimatedTokens": 0
}`)
	return builder.String()
}

func buildTaggingPrompt(input EvaluationInput) string {
	builder := strings.Builder{}
	builder.WriteString("Suggest tags for the following AI prompt.\n\n")
	builder.WriteString("## Title\n")
	builder.WriteString(orPlaceholder(input.Title))
	builder.WriteString("\n\n## Description\n")
	builder.WriteString(orPlaceholder(input.Description))
	builder.WriteString("\n\n## Prompt Content\n")
	builder.WriteString(input.Content)
	builder.WriteString("\n\n## Tag Guidelines\n")
	builder.WriteString("Pick up to 10 short lowercase tags covering:\n")
	builder.WriteString("- domain (e.g. marketing, software, education)\n")
	builder.WriteString("- task (e.g. summarization, code-review, brainstorming)\n")
	builder.WriteString("- format (e.g. email, list, table, essay)\n")
	builder.WriteString("- complexity (e.g. beginner-friendly, expert)\n")
	builder.WriteString("- technique (e.g. few-shot, chain-of-thought, role-play)\n")
	builder.WriteString("\n## Response Format\n")
	builder.WriteString(`Return JSON exactly in this shape:
{
  "tags": ["string"],
  "confidence": 0.0-1.0,
  "reasoning": "string"
}`)
	return builder.String()
}
