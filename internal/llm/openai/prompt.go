package openai

import (
	"fmt"
	"strings"

	"career-curve/internal/llm"
	"career-curve/internal/shared/telemetry"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const (
	systemPromptStrict  = "You are a resume scoring engine. Respond with JSON only. No markdown. Never omit keys."
	systemPromptFixJSON = "You are a JSON repair tool. Return only valid JSON that matches the schema exactly."
)

// BuildPrompt creates the chat messages for a scoring request.
func BuildPrompt(input llm.AnalyzeInput, model string) []Message {
	return []Message{
		{Role: "system", Content: systemPromptStrict},
		{Role: "developer", Content: resolvePromptTemplate(input, model)},
		{Role: "user", Content: buildUserPrompt(input.ResumeText, input.JobDescription)},
	}
}

func buildFixPrompt(input llm.AnalyzeInput, model string, raw []byte) []Message {
	return []Message{
		{Role: "system", Content: systemPromptFixJSON},
		{Role: "developer", Content: resolvePromptTemplate(input, model)},
		{Role: "user", Content: fixUserPrompt(raw)},
	}
}

func resolvePromptTemplate(input llm.AnalyzeInput, model string) string {
	version := strings.TrimSpace(input.PromptVersion)
	template, ok := llm.PromptTemplate(version)
	if !ok {
		telemetry.Warn("llm.prompt_version_unknown", map[string]any{
			"prompt_version": version,
			"fallback":       llm.DefaultPromptVersion,
		})
	}

	jobDescriptionProvided := "true"
	if strings.TrimSpace(input.JobDescription) == "" {
		jobDescriptionProvided = "false"
	}
	role := strings.TrimSpace(input.TargetRole)
	if role == "" {
		role = "unspecified"
	}

	replacer := strings.NewReplacer(
		"{{TARGET_ROLE}}", role,
		"{{MODEL}}", model,
		"{{JOB_DESCRIPTION_PROVIDED}}", jobDescriptionProvided,
	)
	return replacer.Replace(template)
}

func buildUserPrompt(resumeText, jobDescription string) string {
	jd := jobDescription
	if strings.TrimSpace(jd) == "" {
		jd = "N/A"
	}
	return fmt.Sprintf("Resume Text:\n%s\n\nJob Description:\n%s", resumeText, jd)
}

func fixUserPrompt(raw []byte) string {
	return fmt.Sprintf("Fix this JSON to match the schema exactly. Output JSON only:\n%s", string(raw))
}
